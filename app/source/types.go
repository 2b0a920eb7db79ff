package source

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindRSS        Kind = "rss"
	KindGenericAPI Kind = "generic_api"
	KindAdvisory   Kind = "advisory_api"
	KindScrape     Kind = "html_scrape"
)

// DefaultCron is applied to definitions that leave the schedule empty.
const DefaultCron = "0 */6 * * *"

const (
	VisibilityPublic = "public"
	VisibilityGroups = "groups"
)

var kindAliases = map[string]Kind{
	"github_releases":   KindAdvisory,
	"github_advisory":   KindAdvisory,
	"github_advisories": KindAdvisory,
	"atom":              KindRSS,
	"scrape":            KindScrape,
}

// ParseKind accepts the canonical kind names plus a few legacy aliases.
func ParseKind(value string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch k := Kind(v); k {
	case KindRSS, KindGenericAPI, KindAdvisory, KindScrape:
		return k, nil
	}
	if k, ok := kindAliases[v]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown source kind %q", value)
}

// Config is the read view of a source the pipeline works from.
type Config struct {
	ID                 string
	Name               string
	Kind               Kind
	URL                string
	Headers            map[string]string
	Mapping            Mapping
	Enabled            bool
	Cron               string
	VisibilityScope    string
	VisibilityGroupIDs []string
	CategoryIDs        []string
}

// Mapping holds connector-specific options such as field paths and selectors.
type Mapping map[string]any

// String returns the option as a trimmed string, or def when missing or empty.
func (m Mapping) String(key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
