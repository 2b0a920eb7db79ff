package connector

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/cti-comb/app/source"
)

// Advisory reads the GitHub security advisory listing schema.
type Advisory struct {
	fetcher *Fetcher
}

func NewAdvisory(fetcher *Fetcher) *Advisory {
	return &Advisory{fetcher: fetcher}
}

func (c *Advisory) Kind() source.Kind {
	return source.KindAdvisory
}

type advisoryRecord struct {
	GHSAID      string     `json:"ghsa_id"`
	CVEID       string     `json:"cve_id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	HTMLURL     string     `json:"html_url"`
	URL         string     `json:"url"`
	Severity    string     `json:"severity"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   *time.Time `json:"created_at"`
}

func (c *Advisory) Fetch(ctx context.Context, url string, headers map[string]string, _ source.Mapping) ([]RawItem, error) {
	defaults := map[string]string{"Accept": "application/vnd.github+json"}

	resp, err := c.fetcher.Get(ctx, url, defaults, headers)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode advisories: %w", err)
	}

	items := make([]RawItem, 0, len(records))
	for _, raw := range records {
		var rec advisoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode advisory: %w", err)
		}

		item := RawItem{
			Title:       cmp.Or(rec.Summary, rec.GHSAID),
			Summary:     truncateRunes(rec.Description, summaryLimit),
			Content:     rec.Description,
			URL:         cmp.Or(rec.HTMLURL, rec.URL),
			PublishedAt: advisoryDate(rec),
			Raw:         raw,
		}
		items = append(items, finalize(item, url))
	}
	return items, nil
}

func advisoryDate(rec advisoryRecord) *time.Time {
	t := rec.PublishedAt
	if t == nil {
		t = rec.CreatedAt
	}
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
