package database

import (
	"encoding/json"
	"time"
)

// Item is a persisted threat-intel entry. Rows are written once and never
// updated by the pipeline.
type Item struct {
	ID                 string
	SourceID           string
	Title              string
	Summary            string
	Content            string
	URL                string
	PublishedAt        *time.Time
	Raw                json.RawMessage
	Fingerprint        string
	CVEs               []string
	CWEs               []string
	Tags               []string
	Vendors            []string
	Products           []string
	Severity           string
	VisibilityScope    string
	VisibilityGroupIDs []string
	CategoryIDs        []string
	CollectedAt        time.Time
}

type Category struct {
	ID   string
	Name string
	Slug string
}

type ItemStats struct {
	Total    int
	Sources  int
	LastSeen *time.Time
}
