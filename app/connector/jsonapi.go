package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/cti-comb/app/source"
)

// Mapping keys understood by the generic JSON connector.
const (
	MappingArrayPath    = "arrayPath"
	MappingTitleField   = "titleField"
	MappingSummaryField = "summaryField"
	MappingContentField = "contentField"
	MappingURLField     = "urlField"
	MappingDateField    = "dateField"
)

type JSONAPI struct {
	fetcher *Fetcher
}

func NewJSONAPI(fetcher *Fetcher) *JSONAPI {
	return &JSONAPI{fetcher: fetcher}
}

func (c *JSONAPI) Kind() source.Kind {
	return source.KindGenericAPI
}

func (c *JSONAPI) Fetch(ctx context.Context, url string, headers map[string]string, mapping source.Mapping) ([]RawItem, error) {
	resp, err := c.fetcher.Get(ctx, url, map[string]string{"Accept": "application/json"}, headers)
	if err != nil {
		return nil, err
	}

	payload, err := decodeJSON(resp.Body)
	if err != nil {
		return nil, err
	}
	return extractMapped(payload, url, mapping), nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return payload, nil
}

func extractMapped(payload any, sourceURL string, mapping source.Mapping) []RawItem {
	entries, ok := Lookup(payload, mapping.String(MappingArrayPath, ""))
	if !ok {
		return nil
	}

	list, isList := entries.([]any)
	if !isList {
		list = []any{entries}
	}

	titleField := mapping.String(MappingTitleField, "title")
	summaryField := mapping.String(MappingSummaryField, "summary")
	contentField := mapping.String(MappingContentField, "description")
	urlField := mapping.String(MappingURLField, "url")
	dateField := mapping.String(MappingDateField, "published")

	items := make([]RawItem, 0, len(list))
	for _, entry := range list {
		if entry == nil {
			continue
		}
		item := RawItem{
			Title:   stringAt(entry, titleField),
			Summary: stringAt(entry, summaryField),
			Content: stringAt(entry, contentField),
			URL:     resolveURL(sourceURL, stringAt(entry, urlField)),
			Raw:     rawJSON(entry),
		}
		if v, ok := Lookup(entry, dateField); ok {
			item.PublishedAt = parseTimeValue(v)
		}
		items = append(items, finalize(item, sourceURL))
	}
	return items
}

func stringAt(entry any, path string) string {
	v, ok := Lookup(entry, path)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseTimeValue accepts date strings in any common layout and numeric Unix
// timestamps in seconds or milliseconds.
func parseTimeValue(v any) *time.Time {
	var t time.Time
	switch val := v.(type) {
	case string:
		parsed, err := dateparse.ParseAny(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		t = parsed
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			f, ferr := val.Float64()
			if ferr != nil {
				return nil
			}
			n = int64(f)
		}
		if n > 1e12 {
			t = time.UnixMilli(n)
		} else {
			t = time.Unix(n, 0)
		}
	default:
		return nil
	}
	t = t.UTC()
	return &t
}
