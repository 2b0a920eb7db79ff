package connector

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/mmcdole/gofeed"
)

// RSS handles RSS, Atom and JSON Feed documents.
type RSS struct {
	fetcher *Fetcher
}

func NewRSS(fetcher *Fetcher) *RSS {
	return &RSS{fetcher: fetcher}
}

func (c *RSS) Kind() source.Kind {
	return source.KindRSS
}

func (c *RSS) Fetch(ctx context.Context, url string, headers map[string]string, _ source.Mapping) ([]RawItem, error) {
	resp, err := c.fetcher.Get(ctx, url, nil, headers)
	if err != nil {
		return nil, err
	}
	return parseFeed(resp.Body, url)
}

func parseFeed(data []byte, sourceURL string) ([]RawItem, error) {
	// gofeed parsers keep per-document state, one per call.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	base := cmp.Or(feed.Link, sourceURL)

	items := make([]RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		items = append(items, normalizeFeedItem(entry, base, sourceURL))
	}
	return items, nil
}

func normalizeFeedItem(entry *gofeed.Item, base, sourceURL string) RawItem {
	content := cmp.Or(entry.Content, entry.Description)

	summary := stripHTML(cmp.Or(entry.Description, entry.Content))
	if summary == "" {
		summary = truncateRunes(content, summaryLimit)
	}

	item := RawItem{
		Title:       strings.TrimSpace(entry.Title),
		Summary:     summary,
		Content:     content,
		URL:         resolveURL(base, entry.Link),
		PublishedAt: feedItemDate(entry),
		Raw:         rawJSON(entry),
	}
	return finalize(item, sourceURL)
}

func feedItemDate(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		return &t
	}
	if entry.Published != "" {
		if t, err := dateparse.ParseAny(entry.Published); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		return &t
	}
	return nil
}
