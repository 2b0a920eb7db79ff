package connector

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/cti-comb/app/source"
	"golang.org/x/net/html/charset"
)

// Mapping keys understood by the scrape connector, with their defaults.
const (
	MappingItemSelector    = "itemSelector"
	MappingTitleSelector   = "titleSelector"
	MappingLinkSelector    = "linkSelector"
	MappingSummarySelector = "summarySelector"

	defaultItemSelector    = "article"
	defaultTitleSelector   = "h2, h3, .title"
	defaultLinkSelector    = "a"
	defaultSummarySelector = "p, .summary"
)

// Scrape extracts repeated elements from an HTML page.
type Scrape struct {
	fetcher *Fetcher
}

func NewScrape(fetcher *Fetcher) *Scrape {
	return &Scrape{fetcher: fetcher}
}

func (c *Scrape) Kind() source.Kind {
	return source.KindScrape
}

func (c *Scrape) Fetch(ctx context.Context, url string, headers map[string]string, mapping source.Mapping) ([]RawItem, error) {
	resp, err := c.fetcher.Get(ctx, url, map[string]string{"Accept": "text/html"}, headers)
	if err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return scrapeDocument(doc, url, mapping), nil
}

func scrapeDocument(doc *goquery.Document, sourceURL string, mapping source.Mapping) []RawItem {
	itemSelector := mapping.String(MappingItemSelector, defaultItemSelector)
	titleSelector := mapping.String(MappingTitleSelector, defaultTitleSelector)
	linkSelector := mapping.String(MappingLinkSelector, defaultLinkSelector)
	summarySelector := mapping.String(MappingSummarySelector, defaultSummarySelector)

	var items []RawItem
	doc.Find(itemSelector).Each(func(_ int, el *goquery.Selection) {
		title := collapseSpace(el.Find(titleSelector).First().Text())
		href, _ := el.Find(linkSelector).First().Attr("href")
		href = strings.TrimSpace(href)

		if title == "" && href == "" {
			return
		}

		summary := collapseSpace(el.Find(summarySelector).First().Text())
		link := resolveURL(sourceURL, href)

		item := RawItem{
			Title:   title,
			Summary: summary,
			Content: summary,
			URL:     link,
			Raw: rawJSON(map[string]string{
				"title":   title,
				"link":    link,
				"summary": summary,
			}),
		}
		items = append(items, finalize(item, sourceURL))
	})
	return items
}
