package connector

import (
	"context"
	"testing"

	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<article><h2>Ransomware group targets VMware ESXi</h2><a href="/news/esxi">read</a><p>Attackers exploit vCenter.</p></article>
<article><h3>Absolute link</h3><a href="https://other.example/post">go</a></article>
<article><div>no title, no link</div></article>
<article><span class="title">Title only</span></article>
</body></html>`

func TestScrapeDefaults(t *testing.T) {
	srv := serve(t, "text/html; charset=utf-8", samplePage, nil)

	items, err := NewScrape(NewFetcher(srv.Client(), "")).Fetch(context.Background(), srv.URL+"/blog/", nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 3, "element without title and link is skipped")

	assert.Equal(t, "Ransomware group targets VMware ESXi", items[0].Title)
	assert.Equal(t, srv.URL+"/news/esxi", items[0].URL)
	assert.Equal(t, "Attackers exploit vCenter.", items[0].Summary)
	assert.Equal(t, items[0].Summary, items[0].Content)

	assert.Equal(t, "https://other.example/post", items[1].URL)

	assert.Equal(t, "Title only", items[2].Title)
	assert.Equal(t, srv.URL+"/blog/", items[2].URL)
}

func TestScrapeCustomSelectors(t *testing.T) {
	page := `<ul><li class="row"><span class="t">Row</span><a class="go" href="r1">x</a><em>detail</em></li></ul>`
	srv := serve(t, "text/html", page, nil)

	items, err := NewScrape(NewFetcher(srv.Client(), "")).Fetch(context.Background(), srv.URL+"/list/", nil, source.Mapping{
		"itemSelector":    "li.row",
		"titleSelector":   ".t",
		"linkSelector":    "a.go",
		"summarySelector": "em",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Row", items[0].Title)
	assert.Equal(t, srv.URL+"/list/r1", items[0].URL)
	assert.Equal(t, "detail", items[0].Summary)
}

func TestScrapeDecodesCharset(t *testing.T) {
	page := "<article><h2>Caf\xe9 breach</h2><a href=\"/c\">c</a></article>"
	srv := serve(t, "text/html; charset=iso-8859-1", page, nil)

	items, err := NewScrape(NewFetcher(srv.Client(), "")).Fetch(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café breach", items[0].Title)
}
