package connector

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Security Blog</title>
  <link>https://blog.example.com/</link>
  <description>Threat research</description>
  <item>
    <title>Exploitation of CVE-2024-1234 in the wild</title>
    <link>https://blog.example.com/posts/1</link>
    <description><![CDATA[<p>Attackers target <b>Apache Struts</b>.</p>]]></description>
    <content:encoded><![CDATA[<div>Full write-up of CVE-2024-1234 with CVSS 9.8.</div>]]></content:encoded>
    <pubDate>Mon, 02 Sep 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <link>/posts/2</link>
    <description>plain text only</description>
  </item>
</channel>
</rss>`

func TestRSSFetch(t *testing.T) {
	var userAgent, token string
	srv := serve(t, "application/rss+xml", sampleRSS, func(r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		token = r.Header.Get("X-Token")
	})

	c := NewRSS(NewFetcher(srv.Client(), "CTI Comb/test"))
	items, err := c.Fetch(context.Background(), srv.URL, map[string]string{"X-Token": "t"}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "CTI Comb/test", userAgent)
	assert.Equal(t, "t", token)

	first := items[0]
	assert.Equal(t, "Exploitation of CVE-2024-1234 in the wild", first.Title)
	assert.Equal(t, "https://blog.example.com/posts/1", first.URL)
	assert.Equal(t, "Attackers target Apache Struts.", first.Summary)
	assert.Contains(t, first.Content, "Full write-up", "encoded content wins over description")
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)))
	assert.NotEmpty(t, first.Raw)

	second := items[1]
	assert.Equal(t, UntitledPlaceholder, second.Title)
	assert.Equal(t, "https://blog.example.com/posts/2", second.URL)
	assert.Equal(t, "plain text only", second.Content)
	assert.Nil(t, second.PublishedAt)
}

func TestRSSFetchAtom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Advisories</title>
  <entry>
    <title>Fortinet FortiOS bulletin</title>
    <link href="https://atom.example.com/e/1"/>
    <id>urn:1</id>
    <updated>2024-05-01T12:00:00Z</updated>
    <published>2024-05-01T08:00:00Z</published>
    <summary>Short</summary>
    <content type="html">&lt;p&gt;Long body&lt;/p&gt;</content>
  </entry>
</feed>`
	srv := serve(t, "application/atom+xml", atom, nil)

	items, err := NewRSS(NewFetcher(srv.Client(), "")).Fetch(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Fortinet FortiOS bulletin", items[0].Title)
	assert.Equal(t, "Short", items[0].Summary)
	assert.Contains(t, items[0].Content, "Long body")
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 8, items[0].PublishedAt.Hour())
}

func TestRSSSummaryFallsBackToTruncatedContent(t *testing.T) {
	long := strings.Repeat("x", 800)
	item := normalizeFeedItemForTest("", "<img src=\"a.png\"/>"+long)
	assert.Equal(t, long, item.Summary, "stripped snippet preferred when present")

	item = normalizeFeedItemForTest("", "<img src=\"a.png\"/>")
	assert.Equal(t, "<img src=\"a.png\"/>", item.Summary, "raw content used when snippet is empty")
}

func TestRSSFetchParseFailure(t *testing.T) {
	srv := serve(t, "text/plain", "definitely not a feed", nil)

	_, err := NewRSS(NewFetcher(srv.Client(), "")).Fetch(context.Background(), srv.URL, nil, nil)
	assert.ErrorContains(t, err, "failed to parse feed")
}

func normalizeFeedItemForTest(description, content string) RawItem {
	entry := &gofeed.Item{Description: description, Content: content}
	return normalizeFeedItem(entry, "https://example.com/", "https://example.com/feed")
}
