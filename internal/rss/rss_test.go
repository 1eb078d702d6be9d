package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/costanews/internal/logger"
)

const mediaFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Información Alicante</title>
  <link>https://www.informacion.es</link>
  <item>
    <title>Fiesta en Alicante</title>
    <link>https://x.es/1</link>
    <description><![CDATA[<p>Gran evento.</p>]]></description>
    <pubDate>Mon, 02 Jun 2025 10:00:00 +0200</pubDate>
    <media:content url="https://cdn.x.es/big.jpg" type="image/jpeg" medium="image"/>
    <media:thumbnail url="https://cdn.x.es/thumb.jpg"/>
  </item>
  <item>
    <title>Sin imagen</title>
    <link>https://x.es/2</link>
    <enclosure url="https://cdn.x.es/audio.mp3" type="audio/mpeg" length="10"/>
    <content:encoded><![CDATA[<div><img src="/img/a.png"></div>]]></content:encoded>
  </item>
  <item>
    <link>https://x.es/3</link>
  </item>
</channel>
</rss>`

func serve(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_MapsEntries(t *testing.T) {
	srv := serve(t, mediaFeed, http.StatusOK)
	f := NewFetcher(logger.Discard())

	items := f.Fetch(context.Background(), srv.URL)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "Fiesta en Alicante", first.Title)
	assert.Equal(t, "https://x.es/1", first.Link)
	assert.Contains(t, first.Description, "Gran evento.")
	assert.Equal(t, "Información Alicante", first.SourceName)
	assert.Equal(t, srv.URL, first.FeedURL)
	assert.NotEmpty(t, first.Published)
	require.Len(t, first.MediaContents, 1)
	assert.Equal(t, "https://cdn.x.es/big.jpg", first.MediaContents[0].URL)
	assert.Equal(t, "image/jpeg", first.MediaContents[0].Type)
	require.Len(t, first.MediaThumbnails, 1)
	assert.Equal(t, "https://cdn.x.es/thumb.jpg", first.MediaThumbnails[0].URL)

	second := items[1]
	require.Len(t, second.Enclosures, 1)
	assert.Equal(t, "audio/mpeg", second.Enclosures[0].Type)
	assert.Contains(t, second.Content, `<img src="/img/a.png">`)
	assert.Empty(t, second.Description)

	// missing title is an empty string, not an error
	assert.Equal(t, "", items[2].Title)
}

func TestFetch_CapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>`)
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "<item><title>n%d</title><link>https://x.es/%d</link></item>", i, i)
	}
	b.WriteString(`</channel></rss>`)
	srv := serve(t, b.String(), http.StatusOK)

	items := NewFetcher(logger.Discard()).Fetch(context.Background(), srv.URL)
	require.Len(t, items, 10)
	assert.Equal(t, "n0", items[0].Title)
	assert.Equal(t, "n9", items[9].Title)

	items = NewFetcher(logger.Discard(), WithMaxItems(3)).Fetch(context.Background(), srv.URL)
	assert.Len(t, items, 3)
}

func TestFetch_FailuresYieldEmpty(t *testing.T) {
	ctx := context.Background()
	f := NewFetcher(logger.Discard(), WithTimeout(200*time.Millisecond))

	assert.Empty(t, f.Fetch(ctx, serve(t, "oops", http.StatusInternalServerError).URL))
	assert.Empty(t, f.Fetch(ctx, serve(t, "<html>not a feed", http.StatusOK).URL))
	assert.Empty(t, f.Fetch(ctx, "http://127.0.0.1:1/unreachable"))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer slow.Close()
	assert.Empty(t, f.Fetch(ctx, slow.URL))
}

func TestFetchAll_PreservesOrderAndSkipsFailures(t *testing.T) {
	a := serve(t, `<rss version="2.0"><channel><title>A</title><item><title>a1</title><link>https://a/1</link></item><item><title>a2</title><link>https://a/2</link></item></channel></rss>`, http.StatusOK)
	bad := serve(t, "", http.StatusNotFound)
	b := serve(t, `<rss version="2.0"><channel><title>B</title><item><title>a1</title><link>https://a/1</link></item></channel></rss>`, http.StatusOK)

	items := NewFetcher(logger.Discard()).FetchAll(context.Background(), []string{a.URL, bad.URL, b.URL})
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a1", "a2", "a1"}, []string{items[0].Title, items[1].Title, items[2].Title})
	assert.Equal(t, "A", items[0].SourceName)
	assert.Equal(t, "B", items[2].SourceName)
}

func TestSourceName_FallsBackToHost(t *testing.T) {
	srv := serve(t, `<rss version="2.0"><channel><item><title>x</title><link>https://a/1</link></item></channel></rss>`, http.StatusOK)
	items := NewFetcher(logger.Discard()).Fetch(context.Background(), srv.URL)
	require.Len(t, items, 1)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), items[0].SourceName)
}
