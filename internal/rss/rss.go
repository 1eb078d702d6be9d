package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/deusflow/costanews/internal/news"
)

const (
	defaultMaxItems  = 10
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	unknownSource    = "Unknown source"
)

// Fetcher downloads feeds and maps their entries into news.RawItem.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	maxItems  int
	userAgent string
	log       *slog.Logger
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client (timeout included).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxItems caps how many entries are taken from each feed.
func WithMaxItems(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxItems = n
		}
	}
}

// WithTimeout sets the per-feed request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(log *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		parser:    gofeed.NewParser(),
		maxItems:  defaultMaxItems,
		userAgent: defaultUserAgent,
		log:       log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the first entries of one feed in feed order. Any failure is
// logged and yields an empty slice so one bad source never stops a region.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) []news.RawItem {
	feed, err := f.fetchFeed(ctx, feedURL)
	if err != nil {
		f.log.Warn("feed fetch failed", "url", feedURL, "error", err)
		return nil
	}

	source := sourceName(feed, feedURL)
	n := len(feed.Items)
	if n > f.maxItems {
		n = f.maxItems
	}

	items := make([]news.RawItem, 0, n)
	for _, it := range feed.Items[:n] {
		if it == nil {
			continue
		}
		items = append(items, toRawItem(it, source, feedURL))
	}
	f.log.Debug("feed loaded", "url", feedURL, "items", len(items), "source", source)
	return items
}

// FetchAll fetches each URL in turn and concatenates the results in order.
// Cross-source duplicates are kept.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []news.RawItem {
	var all []news.RawItem
	ok := 0
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		items := f.Fetch(ctx, u)
		if items != nil {
			ok++
		}
		all = append(all, items...)
	}
	f.log.Info("processed feeds", "ok", ok, "total", len(urls), "items", len(all))
	return all
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func sourceName(feed *gofeed.Feed, feedURL string) string {
	if feed.Title != "" {
		return feed.Title
	}
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return unknownSource
}

func toRawItem(it *gofeed.Item, source, feedURL string) news.RawItem {
	item := news.RawItem{
		Title:       it.Title,
		Link:        it.Link,
		Description: it.Description,
		Content:     it.Content,
		Published:   it.Published,
		SourceName:  source,
		FeedURL:     feedURL,
	}

	if media, ok := it.Extensions["media"]; ok {
		item.MediaContents = mediaRefs(media["content"])
		item.MediaThumbnails = mediaRefs(media["thumbnail"])
		// media:group wraps content/thumbnail on some publishers
		for _, g := range media["group"] {
			item.MediaContents = append(item.MediaContents, mediaRefs(g.Children["content"])...)
			item.MediaThumbnails = append(item.MediaThumbnails, mediaRefs(g.Children["thumbnail"])...)
		}
	}

	for _, enc := range it.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		item.Enclosures = append(item.Enclosures, news.MediaRef{URL: enc.URL, Type: enc.Type})
	}
	return item
}

func mediaRefs(exts []ext.Extension) []news.MediaRef {
	var refs []news.MediaRef
	for _, e := range exts {
		u := e.Attrs["url"]
		if u == "" {
			continue
		}
		refs = append(refs, news.MediaRef{URL: u, Type: e.Attrs["type"], Medium: e.Attrs["medium"]})
	}
	return refs
}
