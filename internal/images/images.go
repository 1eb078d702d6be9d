// Package images finds a representative image for a feed item by trying an
// ordered list of strategies; the first one that yields a URL wins.
package images

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/costanews/internal/news"
)

// Strategy is one step of the resolution chain.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, item news.RawItem) (string, bool)
}

// Resolution is the outcome of a successful chain run.
type Resolution struct {
	URL      string
	Strategy string
}

// PageImager fetches an article page and extracts its image.
type PageImager interface {
	PageImage(ctx context.Context, pageURL string) (string, error)
}

// Resolver runs strategies in order.
type Resolver struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewResolver builds a resolver over an explicit strategy list.
func NewResolver(log *slog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, log: log}
}

// DefaultResolver is the standard chain: media content, media thumbnail,
// enclosure, description <img>, content <img>, then the article page when
// pages is not nil.
func DefaultResolver(log *slog.Logger, pages PageImager) *Resolver {
	strategies := []Strategy{
		MediaContent{},
		MediaThumbnail{},
		Enclosure{},
		DescriptionImage{},
		ContentImage{},
	}
	if pages != nil {
		strategies = append(strategies, ArticlePage{Pages: pages, Log: log})
	}
	return NewResolver(log, strategies...)
}

// Resolve returns the first image found. ok=false means "publish text-only".
func (r *Resolver) Resolve(ctx context.Context, item news.RawItem) (Resolution, bool) {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			return Resolution{}, false
		}
		if u, ok := s.Resolve(ctx, item); ok && u != "" {
			r.log.Debug("image resolved", "strategy", s.Name(), "url", u, "link", item.Link)
			return Resolution{URL: u, Strategy: s.Name()}, true
		}
	}
	return Resolution{}, false
}

// MediaContent picks the first media:content that looks like an image.
type MediaContent struct{}

func (MediaContent) Name() string { return "media_content" }

func (MediaContent) Resolve(_ context.Context, item news.RawItem) (string, bool) {
	for _, m := range item.MediaContents {
		if looksLikeImage(m) {
			return m.URL, true
		}
	}
	return "", false
}

// MediaThumbnail picks the first media:thumbnail.
type MediaThumbnail struct{}

func (MediaThumbnail) Name() string { return "media_thumbnail" }

func (MediaThumbnail) Resolve(_ context.Context, item news.RawItem) (string, bool) {
	for _, m := range item.MediaThumbnails {
		if m.URL != "" {
			return m.URL, true
		}
	}
	return "", false
}

// Enclosure picks the first enclosure that looks like an image.
type Enclosure struct{}

func (Enclosure) Name() string { return "enclosure" }

func (Enclosure) Resolve(_ context.Context, item news.RawItem) (string, bool) {
	for _, m := range item.Enclosures {
		if looksLikeImage(m) {
			return m.URL, true
		}
	}
	return "", false
}

// DescriptionImage takes the first <img> of the description markup.
type DescriptionImage struct{}

func (DescriptionImage) Name() string { return "description_img" }

func (DescriptionImage) Resolve(_ context.Context, item news.RawItem) (string, bool) {
	return firstImg(item.Description, item.FeedURL)
}

// ContentImage takes the first <img> of the full content markup.
type ContentImage struct{}

func (ContentImage) Name() string { return "content_img" }

func (ContentImage) Resolve(_ context.Context, item news.RawItem) (string, bool) {
	return firstImg(item.Content, item.FeedURL)
}

// ArticlePage fetches the item's link. Failures are logged and mean "no image".
type ArticlePage struct {
	Pages PageImager
	Log   *slog.Logger
}

func (ArticlePage) Name() string { return "article_page" }

func (a ArticlePage) Resolve(ctx context.Context, item news.RawItem) (string, bool) {
	if item.Link == "" {
		return "", false
	}
	u, err := a.Pages.PageImage(ctx, item.Link)
	if err != nil {
		if a.Log != nil {
			a.Log.Debug("article image fallback failed", "link", item.Link, "error", err)
		}
		return "", false
	}
	return u, u != ""
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".avif": true,
}

// lazyAttrs are checked after src, in order.
var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original"}

func looksLikeImage(m news.MediaRef) bool {
	if m.URL == "" {
		return false
	}
	if strings.Contains(strings.ToLower(m.Type), "image") || strings.EqualFold(m.Medium, "image") {
		return true
	}
	return hasImageExtension(m.URL)
}

func hasImageExtension(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return imageExtensions[strings.ToLower(path.Ext(p))]
}

func firstImg(markup, feedURL string) (string, bool) {
	if !strings.Contains(strings.ToLower(markup), "<img") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}
	img := doc.Find("img").First()
	if img.Length() == 0 {
		return "", false
	}

	candidates := append([]string{"src"}, lazyAttrs...)
	for _, attr := range candidates {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		return normalize(v, feedURL)
	}
	return "", false
}

// normalize turns protocol-relative and root-relative references into
// absolute URLs using the feed's scheme and host. A root-relative reference
// without a usable feed URL cannot be resolved.
func normalize(ref, feedURL string) (string, bool) {
	scheme, host := "https", ""
	if feed, err := url.Parse(feedURL); err == nil && feed.Host != "" {
		host = feed.Host
		if feed.Scheme != "" {
			scheme = feed.Scheme
		}
	}
	switch {
	case strings.HasPrefix(ref, "//"):
		return scheme + ":" + ref, true
	case strings.HasPrefix(ref, "/"):
		if host == "" {
			return "", false
		}
		return scheme + "://" + host + ref, true
	}
	return ref, true
}
