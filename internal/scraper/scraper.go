package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoImage is returned when a page has no usable image.
var ErrNoImage = errors.New("no image on page")

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxPageBytes     = 4 << 20

	// MinImageWidth is the smallest declared width accepted for a body <img>.
	MinImageWidth = 300
)

// excludedImageKeywords mark decorative images that should never illustrate a post.
var excludedImageKeywords = []string{"logo", "icon", "avatar", "sprite"}

// Scraper fetches article pages.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// New creates a scraper with the given request timeout (5s when zero).
func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// FetchDocument loads and parses an HTML page.
func (s *Scraper) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return doc, nil
}

// PageImage fetches an article and returns its representative image URL.
func (s *Scraper) PageImage(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid article url %q", pageURL)
	}

	doc, err := s.FetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if img := ImageFromDocument(doc, base); img != "" {
		return img, nil
	}
	return "", ErrNoImage
}

// ImageFromDocument picks, in order: Open Graph image, Twitter Card image,
// first body <img> that is not decorative and not declared narrower than
// MinImageWidth. Relative URLs are resolved against base.
func ImageFromDocument(doc *goquery.Document, base *url.URL) string {
	metaSelectors := []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	}
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if u := absolute(base, content); u != "" {
				return u
			}
		}
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") || isDecorative(src) {
			return true
		}
		if w, ok := img.Attr("width"); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(w), "px")); err == nil && n < MinImageWidth {
				return true
			}
		}
		if u := absolute(base, src); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

func isDecorative(src string) bool {
	lower := strings.ToLower(src)
	for _, k := range excludedImageKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
