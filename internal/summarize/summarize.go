package summarize

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/deusflow/costanews/internal/metrics"
	"github.com/deusflow/costanews/internal/news"
	"github.com/deusflow/costanews/internal/translate"
)

type Options struct {
	TargetLang     string
	MaxSentences   int
	MinRunes       int
	MaxInputRunes  int
	CountryHashtag string
}

func DefaultOptions() Options {
	return Options{
		TargetLang:     "ru",
		MaxSentences:   3,
		MinRunes:       20,
		MaxInputRunes:  5000,
		CountryHashtag: "#Испания",
	}
}

// Summarizer turns a raw item into a short translated post.
type Summarizer struct {
	tr      translate.Translator
	opts    Options
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Summarizer. tr and m may be nil.
func New(tr translate.Translator, opts Options, log *slog.Logger, m *metrics.Metrics) *Summarizer {
	return &Summarizer{tr: tr, opts: opts, log: log, metrics: m}
}

// Process returns the post for item, or false when the summary is too short
// to be worth publishing.
func (s *Summarizer) Process(ctx context.Context, item news.RawItem, region news.Region) (news.ProcessedPost, bool) {
	description := Truncate(CleanHTML(item.Description), s.opts.MaxInputRunes)

	title := s.translate(ctx, Truncate(item.Title, s.opts.MaxInputRunes))
	text := s.translate(ctx, description)

	short := Shorten(text, s.opts.MaxSentences)
	if utf8.RuneCountInString(short) < s.opts.MinRunes {
		s.log.Info("skipping item: summary too short", "title", title, "runes", utf8.RuneCountInString(short))
		s.count("rejected")
		return news.ProcessedPost{}, false
	}
	s.count("ok")

	return news.ProcessedPost{
		Title:      title,
		Text:       short,
		Link:       item.Link,
		ImageURL:   item.ImageURL,
		Hashtags:   Hashtags(region, s.opts.CountryHashtag),
		SourceName: item.SourceName,
	}, true
}

func (s *Summarizer) translate(ctx context.Context, text string) string {
	res := translate.OrOriginal(ctx, s.tr, text, s.opts.TargetLang, s.log)
	if s.metrics != nil && text != "" {
		outcome := "fallback"
		if res.Translated {
			outcome = "translated"
		}
		s.metrics.Translations.WithLabelValues(outcome).Inc()
	}
	return res.Text
}

func (s *Summarizer) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Summaries.WithLabelValues(outcome).Inc()
	}
}

// CleanHTML strips markup, joining text nodes with single spaces. Script
// and style contents are dropped.
func CleanHTML(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Join(strings.Fields(markup), " ")
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// Shorten keeps the first n sentences. "!" and "?" end sentences like ".",
// and the result always ends with a period unless empty.
func Shorten(text string, n int) string {
	text = strings.NewReplacer("!", ".", "?", ".").Replace(text)

	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) > n {
		sentences = sentences[:n]
	}

	short := strings.Join(sentences, ". ")
	if short != "" && !strings.HasSuffix(short, ".") {
		short += "."
	}
	return short
}

// Hashtags returns the region's own tags, or "#<Name>" plus the country tag.
func Hashtags(region news.Region, country string) []string {
	if len(region.Hashtags) > 0 {
		return append([]string(nil), region.Hashtags...)
	}
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, region.Name)

	tags := []string{"#" + name}
	if country != "" {
		tags = append(tags, country)
	}
	return tags
}

// Truncate caps s at max runes. max <= 0 means no cap.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
