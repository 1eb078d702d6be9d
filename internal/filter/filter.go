package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/costanews/internal/news"
	"github.com/deusflow/costanews/internal/storage"
)

// spamKeywords are classifieds/advertising markers in Spanish regional feeds.
var spamKeywords = []string{
	"clasificados", "anuncio", "publicidad", "sorteo",
	"oferta laboral", "se busca", "se alquila", "se vende",
}

// Stats counts what happened to each item in one Filter call.
type Stats struct {
	Duplicates int
	Spam       int
	Irrelevant int
	Kept       int
}

// Filter rejects already-published, spam and off-topic items.
type Filter struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, log *slog.Logger) *Filter {
	return &Filter{store: store, log: log}
}

// IsDuplicate reports whether the item's fingerprint is in the published set.
// A store error counts as duplicate: the item is skipped this run and seen
// again on the next one.
func (f *Filter) IsDuplicate(ctx context.Context, item news.RawItem) bool {
	ok, err := f.store.Contains(ctx, item.Fingerprint())
	if err != nil {
		f.log.Warn("published set lookup failed, skipping item", "title", item.Title, "error", err)
		return true
	}
	return ok
}

// IsSpam matches title and description against the spam list.
func (f *Filter) IsSpam(item news.RawItem) bool {
	return containsAny(itemText(item), spamKeywords)
}

// MarkPublished adds the item's fingerprint; it is durable when this returns nil.
func (f *Filter) MarkPublished(ctx context.Context, item news.RawItem) error {
	if err := f.store.Add(ctx, item.Fingerprint()); err != nil {
		return fmt.Errorf("mark published %q: %w", item.Link, err)
	}
	return nil
}

// Filter keeps, in input order, items that are new, not spam, and mention at
// least one of keywords.
func (f *Filter) Filter(ctx context.Context, items []news.RawItem, keywords []string) ([]news.RawItem, Stats) {
	var (
		kept  []news.RawItem
		stats Stats
	)
	for _, item := range items {
		if f.IsDuplicate(ctx, item) {
			stats.Duplicates++
			continue
		}
		if f.IsSpam(item) {
			f.log.Info("spam filtered", "title", item.Title)
			stats.Spam++
			continue
		}
		if !containsAny(itemText(item), keywords) {
			stats.Irrelevant++
			continue
		}
		kept = append(kept, item)
	}
	stats.Kept = len(kept)
	return kept, stats
}

func itemText(item news.RawItem) string {
	return strings.ToLower(item.Title + " " + item.Description)
}

// containsAny expects text already lower-cased.
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
