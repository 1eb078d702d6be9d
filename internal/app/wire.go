package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/deusflow/costanews/internal/cache"
	"github.com/deusflow/costanews/internal/config"
	"github.com/deusflow/costanews/internal/filter"
	"github.com/deusflow/costanews/internal/gemini"
	"github.com/deusflow/costanews/internal/images"
	"github.com/deusflow/costanews/internal/metrics"
	"github.com/deusflow/costanews/internal/publish"
	"github.com/deusflow/costanews/internal/ratelimit"
	"github.com/deusflow/costanews/internal/rss"
	"github.com/deusflow/costanews/internal/scraper"
	"github.com/deusflow/costanews/internal/summarize"
	"github.com/deusflow/costanews/internal/telegram"
	"github.com/deusflow/costanews/internal/translate"
)

// NewTranslator builds the provider chain: free Google first, then Gemini
// and OpenAI when their keys are set, each within its daily budget. Results
// are memoised. The returned func releases provider clients.
func NewTranslator(ctx context.Context, cfg *config.Config, log *slog.Logger) (translate.Translator, func()) {
	var closers []func()
	providers := []translate.Provider{{Name: "google", Translator: translate.NewGoogle()}}

	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewTranslator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("gemini disabled", "error", err)
		} else {
			providers = append(providers, translate.Provider{Name: "gemini", Translator: g})
			closers = append(closers, func() { _ = g.Close() })
		}
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, translate.Provider{Name: "openai", Translator: translate.NewOpenAI(cfg.OpenAIAPIKey)})
	}

	budget := ratelimit.NewBudget(map[string]int{
		"gemini": cfg.MaxGeminiRequests,
		"openai": cfg.MaxOpenAIRequests,
	}, log)
	chain := translate.NewChain(budget, log, providers...)
	log.Info("translation providers", "chain", chain.Names())

	memo := cache.New[string](cfg.TranslationCacheTTL, time.Hour)
	closers = append(closers, memo.Close)

	return translate.NewCached(chain, memo), func() {
		for _, c := range closers {
			c()
		}
	}
}

// FromConfig wires the production pipeline. The returned func closes the
// store and translation clients.
func FromConfig(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*App, func(), error) {
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	tr, closeTranslator := NewTranslator(ctx, cfg, log)

	var pages images.PageImager
	if cfg.ImageFallbackFetch {
		pages = scraper.New(cfg.ArticleTimeout)
	}

	sopts := summarize.Options{
		TargetLang:     cfg.TargetLanguage,
		MaxSentences:   cfg.MaxSentences,
		MinRunes:       cfg.MinSummaryRunes,
		MaxInputRunes:  cfg.TranslateMaxChars,
		CountryHashtag: cfg.CountryHashtag,
	}

	deps := Deps{
		Fetcher:    rss.NewFetcher(log, rss.WithMaxItems(cfg.MaxItemsPerFeed), rss.WithTimeout(cfg.FeedTimeout)),
		Filter:     filter.New(store, log),
		Images:     images.DefaultResolver(log, pages),
		Summarizer: summarize.New(tr, sopts, log, m),
		Publisher:  publish.New(telegram.NewClient(cfg.TelegramToken, log), cfg.ReadMoreLabel, log),
		Store:      store,
	}
	opts := Options{
		Regions:           cfg.Regions,
		MaxPostsPerRegion: cfg.MaxPostsPerRegion,
		ItemPause:         cfg.ItemPause,
		RegionPause:       cfg.RegionPause,
		Schedule:          cfg.Schedule,
	}

	cleanup := func() {
		closeTranslator()
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}
	return New(deps, opts, log, m), cleanup, nil
}
