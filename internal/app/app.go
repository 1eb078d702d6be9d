package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/deusflow/costanews/internal/filter"
	"github.com/deusflow/costanews/internal/images"
	"github.com/deusflow/costanews/internal/metrics"
	"github.com/deusflow/costanews/internal/news"
	"github.com/deusflow/costanews/internal/publish"
	"github.com/deusflow/costanews/internal/storage"
)

// storeTimeout bounds store writes and counts that run detached from the
// run's cancellation.
const storeTimeout = 5 * time.Second

type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []news.RawItem
}

type ItemFilter interface {
	Filter(ctx context.Context, items []news.RawItem, keywords []string) ([]news.RawItem, filter.Stats)
	MarkPublished(ctx context.Context, item news.RawItem) error
}

type ImageResolver interface {
	Resolve(ctx context.Context, item news.RawItem) (images.Resolution, bool)
}

type Summarizer interface {
	Process(ctx context.Context, item news.RawItem, region news.Region) (news.ProcessedPost, bool)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, post news.ProcessedPost) (bool, publish.Mode)
}

// Deps are the pipeline stages. Store is only used to report the size of
// the published set and may be nil.
type Deps struct {
	Fetcher    Fetcher
	Filter     ItemFilter
	Images     ImageResolver
	Summarizer Summarizer
	Publisher  Publisher
	Store      storage.Store
}

type Options struct {
	Regions           []news.Region
	MaxPostsPerRegion int
	ItemPause         time.Duration
	RegionPause       time.Duration
	Schedule          string
}

// RegionReport summarises one region of a run.
type RegionReport struct {
	Region     string
	Fetched    int
	Filter     filter.Stats
	Attempted  int
	Rejected   int
	Published  int
	Failed     int
	Unrecorded int // published but not added to the published set
}

// Report summarises one run over all regions.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Regions  []RegionReport
}

func (r Report) Published() int {
	n := 0
	for _, rr := range r.Regions {
		n += rr.Published
	}
	return n
}

func (r Report) Unrecorded() int {
	n := 0
	for _, rr := range r.Regions {
		n += rr.Unrecorded
	}
	return n
}

type App struct {
	deps    Deps
	opts    Options
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(deps Deps, opts Options, log *slog.Logger, m *metrics.Metrics) *App {
	return &App{deps: deps, opts: opts, log: log, metrics: m}
}

// RunOnce processes every region in order and returns what happened.
// Cancelling ctx stops the run between items.
func (a *App) RunOnce(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString(), Started: time.Now()}
	log := a.log.With("run_id", report.RunID)
	log.Info("run started", "regions", len(a.opts.Regions))

	for i, region := range a.opts.Regions {
		if ctx.Err() != nil {
			break
		}
		report.Regions = append(report.Regions, a.processRegion(ctx, log.With("region", region.Name), region))

		if i < len(a.opts.Regions)-1 && !sleep(ctx, a.opts.RegionPause) {
			break
		}
	}

	report.Duration = time.Since(report.Started)
	a.metrics.RecordRun(report.Duration)
	if n := report.Unrecorded(); n > 0 {
		a.metrics.SetError(fmt.Sprintf("%d published items could not be recorded", n))
	}
	a.updateStoreSize(ctx, log)

	if ctx.Err() != nil {
		log.Warn("run interrupted", "published", report.Published(), "duration", report.Duration)
	} else {
		log.Info("run finished", "published", report.Published(), "duration", report.Duration)
	}
	return report
}

func (a *App) processRegion(ctx context.Context, log *slog.Logger, region news.Region) RegionReport {
	rr := RegionReport{Region: region.Name}

	raw := a.deps.Fetcher.FetchAll(ctx, region.Sources)
	rr.Fetched = len(raw)
	a.metrics.ItemsFetched.WithLabelValues(region.Name).Add(float64(len(raw)))
	log.Info("fetched items", "count", len(raw))

	filtered, stats := a.deps.Filter.Filter(ctx, raw, region.Keywords)
	rr.Filter = stats
	a.recordFilter(stats)
	log.Info("filtered items", "kept", stats.Kept, "duplicates", stats.Duplicates, "spam", stats.Spam, "irrelevant", stats.Irrelevant)

	if len(filtered) > a.opts.MaxPostsPerRegion {
		filtered = filtered[:a.opts.MaxPostsPerRegion]
	}

	for _, item := range filtered {
		if ctx.Err() != nil {
			break
		}
		rr.Attempted++

		if item.ImageURL == "" {
			if res, ok := a.deps.Images.Resolve(ctx, item); ok {
				item.ImageURL = res.URL
			}
		}

		post, ok := a.deps.Summarizer.Process(ctx, item, region)
		if !ok {
			rr.Rejected++
			continue
		}

		published, mode := a.deps.Publisher.Publish(ctx, region.Channel, post)
		if !published {
			rr.Failed++
			a.metrics.PublishFailures.WithLabelValues(region.Name).Inc()
			continue
		}
		rr.Published++
		a.metrics.PostsPublished.WithLabelValues(region.Name, string(mode)).Inc()

		if err := a.markPublished(ctx, item); err != nil {
			log.Error("failed to record published item, it may be reposted", "link", item.Link, "error", err)
			rr.Unrecorded++
		}

		if !sleep(ctx, a.opts.ItemPause) {
			break
		}
	}

	log.Info("region done", "published", rr.Published, "failed", rr.Failed, "rejected", rr.Rejected)
	return rr
}

// markPublished records a delivered item even when ctx was cancelled after
// the send went through.
func (a *App) markPublished(ctx context.Context, item news.RawItem) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	return a.deps.Filter.MarkPublished(ctx, item)
}

func (a *App) recordFilter(s filter.Stats) {
	a.metrics.FilterOutcomes.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	a.metrics.FilterOutcomes.WithLabelValues("spam").Add(float64(s.Spam))
	a.metrics.FilterOutcomes.WithLabelValues("irrelevant").Add(float64(s.Irrelevant))
	a.metrics.FilterOutcomes.WithLabelValues("kept").Add(float64(s.Kept))
}

func (a *App) updateStoreSize(ctx context.Context, log *slog.Logger) {
	if a.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	n, err := a.deps.Store.Count(ctx)
	if err != nil {
		log.Warn("failed to count published set", "error", err)
		return
	}
	a.metrics.PublishedSetSize.Set(float64(n))
}

// Serve runs once immediately and then on the configured schedule until ctx
// is cancelled. A run still in progress when the next one is due is not
// overlapped; the next tick is skipped.
func (a *App) Serve(ctx context.Context) error {
	cl := cronLogger{log: a.log}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(a.opts.Schedule, func() { a.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.opts.Schedule, err)
	}

	a.RunOnce(ctx)

	c.Start()
	a.log.Info("scheduler started", "schedule", a.opts.Schedule)

	<-ctx.Done()
	a.log.Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// sleep waits for d or until ctx is done. It reports whether the full
// pause elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

func (a *App) Metrics() *metrics.Metrics { return a.metrics }
