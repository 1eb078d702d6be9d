package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "costanews"

// Metrics holds the pipeline counters and the last-run health status.
type Metrics struct {
	ItemsFetched     *prometheus.CounterVec
	FilterOutcomes   *prometheus.CounterVec
	Translations     *prometheus.CounterVec
	Summaries        *prometheus.CounterVec
	PostsPublished   *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec
	Runs             prometheus.Counter
	RunDuration      prometheus.Histogram
	PublishedSetSize prometheus.Gauge

	registry prometheus.Gatherer

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastDuration  time.Duration
	lastErrorTime time.Time
	lastError     string
	isHealthy     bool
}

// New registers all collectors on reg. Use a fresh prometheus.NewRegistry()
// per test to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ItemsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Feed items fetched, by region",
		}, []string{"region"}),
		FilterOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_outcomes_total",
			Help:      "Filter decisions by outcome (duplicate, spam, irrelevant, kept)",
		}, []string{"outcome"}),
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation calls by outcome (translated, fallback)",
		}, []string{"outcome"}),
		Summaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarizer results by outcome (ok, rejected)",
		}, []string{"outcome"}),
		PostsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_published_total",
			Help:      "Posts delivered, by region and delivery mode",
		}, []string{"region", "mode"}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Posts that could not be delivered, by region",
		}, []string{"region"}),
		Runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pass over all regions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		PublishedSetSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_set_size",
			Help:      "Fingerprints in the published set",
		}),
		registry:  reg,
		isHealthy: true,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.Runs.Inc()
	m.RunDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.lastDuration = duration
	m.isHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.isHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy
}

// GetStats is the health snapshot served on /health.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"is_healthy":           m.isHealthy,
		"last_run_duration_ms": m.lastDuration.Milliseconds(),
		"last_error":           m.lastError,
	}
	if !m.lastRunTime.IsZero() {
		stats["last_run_time"] = m.lastRunTime.Format(time.RFC3339)
	}
	if !m.lastErrorTime.IsZero() {
		stats["last_error_time"] = m.lastErrorTime.Format(time.RFC3339)
	}
	return stats
}
