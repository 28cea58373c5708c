package observability

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Metrics holds the Prometheus collectors of one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scrapes       *prometheus.CounterVec
	scrapeLatency *prometheus.HistogramVec
	reviews       *prometheus.CounterVec
	pages         *prometheus.CounterVec
	stored        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec

	logger *slog.Logger
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scrapes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "reviewgoat", Name: "scrapes_total", Help: "Acquisition runs by outcome."},
			[]string{"source", "mode", "outcome"},
		),
		scrapeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reviewgoat", Name: "scrape_duration_seconds",
				Help:    "Acquisition run duration seconds.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"source", "mode"},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "reviewgoat", Name: "reviews_total", Help: "Review records by stage."},
			[]string{"source", "stage"}, // stage: raw|invalid|kept
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "reviewgoat", Name: "pages_visited_total", Help: "Review pages read."},
			[]string{"source"},
		),
		stored: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "reviewgoat", Name: "results_stored_total", Help: "Persisted results by backend."},
			[]string{"backend", "status"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "reviewgoat", Name: "http_requests_total", Help: "HTTP requests."},
			[]string{"route", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reviewgoat", Name: "http_request_duration_seconds",
				Help:    "HTTP request duration seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.scrapes, m.scrapeLatency, m.reviews, m.pages, m.stored, m.httpRequests, m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// ObserveScrape records the end of one acquisition run.
func (m *Metrics) ObserveScrape(source types.Source, mode types.Mode, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(string(source), string(mode), Outcome(err)).Inc()
	m.scrapeLatency.WithLabelValues(string(source), string(mode)).Observe(dur.Seconds())
}

// ObserveResult records the counts of a finished run.
func (m *Metrics) ObserveResult(res *types.ScrapeResult) {
	if m == nil || res == nil {
		return
	}
	src := string(res.Source)
	m.reviews.WithLabelValues(src, "raw").Add(float64(res.Meta.RawReviewsCount))
	m.reviews.WithLabelValues(src, "invalid").Add(float64(res.Meta.InvalidReviews))
	m.reviews.WithLabelValues(src, "kept").Add(float64(res.Meta.ReviewsFound))
	m.pages.WithLabelValues(src).Add(float64(res.Meta.PagesVisited))
}

// ObserveStore records one persistence attempt.
func (m *Metrics) ObserveStore(backend string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.logger.Debug("store failed", "backend", backend, "error", err)
	}
	m.stored.WithLabelValues(backend, status).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// Outcome labels an acquisition error by kind.
func Outcome(err error) string {
	var (
		cfgErr       *types.ConfigurationError
		discoveryErr *types.DiscoveryError
		envErr       *types.ExtractionEnvironmentError
		remoteErr    *types.RemoteServiceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &discoveryErr):
		return "not_found"
	case errors.As(err, &envErr):
		return "environment"
	case errors.As(err, &remoteErr):
		return "remote"
	}
	return "error"
}
