// Package engine runs one acquisition request end to end: validation, mode
// dispatch, normalization, date filtering and the result envelope.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/ReviewGoat/internal/acquire"
	"github.com/IshaanNene/ReviewGoat/internal/browser"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/dates"
	"github.com/IshaanNene/ReviewGoat/internal/fetcher"
	"github.com/IshaanNene/ReviewGoat/internal/normalize"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/pipeline"
	"github.com/IshaanNene/ReviewGoat/internal/scrape"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Session is a browser page the engine owns for one run.
type Session interface {
	scrape.Page
	Close() error
}

// Launcher starts a browser session.
type Launcher func(ctx context.Context, cfg *config.Config, headless *bool, logger *slog.Logger) (Session, error)

// Stats tracks engine activity since start.
type Stats struct {
	RunsStarted     atomic.Int64
	RunsFailed      atomic.Int64
	ReviewsReturned atomic.Int64
	ActiveRuns      atomic.Int32
	StartTime       time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"runs_started":     s.RunsStarted.Load(),
		"runs_failed":      s.RunsFailed.Load(),
		"reviews_returned": s.ReviewsReturned.Load(),
		"active_runs":      s.ActiveRuns.Load(),
		"uptime":           time.Since(s.StartTime).Round(time.Second).String(),
	}
}

// Engine is the acquisition orchestrator. It holds no per-run state and is
// safe for concurrent use; every run owns its own browser.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	launch  Launcher
	dates   *dates.Parser
	now     func() time.Time
	stats   *Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLauncher replaces the browser launcher.
func WithLauncher(l Launcher) Option {
	return func(e *Engine) { e.launch = l }
}

// WithClock replaces the wall clock used for timestamps and relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.dates = &dates.Parser{Now: now}
	}
}

// New creates an engine.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logger.With("component", "engine"),
		launch: launchBrowser,
		dates:  &dates.Parser{},
		now:    time.Now,
		stats:  &Stats{StartTime: time.Now()},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func launchBrowser(ctx context.Context, cfg *config.Config, headless *bool, logger *slog.Logger) (Session, error) {
	s, err := browser.Launch(ctx, cfg, headless, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Stats returns the engine statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// acquisition is what one mode produced before normalization.
type acquisition struct {
	records  []types.RawRecord
	rawCount int
	pages    int
	url      string
	strategy string
}

// Run executes one request.
func (e *Engine) Run(ctx context.Context, req types.Request) (*types.ScrapeResult, error) {
	started := e.now()
	e.stats.RunsStarted.Add(1)
	e.stats.ActiveRuns.Add(1)
	defer e.stats.ActiveRuns.Add(-1)

	res, err := e.run(ctx, req, started)
	src, _ := types.ParseSource(string(req.Source))
	mode, _ := types.ParseMode(string(req.Mode))
	e.metrics.ObserveScrape(src, mode, err, e.now().Sub(started))
	if err != nil {
		e.stats.RunsFailed.Add(1)
		return nil, err
	}
	e.metrics.ObserveResult(res)
	e.stats.ReviewsReturned.Add(int64(len(res.Reviews)))
	return res, nil
}

func (e *Engine) run(ctx context.Context, req types.Request, started time.Time) (*types.ScrapeResult, error) {
	req, profile, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "source", req.Source, "mode", req.Mode)
	logger.Info("run started", "company", req.Company, "window", req.Window().Start.String()+".."+req.Window().End.String())

	acq, err := e.acquire(ctx, profile, req, logger)
	if err != nil {
		logger.Warn("acquisition failed", "error", err)
		return nil, err
	}

	reviews, invalid, samples := normalize.New(logger, e.dates).NormalizeAll(acq.records)
	filter := scrape.WindowFilter{Window: req.Window(), KeepUndated: e.cfg.Scrape.KeepUndated, Dates: e.dates}
	reviews = filter.Reviews(reviews)
	if req.Limit > 0 && len(reviews) > req.Limit {
		reviews = reviews[:req.Limit]
	}

	finished := e.now()
	res := &types.ScrapeResult{
		Company:   req.Company,
		Source:    req.Source,
		StartDate: req.Start,
		EndDate:   req.End,
		ScrapedAt: types.Timestamp(finished),
		Reviews:   reviews,
		Meta: types.Meta{
			ReviewsFound:    len(reviews),
			RawReviewsCount: acq.rawCount,
			InvalidReviews:  invalid,
			DurationSec:     normalize.Round2(finished.Sub(started).Seconds()),
			Debug:           req.Debug,
			RunID:           runID,
			Mode:            req.Mode,
			PagesVisited:    acq.pages,
			ResolvedURL:     acq.url,
			Strategy:        acq.strategy,
		},
	}
	if req.Debug {
		res.Meta.InvalidSamples = samples
	}

	logger.Info("run complete",
		"reviews", len(reviews),
		"raw", acq.rawCount,
		"invalid", invalid,
		"pages", acq.pages,
		"duration", finished.Sub(started),
	)
	return res, nil
}

// prepare validates req and canonicalizes its source and mode.
func (e *Engine) prepare(req types.Request) (types.Request, *sources.Profile, error) {
	if err := req.Validate(); err != nil {
		return req, nil, err
	}
	req.Source, _ = types.ParseSource(string(req.Source))
	req.Mode, _ = types.ParseMode(string(req.Mode))
	req.Company = strings.TrimSpace(req.Company)

	profile, err := sources.Get(req.Source)
	if err != nil {
		return req, nil, err
	}
	if !profile.SupportsMode(req.Mode) {
		return req, nil, &types.ConfigurationError{
			Field:   "mode",
			Message: fmt.Sprintf("%s does not support %s mode", req.Source, req.Mode),
		}
	}
	if req.Mode == types.ModeSnapshot && strings.TrimSpace(req.SnapshotPath) == "" {
		return req, nil, &types.ConfigurationError{Field: "snapshot_path", Message: "required for snapshot mode"}
	}
	if req.Company == "" {
		req.Company = slugFromURL(req.ProductURL)
	}
	return req, profile, nil
}

func (e *Engine) acquire(ctx context.Context, p *sources.Profile, req types.Request, logger *slog.Logger) (*acquisition, error) {
	if req.Mode == types.ModeBrowser {
		return e.acquireBrowser(ctx, p, req, logger)
	}

	acquirer, target, err := e.acquirer(p, req, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := acquirer.(io.Closer); ok {
		defer c.Close()
	}
	out, err := acquirer.Acquire(ctx, target)
	if err != nil {
		return nil, err
	}

	records := pipeline.Default(logger).ProcessAll(out.Records)
	kept := scrape.WindowFilter{Window: req.Window(), KeepUndated: e.cfg.Scrape.KeepUndated, Dates: e.dates}.Apply(records).Kept
	return &acquisition{
		records:  kept,
		rawCount: len(records),
		pages:    out.Pages,
		url:      out.URL,
		strategy: string(req.Mode),
	}, nil
}

func (e *Engine) acquireBrowser(ctx context.Context, p *sources.Profile, req types.Request, logger *slog.Logger) (*acquisition, error) {
	session, err := e.launch(ctx, e.cfg, req.Headless, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("browser close failed", "error", err)
		}
	}()

	out, err := scrape.NewController(session, e.cfg, logger).Run(ctx, scrape.NewJob(p, req))
	if err != nil {
		return nil, err
	}
	logger.Debug("paging stopped", "reason", out.StopReason, "navigation", out.Navigation)
	return &acquisition{
		records:  out.Records,
		rawCount: out.RawCount,
		pages:    out.Pages,
		url:      out.ResolvedURL,
		strategy: out.Extraction,
	}, nil
}

// acquirer builds the client for a non-browser mode, falling back to
// configured credentials.
func (e *Engine) acquirer(p *sources.Profile, req types.Request, logger *slog.Logger) (acquire.Acquirer, acquire.Target, error) {
	target := acquire.Target{Source: req.Source, Slug: sources.Slugify(req.Company)}

	switch req.Mode {
	case types.ModeAPI:
		token := firstNonEmpty(req.APIToken, e.cfg.API.Token)
		client, err := acquire.NewAPIClient(e.cfg.API, token, logger)
		return client, target, err

	case types.ModeCrawler:
		target.URL = req.ProductURL
		if target.URL == "" && p.ReviewsURL != nil && target.Slug != "" {
			target.URL = p.ReviewsURL(target.Slug)
		}
		if target.URL == "" {
			return nil, target, &types.ConfigurationError{
				Field:   "product_url",
				Message: fmt.Sprintf("required for crawler mode on %s", p.Source),
			}
		}
		token := firstNonEmpty(req.CrawlerToken, e.cfg.Crawler.Token)
		client, err := acquire.NewCrawlerClient(e.cfg.Crawler, token, logger)
		return client, target, err

	case types.ModeSnapshot:
		target.URL = req.SnapshotPath
		f, err := fetcher.NewHTTPFetcher(e.cfg, logger)
		if err != nil {
			return nil, target, err
		}
		return acquire.NewSnapshotParser(f, logger), target, nil
	}
	return nil, target, &types.ConfigurationError{Field: "mode", Message: fmt.Sprintf("unsupported acquisition mode %q", req.Mode)}
}

// slugFromURL returns the product segment of a product URL, or "".
func slugFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && parts[i] != "reviews" {
			return parts[i]
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
