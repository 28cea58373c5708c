package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/dates"
	"github.com/IshaanNene/ReviewGoat/internal/pipeline"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

type state int

const (
	stateExtracting state = iota
	stateFiltering
	stateDeciding
	stateAdvancing
	stateDone
)

func (s state) String() string {
	switch s {
	case stateExtracting:
		return "extracting"
	case stateFiltering:
		return "filtering"
	case stateDeciding:
		return "deciding"
	case stateAdvancing:
		return "advancing"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is what a controller run produced.
type Outcome struct {
	// Records are the kept raw records in arrival order.
	Records []types.RawRecord

	// RawCount counts new records extracted before date filtering.
	RawCount int

	Pages       int
	ResolvedURL string
	Navigation  string
	Extraction  string
	StopReason  string
}

// Controller runs the extract, filter, decide, advance loop over one page.
type Controller struct {
	page     Page
	nav      *Navigator
	cfg      *config.Config
	dates    *dates.Parser
	logger   *slog.Logger
	debugDir string

	// sleep waits between page advances.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller driving page.
func NewController(page Page, cfg *config.Config, logger *slog.Logger) *Controller {
	debugDir := cfg.Browser.DebugDir
	if debugDir == "" {
		debugDir = filepath.Join(cfg.Storage.OutputPath, "debug")
	}
	return &Controller{
		page:     page,
		nav:      NewNavigator(page, cfg.Scrape, logger),
		cfg:      cfg,
		dates:    &dates.Parser{},
		logger:   logger.With("component", "controller"),
		debugDir: debugDir,
		sleep:    sleepCtx,
	}
}

// Run resolves the reviews page and pages through it until a stop condition
// fires. Only navigation and page-load failures are returned as errors.
func (c *Controller) Run(ctx context.Context, job Job) (*Outcome, error) {
	resolved, via, err := c.nav.Resolve(ctx, job)
	if err != nil {
		c.captureArtifacts(ctx, job, "navigate")
		return nil, err
	}
	if c.page.URL() != resolved {
		if err := c.page.Navigate(ctx, resolved); err != nil {
			c.captureArtifacts(ctx, job, "load")
			return nil, &types.FetchError{URL: resolved, Err: err}
		}
	}

	out := &Outcome{ResolvedURL: resolved, Navigation: via}
	extractor := NewExtractor(job.Profile, c.logger)
	pipe := pipeline.Default(c.logger)
	filter := WindowFilter{Window: job.Window, KeepUndated: c.cfg.Scrape.KeepUndated, Dates: c.dates}
	ordering := c.cfg.Scrape.OrderingFor(string(job.Profile.Source))

	var (
		fresh   []types.RawRecord
		verdict Verdict
	)

	st := stateExtracting
	for st != stateDone {
		c.logger.Debug("state", "state", st, "page", out.Pages)

		switch st {
		case stateExtracting:
			c.page.WaitFor(ctx, job.Profile.Layout.Containers, c.cfg.Scrape.WaitTimeout)
			snap, err := Capture(ctx, c.page)
			if err != nil {
				c.logger.Warn("page read failed", "error", err)
				c.captureArtifacts(ctx, job, "extract")
				out.StopReason = "page read failed"
				st = stateDone
				continue
			}
			out.Pages++

			raw, strategy := extractor.Extract(ctx, snap)
			if out.Extraction == "" {
				out.Extraction = strategy
			}
			fresh = pipe.ProcessAll(raw)
			if len(fresh) == 0 {
				if out.Pages == 1 {
					c.captureArtifacts(ctx, job, "empty")
				}
				out.StopReason = "no new reviews"
				st = stateDone
				continue
			}
			out.RawCount += len(fresh)
			st = stateFiltering

		case stateFiltering:
			verdict = filter.Apply(fresh)
			out.Records = append(out.Records, verdict.Kept...)
			c.logger.Info("page processed",
				"page", out.Pages,
				"extracted", len(fresh),
				"kept", len(verdict.Kept),
				"dated", verdict.Dated,
				"older", verdict.Older,
			)
			st = stateDeciding

		case stateDeciding:
			switch {
			case ordering == config.OrderingNewestFirst && verdict.PastWindow():
				out.StopReason = "past date window"
				st = stateDone
			case c.cfg.Scrape.MaxPages > 0 && out.Pages >= c.cfg.Scrape.MaxPages:
				out.StopReason = "max pages reached"
				st = stateDone
			default:
				st = stateAdvancing
			}

		case stateAdvancing:
			if !c.advance(ctx, job) {
				out.StopReason = "no next page"
				st = stateDone
				continue
			}
			if err := c.sleep(ctx, c.cfg.Scrape.PolitenessDelay); err != nil {
				return out, err
			}
			st = stateExtracting
		}
	}

	c.logger.Info("paging finished",
		"pages", out.Pages,
		"raw", out.RawCount,
		"kept", len(out.Records),
		"reason", out.StopReason,
	)
	return out, nil
}

// advance clicks the first next-page target present.
func (c *Controller) advance(ctx context.Context, job Job) bool {
	for _, t := range job.Profile.NextTargets {
		clicked, err := c.page.Click(ctx, t)
		if err != nil {
			c.logger.Debug("next target failed", "target", t.String(), "error", err)
			continue
		}
		if clicked {
			c.logger.Debug("advanced", "target", t.String())
			return true
		}
	}
	return false
}

// captureArtifacts writes the page HTML and a screenshot for post-mortem
// debugging. It only runs for debug jobs and never fails the run.
func (c *Controller) captureArtifacts(ctx context.Context, job Job, stage string) {
	if !job.Debug {
		return
	}
	if err := os.MkdirAll(c.debugDir, 0755); err != nil {
		c.logger.Warn("debug dir", "error", err)
		return
	}
	base := filepath.Join(c.debugDir, fmt.Sprintf("%s-%s-%s-%d", job.Profile.Source, job.Slug, stage, time.Now().Unix()))

	if body, err := c.page.HTML(ctx); err == nil {
		if err := os.WriteFile(base+".html", body, 0644); err != nil {
			c.logger.Warn("debug html", "error", err)
		}
	}
	if png, err := c.page.Screenshot(ctx); err == nil {
		if err := os.WriteFile(base+".png", png, 0644); err != nil {
			c.logger.Warn("debug screenshot", "error", err)
		}
	}
	c.logger.Info("debug artifacts written", "path", base)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
