// Package reviewgoat provides a public SDK for embedding ReviewGoat as a library.
//
// Example usage:
//
//	client := reviewgoat.New(
//	    reviewgoat.WithAPIToken(os.Getenv("G2_TOKEN")),
//	    reviewgoat.WithOutput("json", "./outputs"),
//	)
//
//	res, err := client.Scrape(ctx, reviewgoat.Request{
//	    Source:  reviewgoat.G2,
//	    Company: "Acme CRM",
//	    Start:   reviewgoat.MustDate("2025-06-01"),
//	    End:     reviewgoat.MustDate("2025-06-30"),
//	    Mode:    reviewgoat.ModeAPI,
//	})
//	path, err := client.Save(ctx, res)
package reviewgoat

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Re-exported data types.
type (
	Request = types.Request
	Result  = types.ScrapeResult
	Review  = types.Review
	Meta    = types.Meta
	Date    = types.Date
	Source  = types.Source
	Mode    = types.Mode
)

// Sources.
const (
	G2          = types.SourceG2
	Capterra    = types.SourceCapterra
	TrustRadius = types.SourceTrustRadius
)

// Acquisition modes.
const (
	ModeBrowser  = types.ModeBrowser
	ModeAPI      = types.ModeAPI
	ModeCrawler  = types.ModeCrawler
	ModeSnapshot = types.ModeSnapshot
)

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) { return types.ParseDate(s) }

// MustDate is ParseDate for literals.
func MustDate(s string) Date { return types.MustDate(s) }

// ExitCode maps a Scrape error to the CLI exit codes.
func ExitCode(err error) int { return types.ExitCode(err) }

// Client is the high-level API for using ReviewGoat as a library.
type Client struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the default configuration. Later options still apply.
func WithConfig(cfg *config.Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// WithLogger sets the logger. The default logs warnings to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithVerbose enables debug-level logging on stderr.
func WithVerbose() Option {
	return func(c *Client) {
		c.logger = observability.NewLogger(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, true)
	}
}

// WithOutput sets the file format and directory used by Save.
func WithOutput(format, dir string) Option {
	return func(c *Client) {
		c.cfg.Storage.Types = []string{format}
		c.cfg.Storage.OutputPath = dir
	}
}

// WithAPIToken sets the data API token used in api mode.
func WithAPIToken(token string) Option {
	return func(c *Client) { c.cfg.API.Token = token }
}

// WithCrawlerToken sets the crawling service token used in crawler mode.
func WithCrawlerToken(token string) Option {
	return func(c *Client) { c.cfg.Crawler.Token = token }
}

// WithHeadless toggles headless browser mode.
func WithHeadless(headless bool) Option {
	return func(c *Client) { c.cfg.Browser.Headless = headless }
}

// WithPolitenessDelay sets the pause between page loads.
func WithPolitenessDelay(d time.Duration) Option {
	return func(c *Client) { c.cfg.Scrape.PolitenessDelay = d }
}

// WithMaxPages caps the pages visited per run.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.cfg.Scrape.MaxPages = n }
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	c.engine = engine.New(c.cfg, c.logger)
	return c
}

// Scrape runs one request and returns the normalized result.
func (c *Client) Scrape(ctx context.Context, req Request) (*Result, error) {
	return c.engine.Run(ctx, req)
}

// Save persists res to the configured storage and returns its location.
func (c *Client) Save(ctx context.Context, res *Result) (string, error) {
	store, err := storage.New(ctx, c.cfg.Storage, c.logger)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Store(ctx, res)
}

// Stats returns engine counters for the runs made by this client.
func (c *Client) Stats() map[string]any {
	return c.engine.Stats().Snapshot()
}
