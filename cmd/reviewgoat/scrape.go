package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// requestFlags are shared by "scrape" and "snapshot parse".
type requestFlags struct {
	company      string
	start        string
	end          string
	source       string
	productURL   string
	mode         string
	apiToken     string
	crawlerToken string
	snapshot     string
	limit        int
	debug        bool
	headless     bool

	output   string
	format   string
	table    bool
	strict   bool
	noOutput bool
}

var errStrict = errors.New("rejected in strict mode")

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.company, "company", "", "company or product name")
	fs.StringVar(&f.start, "start", "", "window start date YYYY-MM-DD")
	fs.StringVar(&f.end, "end", "", "window end date YYYY-MM-DD")
	fs.StringVarP(&f.source, "source", "s", "g2", "g2 | capterra | trustradius (aliases accepted)")
	fs.StringVar(&f.productURL, "product-url", "", "product or reviews URL, skips discovery")
	fs.IntVar(&f.limit, "limit", 0, "keep at most this many reviews after filtering (0 = all)")
	fs.BoolVar(&f.debug, "debug", false, "keep invalid samples and capture debug artifacts on failure")
	fs.BoolVar(&f.headless, "headless", true, "run the browser headless (--headless=false to watch)")

	fs.StringVarP(&f.output, "output", "o", "", "output directory (default storage.output_path)")
	fs.StringVarP(&f.format, "format", "f", "", "output format: json, yaml, csv (default storage.types)")
	fs.BoolVar(&f.table, "table", false, "print the reviews as a table")
	fs.BoolVar(&f.strict, "strict", false, "exit 3 when any record failed validation")
	fs.BoolVar(&f.noOutput, "no-output", false, "do not persist the result")
}

// request builds the engine request. Dates and identifiers are parsed here so
// a malformed flag is reported before any network activity.
func (f *requestFlags) request(cmd *cobra.Command) (types.Request, error) {
	req := types.Request{
		Company:      strings.TrimSpace(f.company),
		ProductURL:   f.productURL,
		APIToken:     f.apiToken,
		CrawlerToken: f.crawlerToken,
		SnapshotPath: f.snapshot,
		Limit:        f.limit,
		Debug:        f.debug,
	}

	var err error
	if req.Source, err = types.ParseSource(f.source); err != nil {
		return req, err
	}
	if req.Mode, err = types.ParseMode(f.mode); err != nil {
		return req, err
	}
	if req.Start, err = parseDateFlag("start", f.start); err != nil {
		return req, err
	}
	if req.End, err = parseDateFlag("end", f.end); err != nil {
		return req, err
	}
	if f.limit < 0 {
		return req, &types.ConfigurationError{Field: "limit", Message: "must be >= 0"}
	}
	if cmd.Flags().Changed("headless") {
		headless := f.headless
		req.Headless = &headless
	}
	return req, nil
}

func parseDateFlag(name, value string) (types.Date, error) {
	if strings.TrimSpace(value) == "" {
		return types.Date{}, &types.ConfigurationError{Field: name, Message: "--" + name + " is required"}
	}
	d, err := types.ParseDate(value)
	if err != nil {
		return types.Date{}, &types.ConfigurationError{Field: name, Message: err.Error(), Err: err}
	}
	return d, nil
}

// applyOutput applies --output and --format to the storage config.
func (f *requestFlags) applyOutput(cfg *config.Config) {
	if f.output != "" {
		cfg.Storage.OutputPath = f.output
	}
	if f.format != "" {
		cfg.Storage.Types = []string{strings.ToLower(f.format)}
	}
}

var scrapeFlags requestFlags

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Collect reviews for a company inside a date window",
		Example: `  reviewgoat scrape --company "Acme CRM" --start 2025-06-01 --end 2025-06-30
  reviewgoat scrape --company acme --source capterra --start 2025-01-01 --end 2025-03-31 --table
  reviewgoat scrape --company acme --mode api --api-token $TOKEN --start 2025-06-01 --end 2025-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, &scrapeFlags)
		},
	}

	scrapeFlags.register(cmd.Flags())
	cmd.Flags().StringVar(&scrapeFlags.mode, "mode", "browser", "browser | api | crawler | snapshot")
	cmd.Flags().StringVar(&scrapeFlags.apiToken, "api-token", "", "data API token (default api.token)")
	cmd.Flags().StringVar(&scrapeFlags.crawlerToken, "crawler-token", "", "crawling service token (default crawler.token)")
	cmd.Flags().StringVar(&scrapeFlags.snapshot, "snapshot", "", "saved HTML page for snapshot mode")
	return cmd
}

func runScrape(cmd *cobra.Command, f *requestFlags) error {
	req, err := f.request(cmd)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	f.applyOutput(cfg)

	eng := engine.New(cfg, logger)
	fmt.Fprintf(cmd.ErrOrStderr(), "Scraping %s from %s between %s and %s ...\n",
		displayCompany(req), req.Source, req.Start, req.End)

	res, err := eng.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := res.Validate(); err != nil {
		return err
	}

	if !f.noOutput {
		store, err := storage.New(cmd.Context(), cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		loc, err := store.Store(cmd.Context(), res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d validated reviews to %s\n", len(res.Reviews), loc)
	}

	if f.table {
		renderReviews(cmd.OutOrStdout(), res)
	}
	if verbose && len(res.Reviews) > 0 {
		logger.Debug("first review", "review", res.Reviews[0])
	}

	if f.strict && res.Meta.InvalidReviews > 0 {
		return &types.RecordValidationError{Field: "reviews", Value: res.Meta.InvalidReviews, Reason: errStrict}
	}
	return nil
}

func displayCompany(req types.Request) string {
	if req.Company != "" {
		return req.Company
	}
	return req.ProductURL
}

const titleWidth = 60

// renderReviews prints the reviews and the run summary as tables.
func renderReviews(w io.Writer, res *types.ScrapeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Date", "Rating", "Title", "Reviewer"})
	for i, r := range res.Reviews {
		date, rating := "-", "-"
		if r.Date != nil {
			date = r.Date.String()
		}
		if r.Rating != nil {
			rating = fmt.Sprintf("%.1f", *r.Rating)
		}
		t.AppendRow(table.Row{i + 1, date, rating, truncate(r.Title, titleWidth), r.ReviewerName})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d kept / %d raw / %d invalid",
		res.Meta.ReviewsFound, res.Meta.RawReviewsCount, res.Meta.InvalidReviews), ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
