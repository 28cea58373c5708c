package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Navigator resolves the reviews page of a product.
type Navigator struct {
	page   Page
	cfg    config.ScrapeConfig
	logger *slog.Logger
}

// NewNavigator creates a navigator driving page.
func NewNavigator(page Page, cfg config.ScrapeConfig, logger *slog.Logger) *Navigator {
	return &Navigator{
		page:   page,
		cfg:    cfg,
		logger: logger.With("component", "navigator"),
	}
}

// Resolve returns the reviews URL for the job and the name of the strategy
// that found it. When every strategy fails it returns a *types.DiscoveryError.
func (n *Navigator) Resolve(ctx context.Context, job Job) (string, string, error) {
	strategies := []Strategy[string]{
		{Name: "explicit", Attempt: func(ctx context.Context) (string, error) { return n.explicit(job) }},
		{Name: "direct-guess", Attempt: func(ctx context.Context) (string, error) { return n.directGuess(ctx, job) }},
		{Name: "interactive", Attempt: func(ctx context.Context) (string, error) { return n.interactive(ctx, job) }},
		{Name: "search", Attempt: func(ctx context.Context) (string, error) { return n.search(ctx, job) }},
	}

	resolved, via, err := FirstSuccess(ctx, n.logger, "navigate", strategies)
	if err != nil {
		var attempts *AttemptsError
		if !errors.As(err, &attempts) {
			return "", "", err
		}
		return "", "", &types.DiscoveryError{
			Source:  job.Profile.Source,
			Company: job.Company,
			Tried:   attempts.Tried(),
			Err:     err,
		}
	}

	n.logger.Info("reviews page resolved", "source", job.Profile.Source, "url", resolved, "strategy", via)
	return resolved, via, nil
}

func (n *Navigator) explicit(job Job) (string, error) {
	if job.ProductURL == "" {
		return "", ErrDeclined
	}
	return job.Profile.NormalizeReviewsURL(job.ProductURL), nil
}

func (n *Navigator) directGuess(ctx context.Context, job Job) (string, error) {
	if job.Profile.ReviewsURL == nil || job.Slug == "" {
		return "", ErrDeclined
	}
	target := job.Profile.ReviewsURL(job.Slug)
	if err := n.page.Navigate(ctx, target); err != nil {
		return "", err
	}
	if err := n.verifyReviewsPage(ctx, job); err != nil {
		return "", err
	}
	return n.landed(target), nil
}

// interactive walks the site like a visitor: home page, search box, first
// plausible result, reviews tab.
func (n *Navigator) interactive(ctx context.Context, job Job) (string, error) {
	p := job.Profile
	if len(p.SearchInputs) == 0 || job.Company == "" {
		return "", ErrDeclined
	}

	if err := n.page.Navigate(ctx, p.HomeURL); err != nil {
		return "", err
	}
	if err := n.checkBlocked(ctx); err != nil {
		return "", err
	}
	n.page.Wander(ctx)

	input, ok := n.page.WaitFor(ctx, p.SearchInputs, n.cfg.WaitTimeout)
	if !ok {
		return "", errors.New("no search field on home page")
	}
	if err := n.page.Type(ctx, input, job.Company); err != nil {
		return "", fmt.Errorf("typing query: %w", err)
	}
	if err := n.page.Submit(ctx); err != nil {
		return "", fmt.Errorf("submitting query: %w", err)
	}

	n.page.WaitFor(ctx, p.ResultLinks, n.cfg.WaitTimeout)
	if err := n.checkBlocked(ctx); err != nil {
		return "", err
	}

	snap, err := Capture(ctx, n.page)
	if err != nil {
		return "", err
	}
	doc, err := snap.Document()
	if err != nil {
		return "", err
	}
	pick, ok := n.plausibleResult(doc, p.ResultLinks, snap.URL, job)
	if !ok {
		return "", errors.New("no plausible search result")
	}

	clicked, err := n.page.Click(ctx, sources.Target{CSS: pick.selector, Text: "^\\s*" + regexp.QuoteMeta(pick.Text)})
	if err != nil || !clicked {
		if err := n.page.Navigate(ctx, pick.URL); err != nil {
			return "", err
		}
	}
	if err := n.checkBlocked(ctx); err != nil {
		return "", err
	}
	n.page.Wander(ctx)

	tabbed := false
	for _, t := range p.ReviewsTab {
		if ok, err := n.page.Click(ctx, t); err == nil && ok {
			tabbed = true
			break
		}
	}
	if !tabbed {
		if err := n.page.Navigate(ctx, p.NormalizeReviewsURL(n.page.URL())); err != nil {
			return "", err
		}
	}

	if err := n.verifyReviewsPage(ctx, job); err != nil {
		return "", err
	}
	return n.landed(""), nil
}

type result struct {
	Candidate
	selector string
}

// plausibleResult picks the first result link whose text is close enough to
// the company name, else the first link into a product page.
func (n *Navigator) plausibleResult(doc *goquery.Document, selectors []string, base string, job Job) (result, bool) {
	want := strings.ToLower(job.Company)
	var fallback *result

	for _, sel := range selectors {
		for _, c := range Candidates(doc, []string{sel}, base, job.Slug, job.Profile.ProductPath) {
			r := result{Candidate: c, selector: sel}
			if c.Text != "" && matchr.JaroWinkler(strings.ToLower(c.Text), want, false) >= n.cfg.MatchThreshold {
				n.logger.Debug("plausible result", "text", c.Text, "url", c.URL)
				return r, true
			}
			if fallback == nil && strings.Contains(c.URL, job.Profile.ProductPath) {
				fallback = &r
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return result{}, false
}

// search tries each search URL template and takes the best-scoring candidate.
// A failed navigation or an empty result page falls through to the next
// template; a block page abandons the search.
func (n *Navigator) search(ctx context.Context, job Job) (string, error) {
	p := job.Profile
	if job.Company == "" || len(p.SearchURLs) == 0 {
		return "", ErrDeclined
	}

	var lastErr error
	for _, tmpl := range p.SearchURLs {
		target := sources.SearchURL(tmpl, job.Company)
		if err := n.page.Navigate(ctx, target); err != nil {
			lastErr = err
			continue
		}
		n.page.WaitFor(ctx, p.CandidateSelectors(job.Slug), n.cfg.WaitTimeout)

		snap, err := Capture(ctx, n.page)
		if err != nil {
			lastErr = err
			continue
		}
		if m, blocked := BlockMarker(snap); blocked {
			return "", fmt.Errorf("%w: %q on %s", types.ErrBlocked, m, target)
		}
		doc, err := snap.Document()
		if err != nil {
			lastErr = err
			continue
		}

		base := snap.URL
		if base == "" {
			base = target
		}
		cands := Candidates(doc, p.CandidateSelectors(job.Slug), base, job.Slug, p.ProductPath)
		if len(cands) == 0 {
			lastErr = fmt.Errorf("no candidate links on %s", target)
			continue
		}
		n.logger.Debug("search candidates", "url", target, "count", len(cands), "best", cands[0].URL, "score", cands[0].Score)
		return p.NormalizeReviewsURL(cands[0].URL), nil
	}

	if lastErr == nil {
		lastErr = types.ErrNotFound
	}
	return "", lastErr
}

// verifyReviewsPage accepts the current page when it is not a block page and
// shows review containers or structured review data.
func (n *Navigator) verifyReviewsPage(ctx context.Context, job Job) error {
	_, found := n.page.WaitFor(ctx, job.Profile.Layout.Containers, n.cfg.WaitTimeout)

	snap, err := Capture(ctx, n.page)
	if err != nil {
		return err
	}
	if m, blocked := BlockMarker(snap); blocked {
		return fmt.Errorf("%w: %q on %s", types.ErrBlocked, m, snap.URL)
	}
	if found {
		return nil
	}

	doc, err := snap.Document()
	if err != nil {
		return err
	}
	if len(parser.NewStructuredReviewExtractor(n.logger).Extract(doc)) > 0 {
		return nil
	}
	return fmt.Errorf("%w: no reviews on %s", types.ErrNotFound, snap.URL)
}

func (n *Navigator) checkBlocked(ctx context.Context) error {
	snap, err := Capture(ctx, n.page)
	if err != nil {
		return err
	}
	if m, blocked := BlockMarker(snap); blocked {
		return fmt.Errorf("%w: %q on %s", types.ErrBlocked, m, snap.URL)
	}
	return nil
}

func (n *Navigator) landed(fallback string) string {
	if u := n.page.URL(); u != "" {
		return u
	}
	return fallback
}
