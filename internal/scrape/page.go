// Package scrape drives browser-based acquisition: resolving a product's
// reviews page, extracting the reviews on it and paging until the date window
// is exhausted.
package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Page is one browser tab. A Page is driven from a single goroutine; every
// method is a suspension point.
type Page interface {
	// Navigate loads url and waits for the document to settle.
	Navigate(ctx context.Context, url string) error

	// URL returns the current location after redirects.
	URL() string

	// HTML returns the rendered document.
	HTML(ctx context.Context) ([]byte, error)

	// WaitFor waits up to timeout for any selector to match and returns the
	// first one that did. A timeout is not an error.
	WaitFor(ctx context.Context, selectors []string, timeout time.Duration) (string, bool)

	// Click clicks the first element matching t. It reports false when no
	// element matched.
	Click(ctx context.Context, t sources.Target) (bool, error)

	// Type focuses the first element matching selector and types text one
	// character at a time.
	Type(ctx context.Context, selector, text string) error

	// Submit presses Enter in the focused element.
	Submit(ctx context.Context) error

	// Wander moves the pointer and scrolls in randomized segments.
	Wander(ctx context.Context)

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Job is the immutable context of one acquisition. It is passed by value
// through every stage.
type Job struct {
	Profile    *sources.Profile
	Company    string
	Slug       string
	ProductURL string
	Window     types.Window
	Debug      bool
}

// NewJob builds the job for a validated request.
func NewJob(p *sources.Profile, req types.Request) Job {
	return Job{
		Profile:    p,
		Company:    strings.TrimSpace(req.Company),
		Slug:       sources.Slugify(req.Company),
		ProductURL: strings.TrimSpace(req.ProductURL),
		Window:     req.Window(),
		Debug:      req.Debug,
	}
}

// Capture reads the page into a snapshot.
func Capture(ctx context.Context, p Page) (*types.Snapshot, error) {
	body, err := p.HTML(ctx)
	if err != nil {
		return nil, &types.FetchError{URL: p.URL(), Err: err}
	}
	return types.NewSnapshot(p.URL(), body), nil
}

// BlockMarkers are lowercase phrases that show up on challenge and denial
// pages.
var BlockMarkers = []string{
	"access denied",
	"captcha",
	"unusual activity",
	"bot detected",
	"are you a robot",
	"verify you are human",
	"request blocked",
	"pardon our interruption",
	"attention required",
	"too many requests",
}

// BlockMarker returns the first block marker found in the snapshot's title or
// visible text.
func BlockMarker(snap *types.Snapshot) (string, bool) {
	doc, err := snap.Document()
	if err != nil {
		return "", false
	}
	text := strings.ToLower(doc.Find("title").Text() + "\n" + parser.BlockText(doc.Find("body")))
	for _, m := range BlockMarkers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}
