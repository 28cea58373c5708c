// Package acquire holds the acquisition paths that bypass the browser: the
// first-party data API, a managed crawling service and saved page snapshots.
package acquire

import (
	"context"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Target names what to acquire.
type Target struct {
	Source types.Source

	// Slug is the product slug the data API is keyed by.
	Slug string

	// URL is the start page for the crawler, or the snapshot path (or URL)
	// for the snapshot parser.
	URL string
}

// Result is what an acquirer returns.
type Result struct {
	Records []types.RawRecord
	Pages   int
	URL     string
}

// Acquirer returns raw review records for a target.
type Acquirer interface {
	Acquire(ctx context.Context, t Target) (*Result, error)
}
