// Package fetcher downloads pages over plain HTTP for offline parsing.
package fetcher

import (
	"context"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Fetcher retrieves a page as a snapshot.
type Fetcher interface {
	// Fetch retrieves the content at url.
	Fetch(ctx context.Context, url string) (*types.Snapshot, error)

	// Close releases any resources held by the fetcher.
	Close() error
}
