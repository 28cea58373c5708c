package acquire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/fetcher"
	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// SnapshotParser reads reviews from a saved page using embedded structured
// data only. CSS heuristics need a live page and are not attempted.
type SnapshotParser struct {
	structured *parser.StructuredReviewExtractor
	fetcher    fetcher.Fetcher
	logger     *slog.Logger
}

// NewSnapshotParser creates a parser. f is optional; with it, http(s)
// targets are downloaded instead of read from disk.
func NewSnapshotParser(f fetcher.Fetcher, logger *slog.Logger) *SnapshotParser {
	return &SnapshotParser{
		structured: parser.NewStructuredReviewExtractor(logger),
		fetcher:    f,
		logger:     logger.With("component", "snapshot_parser"),
	}
}

// Acquire loads t.URL and extracts its structured reviews.
func (s *SnapshotParser) Acquire(ctx context.Context, t Target) (*Result, error) {
	snap, err := s.Load(ctx, t.URL)
	if err != nil {
		return nil, err
	}
	records, err := s.Parse(snap)
	if err != nil {
		return nil, err
	}
	return &Result{Records: records, Pages: 1, URL: snap.URL}, nil
}

// Load reads a snapshot from disk, or over HTTP when path is a URL and a
// fetcher is configured.
func (s *SnapshotParser) Load(ctx context.Context, path string) (*types.Snapshot, error) {
	if path == "" {
		return nil, &types.ConfigurationError{Field: "snapshot_path", Message: "required for snapshot mode"}
	}
	if IsRemote(path) {
		if s.fetcher == nil {
			return nil, &types.ConfigurationError{Field: "snapshot_path", Message: "remote snapshots need a fetcher"}
		}
		return s.fetcher.Fetch(ctx, path)
	}

	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &types.ConfigurationError{Field: "snapshot_path", Message: fmt.Sprintf("%v: %s", types.ErrSnapshotMissing, path), Err: types.ErrSnapshotMissing}
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap := types.NewSnapshot("", body)
	if st, err := os.Stat(path); err == nil {
		snap.CapturedAt = st.ModTime()
	}
	return snap, nil
}

// Parse extracts the structured reviews of a loaded snapshot.
func (s *SnapshotParser) Parse(snap *types.Snapshot) ([]types.RawRecord, error) {
	doc, err := snap.Document()
	if err != nil {
		return nil, err
	}
	records := s.structured.Extract(doc)
	s.logger.Debug("snapshot parsed", "url", snap.URL, "records", len(records), "meta", parser.PageMeta(doc))
	return records, nil
}

// Close releases the fetcher, if any.
func (s *SnapshotParser) Close() error {
	if s.fetcher == nil {
		return nil
	}
	return s.fetcher.Close()
}

// IsRemote reports whether a snapshot path names an HTTP(S) URL.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
