package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// MultiStorage writes to multiple storage backends simultaneously.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to all backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (m *MultiStorage) Name() string {
	names := make([]string, len(m.backends))
	for i, b := range m.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, "+")
}

// Store writes to every backend and returns the locations joined by ", ".
// A failing backend does not stop the others.
func (m *MultiStorage) Store(ctx context.Context, res *types.ScrapeResult) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, b := range m.backends {
		loc, err := b.Store(ctx, res)
		if err != nil {
			m.logger.Warn("backend store failed", "backend", b.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), errors.Join(errs...)
}

func (m *MultiStorage) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
