// Package storage persists scrape results to files, MongoDB, SQLite or Redis.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists one result and returns where it went.
	Store(ctx context.Context, res *types.ScrapeResult) (string, error)

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9\-_.]+`)

// SafeName replaces every run of characters outside [A-Za-z0-9-_.] with one
// underscore and trims underscores from both ends.
func SafeName(s string) string {
	return strings.Trim(unsafeRun.ReplaceAllString(s, "_"), "_")
}

// BaseName is the unique name of a result: {company}-{source}-{start}_{end}.
func BaseName(res *types.ScrapeResult) string {
	return fmt.Sprintf("%s-%s-%s_%s", SafeName(res.Company), res.Source, res.StartDate, res.EndDate)
}

// New opens every backend named in cfg.Types. One backend is returned as is;
// several are wrapped in a MultiStorage.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, t := range cfg.Types {
		var (
			s   Storage
			err error
		)
		switch strings.ToLower(strings.TrimSpace(t)) {
		case FormatJSON, FormatYAML, FormatCSV:
			s, err = NewFileStorage(cfg.OutputPath, strings.ToLower(strings.TrimSpace(t)), logger)
		case "mongodb", "mongo":
			s, err = NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		case "sqlite":
			s, err = NewSQLiteStorage(cfg.SQLitePath, logger)
		case "redis":
			s, err = NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL, logger)
		default:
			err = &types.ConfigurationError{Field: "storage.types", Message: fmt.Sprintf("unsupported storage type %q", t)}
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		backends = append(backends, s)
	}

	switch len(backends) {
	case 0:
		return nil, &types.ConfigurationError{Field: "storage.types", Message: "at least one storage type is required"}
	case 1:
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}
