package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStorage keeps results and their reviews in two tables.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStorage opens the database file and applies pending migrations.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path == "" {
		return nil, &types.ConfigurationError{Field: "storage.sqlite_path", Message: "required for sqlite storage"}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	db.SetMaxOpenConns(1)

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}

	s := &SQLiteStorage{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_storage"),
	}
	s.logger.Debug("sqlite storage ready", "path", path, "schema_version", version)
	return s, nil
}

func runMigrations(db *sql.DB) (uint, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("migration version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

// DB exposes the underlying handle for queries.
func (s *SQLiteStorage) DB() *sql.DB { return s.db }

// Store inserts the result row and one row per review in a transaction.
func (s *SQLiteStorage) Store(ctx context.Context, res *types.ScrapeResult) (string, error) {
	meta, err := json.Marshal(res.Meta)
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer tx.Rollback()

	out, err := tx.ExecContext(ctx, `
		INSERT INTO scrape_results (run_id, result_key, company, source, start_date, end_date,
			scraped_at, reviews_found, raw_reviews, invalid_reviews, duration_sec, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Meta.RunID, BaseName(res), res.Company, string(res.Source),
		res.StartDate.String(), res.EndDate.String(), res.ScrapedAt,
		res.Meta.ReviewsFound, res.Meta.RawReviewsCount, res.Meta.InvalidReviews,
		res.Meta.DurationSec, string(meta),
	)
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert result: %w", err)}
	}
	resultID, err := out.LastInsertId()
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (result_id, position, review_id, title, body, review_date, rating,
			reviewer_name, reviewer_role, reviewer_company, location, source_url, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer stmt.Close()

	for i, r := range res.Reviews {
		var date, raw any
		if r.Date != nil {
			date = r.Date.String()
		}
		if len(r.Raw) > 0 {
			b, err := json.Marshal(r.Raw)
			if err != nil {
				return "", &types.StorageError{Backend: "sqlite", Err: err}
			}
			raw = string(b)
		}
		var rating any
		if r.Rating != nil {
			rating = *r.Rating
		}
		if _, err := stmt.ExecContext(ctx, resultID, i, r.ID, r.Title, r.Review, date, rating,
			r.ReviewerName, r.ReviewerRole, r.ReviewerCompany, r.Location, r.SourceURL, raw); err != nil {
			return "", &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert review %d: %w", i, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", &types.StorageError{Backend: "sqlite", Err: err}
	}
	s.logger.Debug("result stored in sqlite", "result_id", resultID, "reviews", len(res.Reviews))
	return fmt.Sprintf("sqlite://%s#%d", s.path, resultID), nil
}

func (s *SQLiteStorage) Close() error { return s.db.Close() }
