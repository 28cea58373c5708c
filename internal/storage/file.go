package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// File formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// FileStorage writes each result to its own file under a directory.
type FileStorage struct {
	dir    string
	format string
	logger *slog.Logger
}

// NewFileStorage creates a file storage writing format into dir.
func NewFileStorage(dir, format string, logger *slog.Logger) (*FileStorage, error) {
	switch format {
	case FormatJSON, FormatYAML, FormatCSV:
	default:
		return nil, &types.ConfigurationError{Field: "format", Message: fmt.Sprintf("unsupported file format %q", format)}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: format, Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &FileStorage{
		dir:    dir,
		format: format,
		logger: logger.With("component", format+"_storage"),
	}, nil
}

func (s *FileStorage) Name() string { return s.format }

// Store writes {company}-{source}-{start}_{end}.{format} and returns its path.
// An existing file for the same key is replaced.
func (s *FileStorage) Store(_ context.Context, res *types.ScrapeResult) (string, error) {
	path := filepath.Join(s.dir, BaseName(res)+"."+s.format)

	f, err := os.Create(path)
	if err != nil {
		return "", &types.StorageError{Backend: s.format, Err: fmt.Errorf("create output file: %w", err)}
	}
	defer f.Close()

	if err := Encode(f, s.format, res); err != nil {
		return "", &types.StorageError{Backend: s.format, Err: err}
	}

	s.logger.Info("result written", "path", path, "reviews", len(res.Reviews))
	return path, nil
}

func (s *FileStorage) Close() error { return nil }

// Encode writes res to w in format.
func Encode(w io.Writer, format string, res *types.ScrapeResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return encodeCSV(w, res)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// CSVHeader is the column order of CSV output, one review per row.
var CSVHeader = []string{
	"id", "title", "review", "date", "rating",
	"reviewer_name", "reviewer_role", "reviewer_company", "location", "source_url",
}

func encodeCSV(w io.Writer, res *types.ScrapeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range res.Reviews {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r *types.Review) []string {
	var date, rating string
	if r.Date != nil {
		date = r.Date.String()
	}
	if r.Rating != nil {
		rating = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
	}
	return []string{
		r.ID, r.Title, r.Review, date, rating,
		r.ReviewerName, r.ReviewerRole, r.ReviewerCompany, r.Location, r.SourceURL,
	}
}
