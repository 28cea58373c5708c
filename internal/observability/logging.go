// Package observability sets up logging and Prometheus metrics.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/config"
)

// NewLogger creates a structured logger from config. verbose forces debug
// level.
func NewLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	return slog.New(NewHandler(output(cfg.Output), cfg, verbose))
}

// NewHandler builds the text or JSON handler cfg asks for.
func NewHandler(w io.Writer, cfg config.LoggingConfig, verbose bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func output(name string) io.Writer {
	if strings.EqualFold(name, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}
