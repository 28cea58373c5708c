// Package pipeline cleans raw review records between extraction and
// normalization.
package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop the record.
	Process(rec types.RawRecord) (types.RawRecord, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default builds the chain every acquisition path runs: trim, strip markup
// from text fields, drop empty shells, drop records already seen.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware("title", "review", "reviewBody", "body", "text"))
	p.Use(&RequireContentMiddleware{})
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(rec types.RawRecord) (types.RawRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{Stage: mw.Name(), Err: err}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name())
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every record through the chain, keeping order. Records that
// fail a stage are logged and dropped.
func (p *Pipeline) ProcessAll(records []types.RawRecord) []types.RawRecord {
	out := make([]types.RawRecord, 0, len(records))
	for _, rec := range records {
		result, err := p.Process(rec)
		if err != nil {
			p.logger.Warn("record rejected", "error", err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
