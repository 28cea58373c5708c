package scrape

import (
	"context"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Extraction strategy names.
const (
	StrategyStructured    = "structured"
	StrategyHeuristic     = "heuristic"
	StrategyTextInference = "text-inference"
)

// Extractor returns the raw reviews visible on one loaded page. It never
// advances the page.
type Extractor struct {
	profile    *sources.Profile
	structured *parser.StructuredReviewExtractor
	heuristic  *parser.HeuristicExtractor
	logger     *slog.Logger
}

// NewExtractor creates an extractor for a source.
func NewExtractor(p *sources.Profile, logger *slog.Logger) *Extractor {
	return &Extractor{
		profile:    p,
		structured: parser.NewStructuredReviewExtractor(logger),
		heuristic:  parser.NewHeuristicExtractor(p.Layout, logger),
		logger:     logger.With("component", "extractor", "source", p.Source),
	}
}

// Extract runs the structured, heuristic and text-inference strategies in
// order and returns the first non-empty result with the strategy name.
func (e *Extractor) Extract(ctx context.Context, snap *types.Snapshot) ([]types.RawRecord, string) {
	doc, err := snap.Document()
	if err != nil {
		e.logger.Warn("unparsable page", "url", snap.URL, "error", err)
		return nil, ""
	}

	strategies := []Strategy[[]types.RawRecord]{
		{Name: StrategyStructured, Attempt: func(context.Context) ([]types.RawRecord, error) {
			return nonEmpty(e.structured.Extract(doc))
		}},
		{Name: StrategyHeuristic, Attempt: func(context.Context) ([]types.RawRecord, error) {
			records := e.heuristic.Extract(doc)
			if e.profile.TextInference && parser.AllUntitled(records) {
				return nil, ErrDeclined
			}
			return nonEmpty(records)
		}},
		{Name: StrategyTextInference, Attempt: func(context.Context) ([]types.RawRecord, error) {
			if !e.profile.TextInference {
				return nil, ErrDeclined
			}
			return nonEmpty(e.inferFromText(doc))
		}},
	}

	records, via, err := FirstSuccess(ctx, e.logger, "extract", strategies)
	if err != nil {
		e.logger.Debug("no reviews extracted", "url", snap.URL)
		return nil, ""
	}
	e.logger.Debug("reviews extracted", "url", snap.URL, "strategy", via, "count", len(records))
	return records, via
}

// inferFromText fills title, rating and date of untitled container records
// from their plain text. A rating already read from markup wins.
func (e *Extractor) inferFromText(doc *goquery.Document) []types.RawRecord {
	records := e.heuristic.Extract(doc)
	for _, rec := range records {
		inferred := parser.InferFromText(rec.GetString("review"))
		for _, key := range []string{"title", "date"} {
			if !rec.Has(key) {
				rec.Set(key, inferred.GetString(key))
			}
		}
		if !rec.Has("rating") && inferred.Has("rating") {
			rec.Set("rating", inferred["rating"])
			rec.Set("rating_scale", inferred["rating_scale"])
		}
	}
	return records
}

func nonEmpty(records []types.RawRecord) ([]types.RawRecord, error) {
	if len(records) == 0 {
		return nil, ErrDeclined
	}
	return records, nil
}
