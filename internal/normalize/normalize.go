// Package normalize reconciles source-specific raw review records into the
// canonical Review shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/dates"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Canonical field names.
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldReview          = "review"
	FieldDate            = "date"
	FieldRating          = "rating"
	FieldRatingScale     = "rating_scale"
	FieldReviewerName    = "reviewer_name"
	FieldReviewerRole    = "reviewer_role"
	FieldReviewerCompany = "reviewer_company"
	FieldLocation        = "location"
	FieldSourceURL       = "source_url"
	FieldRaw             = "raw"
)

// Aliases maps each canonical field to the raw keys that may carry it, highest
// priority first.
var Aliases = map[string][]string{
	FieldID:              {"id", "review_id", "reviewId", "@id", "uuid"},
	FieldTitle:           {"title", "headline", "name", "summary", "review_title"},
	FieldReview:          {"review", "body", "reviewBody", "review_body", "text", "content", "description", "comment"},
	FieldDate:            {"date", "datePublished", "date_published", "published_at", "publishedAt", "submitted_at", "created_at"},
	FieldRating:          {"rating", "ratingValue", "rating_value", "stars", "score", "star_rating"},
	FieldRatingScale:     {"rating_scale", "bestRating", "best_rating", "scale"},
	FieldReviewerName:    {"reviewer_name", "author", "author_name", "reviewer", "user", "username"},
	FieldReviewerRole:    {"reviewer_role", "role", "job_title", "jobTitle", "position"},
	FieldReviewerCompany: {"reviewer_company", "company", "organization", "employer"},
	FieldLocation:        {"location", "country", "region"},
	FieldSourceURL:       {"source_url", "url", "review_url", "link", "href"},
}

var stringFields = []string{
	FieldID, FieldTitle, FieldReview, FieldReviewerName, FieldReviewerRole,
	FieldReviewerCompany, FieldLocation, FieldSourceURL,
}

// maxSamples caps the validation messages kept for diagnostics.
const maxSamples = 5

// Normalizer maps raw records to canonical reviews.
type Normalizer struct {
	logger *slog.Logger
	dates  *dates.Parser
	known  map[string]bool
}

// New creates a Normalizer. A nil parser uses the default clock.
func New(logger *slog.Logger, parser *dates.Parser) *Normalizer {
	if parser == nil {
		parser = &dates.Parser{}
	}
	known := map[string]bool{FieldRaw: true}
	for _, keys := range Aliases {
		for _, k := range keys {
			known[k] = true
		}
	}
	return &Normalizer{
		logger: logger.With("component", "normalizer"),
		dates:  parser,
		known:  known,
	}
}

// Normalize converts one raw record. It returns a *types.RecordValidationError
// when the rating is out of range or a present field cannot be coerced.
func (n *Normalizer) Normalize(raw types.RawRecord) (*types.Review, error) {
	r := &types.Review{}

	for _, field := range stringFields {
		key, v, ok := lookup(raw, field)
		if !ok {
			continue
		}
		s, err := coerceString(v)
		if err != nil {
			return nil, &types.RecordValidationError{Field: key, Value: v, Reason: err}
		}
		setString(r, field, s)
	}

	if _, v, ok := lookup(raw, FieldDate); ok {
		if d, ok := n.dates.Coerce(v); ok {
			r.Date = &d
		}
	}

	if key, v, ok := lookup(raw, FieldRating); ok {
		rating, err := coerceFloat(v)
		if err != nil {
			return nil, &types.RecordValidationError{Field: key, Value: v, Reason: err}
		}
		if _, sv, ok := lookup(raw, FieldRatingScale); ok {
			scale, err := coerceFloat(sv)
			if err != nil {
				return nil, &types.RecordValidationError{Field: FieldRatingScale, Value: sv, Reason: err}
			}
			rating = Rescale(rating, scale)
		}
		if math.IsNaN(rating) || rating < 0 || rating > 5 {
			return nil, &types.RecordValidationError{Field: key, Value: v, Reason: types.ErrRatingRange}
		}
		r.Rating = &rating
	}

	r.Raw = n.leftovers(raw)
	return r, nil
}

// NormalizeAll normalizes records in order. Invalid records are dropped and
// counted; up to five messages are kept as samples.
func (n *Normalizer) NormalizeAll(records []types.RawRecord) ([]*types.Review, int, []string) {
	reviews := make([]*types.Review, 0, len(records))
	invalid := 0
	var samples []string
	for i, rec := range records {
		review, err := n.Normalize(rec)
		if err != nil {
			invalid++
			if len(samples) < maxSamples {
				samples = append(samples, fmt.Sprintf("record %d: %v", i, err))
			}
			n.logger.Debug("Dropped invalid record", "index", i, "error", err)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, invalid, samples
}

// Rescale maps a rating on the given scale onto 0-5, rounded to two decimals.
// Scales of 0 or 5 leave the value unchanged.
func Rescale(value, scale float64) float64 {
	if scale <= 0 || scale == 5 {
		return value
	}
	return Round2(value * 5 / scale)
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (n *Normalizer) leftovers(raw types.RawRecord) map[string]any {
	out := map[string]any{}
	if nested, ok := raw[FieldRaw].(map[string]any); ok {
		for k, v := range nested {
			out[k] = v
		}
	}
	for k, v := range raw {
		if n.known[k] || v == nil {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Value returns the highest-priority raw value of a canonical field.
func Value(raw types.RawRecord, field string) (any, bool) {
	_, v, ok := lookup(raw, field)
	return v, ok
}

// lookup returns the first alias of field with a usable value.
func lookup(raw types.RawRecord, field string) (string, any, bool) {
	for _, key := range Aliases[field] {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return key, v, true
	}
	return "", nil, false
}

func coerceString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case fmt.Stringer:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case map[string]any:
		// schema.org Person/Organization objects
		if name, ok := val["name"].(string); ok {
			return strings.TrimSpace(name), nil
		}
	}
	return "", fmt.Errorf("%w to string from %T", types.ErrUncoercible, v)
}

func coerceFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case *float64:
		if val != nil {
			return *val, nil
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w to number from %T %v", types.ErrUncoercible, v, v)
}

func setString(r *types.Review, field, s string) {
	switch field {
	case FieldID:
		r.ID = s
	case FieldTitle:
		r.Title = s
	case FieldReview:
		r.Review = s
	case FieldReviewerName:
		r.ReviewerName = s
	case FieldReviewerRole:
		r.ReviewerRole = s
	case FieldReviewerCompany:
		r.ReviewerCompany = s
	case FieldLocation:
		r.Location = s
	case FieldSourceURL:
		r.SourceURL = s
	}
}
