package normalize

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/ReviewGoat/internal/dates"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestNormalizer() *Normalizer {
	clock := &dates.Parser{Now: func() time.Time { return time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) }}
	return New(testLogger, clock)
}

func TestNormalizeAliasPriority(t *testing.T) {
	n := newTestNormalizer()

	r, err := n.Normalize(types.RawRecord{
		"headline": "From headline",
		"title":    "From title",
		"name":     "From name",
	})
	require.NoError(t, err)
	assert.Equal(t, "From title", r.Title)

	r, err = n.Normalize(types.RawRecord{"headline": "From headline", "name": "From name"})
	require.NoError(t, err)
	assert.Equal(t, "From headline", r.Title)

	r, err = n.Normalize(types.RawRecord{"title": "   ", "headline": "Blank title skipped"})
	require.NoError(t, err)
	assert.Equal(t, "Blank title skipped", r.Title)
}

func TestNormalizeFields(t *testing.T) {
	n := newTestNormalizer()

	r, err := n.Normalize(types.RawRecord{
		"reviewId":      "r-1",
		"reviewBody":    "  Solid CRM. ",
		"datePublished": "March 3, 2024",
		"ratingValue":   "4.5",
		"author":        map[string]any{"@type": "Person", "name": "Jane D."},
		"jobTitle":      "Ops Lead",
		"organization":  "Initech",
		"url":           "https://example.com/r/1",
		"helpful_votes": 3,
		"raw_html":      nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "r-1", r.ID)
	assert.Equal(t, "Solid CRM.", r.Review)
	require.NotNil(t, r.Date)
	assert.Equal(t, "2024-03-03", r.Date.String())
	require.NotNil(t, r.Rating)
	assert.Equal(t, 4.5, *r.Rating)
	assert.Equal(t, "Jane D.", r.ReviewerName)
	assert.Equal(t, "Ops Lead", r.ReviewerRole)
	assert.Equal(t, "Initech", r.ReviewerCompany)
	assert.Equal(t, "https://example.com/r/1", r.SourceURL)
	assert.Equal(t, map[string]any{"helpful_votes": 3}, r.Raw)
}

func TestNormalizeUnparseableDateKeepsRecord(t *testing.T) {
	r, err := newTestNormalizer().Normalize(types.RawRecord{"title": "x", "date": "sometime last spring"})
	require.NoError(t, err)
	assert.Nil(t, r.Date)
	assert.Equal(t, "x", r.Title)
}

func TestNormalizeRatingRange(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name    string
		raw     types.RawRecord
		want    float64
		wantErr error
	}{
		{"in range", types.RawRecord{"rating": 5}, 5, nil},
		{"zero", types.RawRecord{"rating": 0.0}, 0, nil},
		{"seven on five point scale", types.RawRecord{"rating": 7}, 0, types.ErrRatingRange},
		{"negative", types.RawRecord{"rating": -1.0}, 0, types.ErrRatingRange},
		{"ten point scale rescaled", types.RawRecord{"rating": 7, "rating_scale": 10}, 3.5, nil},
		{"ten point scale rounding", types.RawRecord{"rating": "8.3", "bestRating": "10"}, 4.15, nil},
		{"out of range after rescale", types.RawRecord{"rating": 12, "rating_scale": 10}, 0, types.ErrRatingRange},
		{"non numeric", types.RawRecord{"rating": "five stars"}, 0, types.ErrUncoercible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := n.Normalize(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				var recErr *types.RecordValidationError
				assert.ErrorAs(t, err, &recErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, r.Rating)
			assert.InDelta(t, tt.want, *r.Rating, 1e-9)
		})
	}
}

func TestNormalizeUncoercibleString(t *testing.T) {
	_, err := newTestNormalizer().Normalize(types.RawRecord{"title": []any{"a", "b"}})
	var recErr *types.RecordValidationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "title", recErr.Field)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer()
	raws := []types.RawRecord{
		{"headline": "Nice", "reviewBody": "body", "datePublished": "2024-05-01", "ratingValue": 8, "bestRating": 10, "extra": "kept"},
		{"title": "Only title"},
		{"name": "N", "date": "garbage", "author": "A", "raw": map[string]any{"nested": true}},
	}
	for _, raw := range raws {
		first, err := n.Normalize(raw)
		require.NoError(t, err)
		second, err := n.Normalize(first.Record())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeAllCountsInvalid(t *testing.T) {
	records := []types.RawRecord{
		{"title": "ok", "rating": 4},
		{"title": "bad", "rating": 7},
		{"title": "also ok"},
	}
	reviews, invalid, samples := newTestNormalizer().NormalizeAll(records)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, "ok", reviews[0].Title)
	assert.Equal(t, "also ok", reviews[1].Title)
	require.Len(t, samples, 1)
	assert.Contains(t, samples[0], "record 1")
}

func TestRescale(t *testing.T) {
	assert.Equal(t, 4.5, Rescale(9, 10))
	assert.Equal(t, 3.0, Rescale(3, 5))
	assert.Equal(t, 3.0, Rescale(3, 0))
	assert.Equal(t, 2.33, Rescale(7, 15))
}
