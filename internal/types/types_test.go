package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.June, 30)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-30"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d))

	assert.Error(t, json.Unmarshal([]byte(`"30/06/2024"`), &back))
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: MustDate("2024-01-01"), End: MustDate("2024-06-30")}

	tests := []struct {
		date string
		want bool
	}{
		{"2024-01-01", true},
		{"2024-06-30", true},
		{"2024-03-15", true},
		{"2023-12-31", false},
		{"2024-07-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(MustDate(tt.date)))
		})
	}
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{Start: MustDate("2024-01-01"), End: MustDate("2024-01-01")}.Validate())

	err := Window{Start: MustDate("2024-02-01"), End: MustDate("2024-01-01")}.Validate()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "end", cfgErr.Field)

	assert.Error(t, Window{}.Validate())
}

func TestParseSourceAliases(t *testing.T) {
	for in, want := range map[string]Source{
		"g2":            SourceG2,
		"Directory-A":   SourceG2,
		"marketplace-b": SourceCapterra,
		" trustradius ": SourceTrustRadius,
	} {
		got, err := ParseSource(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSource("yelp")
	assert.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	base := Request{
		Source:  SourceG2,
		Company: "Acme",
		Start:   MustDate("2024-01-01"),
		End:     MustDate("2024-06-30"),
	}
	require.NoError(t, base.Validate())

	noCompany := base
	noCompany.Company = ""
	assert.Error(t, noCompany.Validate())

	noCompany.Mode = ModeSnapshot
	assert.NoError(t, noCompany.Validate(), "snapshot mode needs no company")

	negative := base
	negative.Limit = -1
	assert.Error(t, negative.Validate())
}

func TestRemoteServiceErrorTruncatesBody(t *testing.T) {
	body := []byte(strings.Repeat("x", 2000))
	err := NewRemoteServiceError("data-api", 500, body, nil)
	assert.Len(t, err.Body, maxErrorBody+3)
	assert.False(t, err.Unauthorized())

	unauth := NewRemoteServiceError("data-api", 401, nil, ErrUnauthorized)
	assert.True(t, unauth.Unauthorized())
	assert.ErrorIs(t, fmt.Errorf("fetch page 2: %w", unauth), ErrUnauthorized)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitParse, ExitCode(&ConfigurationError{Field: "x"}))
	assert.Equal(t, ExitValidation, ExitCode(fmt.Errorf("wrap: %w", &RecordValidationError{Field: "rating"})))
	assert.Equal(t, ExitAcquisition, ExitCode(&DiscoveryError{Source: SourceG2, Company: "Acme"}))
	assert.Equal(t, ExitAcquisition, ExitCode(errors.New("boom")))
}

func TestChainAndHint(t *testing.T) {
	root := errors.New("fork/exec chrome: no such file")
	err := fmt.Errorf("launch: %w", &ExtractionEnvironmentError{Err: root, Hint: "install chromium"})

	chain := Chain(err)
	require.Len(t, chain, 3)
	assert.Equal(t, root.Error(), chain[2])
	assert.Equal(t, "install chromium", Hint(err))
	assert.Empty(t, Hint(root))
}

func TestReviewRecordRoundTrip(t *testing.T) {
	rating := 4.5
	r := &Review{Title: "Great", Date: MustDate("2024-02-02").Ptr(), Rating: &rating, Raw: map[string]any{"k": "v"}}
	rec := r.Record()
	assert.Equal(t, "Great", rec.GetString("title"))
	assert.Equal(t, 4.5, rec["rating"])
	assert.Equal(t, MustDate("2024-02-02"), rec["date"])
	assert.False(t, rec.Has("review"))
}

func TestSnapshotDocument(t *testing.T) {
	s := NewSnapshot("https://example.com", []byte(`<html><body><h1>Hi</h1></body></html>`))
	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "Hi", doc.Find("h1").Text())
	assert.Contains(t, s.Text(), "Hi")
}

func TestScrapeResultValidate(t *testing.T) {
	bad := 6.0
	res := &ScrapeResult{
		StartDate: MustDate("2025-06-01"),
		EndDate:   MustDate("2025-06-30"),
		Reviews:   []*Review{{Title: "ok", Date: MustDate("2025-06-02").Ptr()}, {Title: "undated"}},
		Meta:      Meta{ReviewsFound: 2},
	}
	require.NoError(t, res.Validate())

	res.Reviews[1].Date = MustDate("2025-07-01").Ptr()
	err := res.Validate()
	var recErr *RecordValidationError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "reviews[1].date", recErr.Field)
	assert.Equal(t, ExitValidation, ExitCode(err))

	res.Reviews[1].Date = nil
	res.Reviews[0].Rating = &bad
	assert.ErrorIs(t, res.Validate(), ErrRatingRange)

	res.Reviews[0].Rating = nil
	res.Meta.ReviewsFound = 3
	assert.ErrorIs(t, res.Validate(), ErrResultMismatch)
}
