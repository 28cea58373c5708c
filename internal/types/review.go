package types

import (
	"errors"
	"fmt"
	"time"
)

// Review is the canonical review record shared by every source.
type Review struct {
	ID              string         `json:"id,omitempty" yaml:"id,omitempty" bson:"id,omitempty"`
	Title           string         `json:"title,omitempty" yaml:"title,omitempty" bson:"title,omitempty"`
	Review          string         `json:"review,omitempty" yaml:"review,omitempty" bson:"review,omitempty"`
	Date            *Date          `json:"date,omitempty" yaml:"date,omitempty" bson:"date,omitempty"`
	Rating          *float64       `json:"rating,omitempty" yaml:"rating,omitempty" bson:"rating,omitempty"`
	ReviewerName    string         `json:"reviewer_name,omitempty" yaml:"reviewer_name,omitempty" bson:"reviewer_name,omitempty"`
	ReviewerRole    string         `json:"reviewer_role,omitempty" yaml:"reviewer_role,omitempty" bson:"reviewer_role,omitempty"`
	ReviewerCompany string         `json:"reviewer_company,omitempty" yaml:"reviewer_company,omitempty" bson:"reviewer_company,omitempty"`
	Location        string         `json:"location,omitempty" yaml:"location,omitempty" bson:"location,omitempty"`
	SourceURL       string         `json:"source_url,omitempty" yaml:"source_url,omitempty" bson:"source_url,omitempty"`
	Raw             map[string]any `json:"raw,omitempty" yaml:"raw,omitempty" bson:"raw,omitempty"`
}

// Record converts the review back to a raw record keyed by canonical names.
func (r *Review) Record() RawRecord {
	rec := RawRecord{}
	rec.Set("id", r.ID)
	rec.Set("title", r.Title)
	rec.Set("review", r.Review)
	if r.Date != nil {
		rec["date"] = *r.Date
	}
	rec.Set("rating", r.Rating)
	rec.Set("reviewer_name", r.ReviewerName)
	rec.Set("reviewer_role", r.ReviewerRole)
	rec.Set("reviewer_company", r.ReviewerCompany)
	rec.Set("location", r.Location)
	rec.Set("source_url", r.SourceURL)
	if len(r.Raw) > 0 {
		raw := make(map[string]any, len(r.Raw))
		for k, v := range r.Raw {
			raw[k] = v
		}
		rec["raw"] = raw
	}
	return rec
}

// Meta is the run metadata attached to a ScrapeResult.
type Meta struct {
	ReviewsFound    int      `json:"reviews_found" yaml:"reviews_found" bson:"reviews_found"`
	RawReviewsCount int      `json:"raw_reviews_count" yaml:"raw_reviews_count" bson:"raw_reviews_count"`
	InvalidReviews  int      `json:"invalid_reviews" yaml:"invalid_reviews" bson:"invalid_reviews"`
	DurationSec     float64  `json:"duration_sec" yaml:"duration_sec" bson:"duration_sec"`
	Debug           bool     `json:"debug" yaml:"debug" bson:"debug"`
	RunID           string   `json:"run_id,omitempty" yaml:"run_id,omitempty" bson:"run_id,omitempty"`
	Mode            Mode     `json:"mode,omitempty" yaml:"mode,omitempty" bson:"mode,omitempty"`
	PagesVisited    int      `json:"pages_visited,omitempty" yaml:"pages_visited,omitempty" bson:"pages_visited,omitempty"`
	ResolvedURL     string   `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty" bson:"resolved_url,omitempty"`
	Strategy        string   `json:"strategy,omitempty" yaml:"strategy,omitempty" bson:"strategy,omitempty"`
	InvalidSamples  []string `json:"invalid_samples,omitempty" yaml:"invalid_samples,omitempty" bson:"invalid_samples,omitempty"`
}

// ScrapeResult is the output of one acquisition run.
type ScrapeResult struct {
	Company   string    `json:"company" yaml:"company" bson:"company"`
	Source    Source    `json:"source" yaml:"source" bson:"source"`
	StartDate Date      `json:"start_date" yaml:"start_date" bson:"start_date"`
	EndDate   Date      `json:"end_date" yaml:"end_date" bson:"end_date"`
	ScrapedAt string    `json:"scraped_at" yaml:"scraped_at" bson:"scraped_at"`
	Reviews   []*Review `json:"reviews" yaml:"reviews" bson:"reviews"`
	Meta      Meta      `json:"meta" yaml:"meta" bson:"meta"`
}

// Timestamp formats t the way ScrapedAt is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// ErrResultMismatch marks a result whose envelope disagrees with its reviews.
var ErrResultMismatch = errors.New("result does not match its reviews")

// Validate re-checks the final result: every dated review falls inside the
// window, every rating is within [0,5] and the metadata count matches.
func (r *ScrapeResult) Validate() error {
	w := Window{Start: r.StartDate, End: r.EndDate}
	for i, rev := range r.Reviews {
		if rev.Date != nil && !w.Contains(*rev.Date) {
			return &RecordValidationError{Field: fmt.Sprintf("reviews[%d].date", i), Value: rev.Date.String(), Reason: ErrResultMismatch}
		}
		if rev.Rating != nil && (*rev.Rating < 0 || *rev.Rating > 5) {
			return &RecordValidationError{Field: fmt.Sprintf("reviews[%d].rating", i), Value: *rev.Rating, Reason: ErrRatingRange}
		}
	}
	if r.Meta.ReviewsFound != len(r.Reviews) {
		return &RecordValidationError{Field: "meta.reviews_found", Value: r.Meta.ReviewsFound, Reason: ErrResultMismatch}
	}
	return nil
}
