package parser

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var (
	ratingPhraseRe = regexp.MustCompile(`(?i)rating:?\s*(\d+(?:\.\d+)?)\s*(?:out\s+of|/)\s*(\d+)`)
	longDateRe     = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)
	properNameRe   = regexp.MustCompile(`^[A-Z][a-z'\-]+\s+[A-Z][a-z'\-]*\.?$`)
)

// boilerplate lists line prefixes that never make a title.
var boilerplate = []string{
	"rating", "score", "likelihood to recommend", "pros", "cons", "use cases",
	"return on investment", "reviewed", "verified", "vetted review", "incentivized",
	"show more", "read more", "read full review", "was this helpful", "helpful",
	"review source", "validated reviewer", "reviewer", "industry", "company size",
	"employees", "used the software for", "overall", "posted",
}

// InferFromText derives title, rating and date from review plain text using
// the phrasing review pages print around the content. Ratings are left on
// their declared scale with rating_scale set.
func InferFromText(text string) types.RawRecord {
	rec := types.RawRecord{}

	if m := ratingPhraseRe.FindStringSubmatch(text); m != nil {
		rec.Set("rating", m[1])
		rec.Set("rating_scale", m[2])
	}
	if d := longDateRe.FindString(text); d != "" {
		rec.Set("date", d)
	}
	if title := inferTitle(text); title != "" {
		rec.Set("title", title)
	}
	return rec
}

func inferTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isBoilerplate(line) {
			continue
		}
		if properNameRe.MatchString(line) || longDateRe.MatchString(line) {
			continue
		}
		return strings.Trim(line, `"“”`)
	}
	return ""
}

func isBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, b := range boilerplate {
		if strings.HasPrefix(lower, b) {
			return true
		}
	}
	return false
}
