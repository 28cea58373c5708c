package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/normalize"
)

var (
	numberRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	outOfRe   = regexp.MustCompile(`(?i)(?:out\s+of|/)\s*(\d+(?:\.\d+)?)`)
	starClass = regexp.MustCompile(`(?i)stars?-(\d+)`)
)

// ParseRating reads the first number in s and the scale it declares
// ("4 out of 5", "8/10"). Scale is 0 when s does not declare one.
func ParseRating(s string) (value, scale float64, ok bool) {
	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	if sm := outOfRe.FindStringSubmatch(s); sm != nil {
		scale, _ = strconv.ParseFloat(sm[1], 64)
	}
	return value, scale, true
}

// RatingOnFive parses s and rescales 10-point ratings onto 5 points.
func RatingOnFive(s string) (float64, bool) {
	value, scale, ok := ParseRating(s)
	if !ok {
		return 0, false
	}
	if scale == 10 || (scale == 0 && strings.Contains(s, "/10")) {
		return normalize.Rescale(value, 10), true
	}
	return value, true
}

// StarClassRating reads ratings encoded as a CSS class such as "stars-8",
// where the number counts half stars.
func StarClassRating(class string) (float64, bool) {
	m := starClass.FindStringSubmatch(class)
	if m == nil {
		return 0, false
	}
	halves, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return normalize.Rescale(float64(halves), 10), true
}
