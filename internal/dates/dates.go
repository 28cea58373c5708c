// Package dates turns loosely formatted, human-readable date strings into
// calendar dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const (
	minYear = 1995
	maxYear = 2100
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoRe       = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	monthDayRe  = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `\.?,?\s+(\d{4})\b`)
	slashRe     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	relativeRe  = regexp.MustCompile(`(?i)\b(\d+|an?|one)\s+(day|week|month|year)s?\s+ago\b`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
	ordinalTail = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
)

// Parser parses dates relative to a clock. The zero value uses time.Now.
type Parser struct {
	Now func() time.Time
}

var defaultParser = &Parser{}

// Parse parses s with the default parser.
func Parse(s string) (types.Date, bool) {
	return defaultParser.Parse(s)
}

// Coerce parses s, time.Time and types.Date values with the default parser.
func Coerce(v any) (types.Date, bool) {
	return defaultParser.Coerce(v)
}

// Coerce converts any date-like value to a Date.
func (p *Parser) Coerce(v any) (types.Date, bool) {
	switch val := v.(type) {
	case types.Date:
		return val, !val.IsZero()
	case *types.Date:
		if val == nil {
			return types.Date{}, false
		}
		return *val, !val.IsZero()
	case time.Time:
		return types.DateOf(val), !val.IsZero()
	case string:
		return p.Parse(val)
	}
	return types.Date{}, false
}

// Parse returns the calendar date found in s, or false when s holds nothing
// recognizable as a date. Longer text is searched for a date-like fragment.
func (p *Parser) Parse(s string) (types.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Date{}, false
	}

	if d, ok := parseWhole(s); ok {
		return d, true
	}
	if d, ok := parseFragment(s); ok {
		return d, true
	}
	return p.parseRelative(s)
}

func parseWhole(s string) (types.Date, bool) {
	if digitsOnly.MatchString(s) && len(s) != 8 {
		return types.Date{}, false
	}
	t, err := dateparse.ParseAny(ordinalTail.ReplaceAllString(s, "$1"))
	if err != nil {
		return types.Date{}, false
	}
	return plausible(types.DateOf(t))
}

func parseFragment(s string) (types.Date, bool) {
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return buildNamed(m[3], m[1], m[2])
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return buildNamed(m[3], m[2], m[1])
	}
	if m := slashRe.FindStringSubmatch(s); m != nil {
		return build(m[3], m[1], m[2])
	}
	return types.Date{}, false
}

func (p *Parser) parseRelative(s string) (types.Date, bool) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	today := types.DateOf(now())

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "yesterday"):
		return today.AddDays(-1), true
	case strings.Contains(lower, "today"):
		return today, true
	}

	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return types.Date{}, false
	}
	n := 1
	if v, err := strconv.Atoi(m[1]); err == nil {
		n = v
	}
	t := today.Time()
	switch strings.ToLower(m[2]) {
	case "day":
		t = t.AddDate(0, 0, -n)
	case "week":
		t = t.AddDate(0, 0, -7*n)
	case "month":
		t = t.AddDate(0, -n, 0)
	case "year":
		t = t.AddDate(-n, 0, 0)
	}
	return types.DateOf(t), true
}

func buildNamed(year, month, day string) (types.Date, bool) {
	mon, ok := months[strings.ToLower(month)[:3]]
	if !ok {
		return types.Date{}, false
	}
	return build(year, strconv.Itoa(int(mon)), day)
}

func build(year, month, day string) (types.Date, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return types.Date{}, false
	}
	date := types.NewDate(y, time.Month(m), d)
	// time.Date normalizes Feb 30 into March; reject instead.
	if date.Time().Day() != d {
		return types.Date{}, false
	}
	return plausible(date)
}

func plausible(d types.Date) (types.Date, bool) {
	if y := d.Time().Year(); y < minYear || y > maxYear {
		return types.Date{}, false
	}
	return d, true
}
