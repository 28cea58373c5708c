package sources

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, folds diacritics, collapses every run of
// non-alphanumerics into one hyphen and trims hyphens from both ends.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	slug := nonAlnum.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
