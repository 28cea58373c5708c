// Package sources holds the per-site knowledge the navigator, extractor and
// pagination controller are parameterized with.
package sources

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Target is one clickable element: a CSS selector, optionally narrowed to
// elements whose text matches the case-insensitive regular expression Text.
type Target struct {
	CSS  string
	Text string
}

func (t Target) String() string {
	if t.Text == "" {
		return t.CSS
	}
	return fmt.Sprintf("%s[text~%q]", t.CSS, t.Text)
}

// Profile describes one review directory.
type Profile struct {
	Source  types.Source
	Label   string
	Aliases []string
	Origin  string

	// ReviewsURL builds the direct-guess reviews URL from a slug. Nil when the
	// site's product URLs cannot be derived from a name.
	ReviewsURL func(slug string) string

	// NormalizeReviewsURL turns a product URL into its reviews URL.
	NormalizeReviewsURL func(u string) string

	// SearchURLs are query-string search pages; {q} is the escaped query.
	SearchURLs []string

	// Candidates select result anchors on a search page; {slug} is replaced.
	Candidates []string

	// ProductPath marks hrefs that point at a product page.
	ProductPath string

	// Interactive flow. Empty SearchInputs disables it.
	HomeURL      string
	SearchInputs []string
	ResultLinks  []string
	ReviewsTab   []Target

	Layout parser.Layout

	// TextInference enables title/rating/date inference from plain text when
	// every container came back untitled.
	TextInference bool

	// NextTargets are tried in order to advance a page.
	NextTargets []Target

	Modes []types.Mode
}

// SearchURL fills a search template for a company name.
func SearchURL(template, company string) string {
	return strings.ReplaceAll(template, "{q}", url.QueryEscape(company))
}

// CandidateSelectors fills the {slug} placeholders.
func (p *Profile) CandidateSelectors(slug string) []string {
	out := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = strings.ReplaceAll(c, "{slug}", slug)
	}
	return out
}

// SupportsMode reports whether the profile can be acquired in mode m.
func (p *Profile) SupportsMode(m types.Mode) bool {
	for _, x := range p.Modes {
		if x == m {
			return true
		}
	}
	return false
}

// DefaultNextTargets are the generic "go to next page" targets.
var DefaultNextTargets = []Target{
	{CSS: "button", Text: `^\s*load more`},
	{CSS: `a[rel="next"]`},
	{CSS: "button", Text: `^\s*next`},
	{CSS: "button", Text: `^\s*see more`},
}

var registry = map[types.Source]*Profile{}

// Register adds a profile to the registry.
func Register(p *Profile) {
	registry[p.Source] = p
}

// Get returns the profile of a source.
func Get(s types.Source) (*Profile, error) {
	p, ok := registry[s]
	if !ok {
		return nil, &types.ConfigurationError{Field: "source", Message: fmt.Sprintf("no profile for source %q", s)}
	}
	return p, nil
}

// All returns every registered profile sorted by source identifier.
func All() []*Profile {
	out := make([]*Profile, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// appendReviews strips a trailing slash and appends /reviews unless the URL
// already has a reviews segment. maxSlashes > 0 skips URLs with that many
// slashes or more, which already point below the product page.
func appendReviews(u string, maxSlashes int) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" || strings.Contains(u, "/reviews") {
		return u
	}
	if maxSlashes > 0 && strings.Count(u, "/") >= maxSlashes {
		return u
	}
	return u + "/reviews"
}

var allModes = []types.Mode{types.ModeBrowser, types.ModeAPI, types.ModeCrawler, types.ModeSnapshot}
