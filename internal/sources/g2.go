package sources

import (
	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const g2Origin = "https://www.g2.com"

// G2 is the big-three review directory.
var G2 = &Profile{
	Source:  types.SourceG2,
	Label:   "G2",
	Aliases: []string{"directory-a"},
	Origin:  g2Origin,

	ReviewsURL: func(slug string) string {
		return g2Origin + "/products/" + slug + "/reviews"
	},
	NormalizeReviewsURL: func(u string) string { return appendReviews(u, 0) },

	SearchURLs: []string{g2Origin + "/search?utf8=%E2%9C%93&query={q}&source=search"},
	Candidates: []string{
		`a[href*="/products/{slug}/reviews"]`,
		`a[href*="/products/{slug}"]`,
		"a.result-card__name",
		"a.search-result__title",
		`a[href*="/products/"][href$="/reviews"]`,
		`a[href*="/products/"]`,
	},
	ProductPath: "/products/",

	HomeURL: g2Origin + "/",
	SearchInputs: []string{
		`input[type="search"]`,
		`input[name="query"]`,
		`input[placeholder*="Search"]`,
		`input[aria-label*="Search"]`,
	},
	ResultLinks: []string{
		"a.result-card__name",
		`[data-testid="search-result"] a[href*="/products/"]`,
		`a[href*="/products/"]`,
	},
	ReviewsTab: []Target{
		{CSS: `a[href$="/reviews"]`},
		{CSS: "a", Text: `^\s*reviews`},
	},

	Layout: parser.Layout{
		Containers: []string{
			`div[data-testid="review-card"]`,
			"div.g2-review",
			"article",
			"div.review",
		},
		Title: parser.TextOf("h3", `[itemprop="name"]`),
		Date: parser.Lookup{
			{Locator: parser.CSS("time"), Extract: parser.AttrOrText("datetime")},
		}.Then(parser.TextOf("span.date", `span[class*="date"]`, `div[class*="date"]`)).Then(parser.Lookup{
			{Locator: parser.ContainsText("span", ","), Extract: parser.Text},
		}),
		Rating: parser.AttrOf("aria-label", `[aria-label*="out of 5"]`).
			Then(parser.AttrOf("class", `[class*="stars-"]`)),
		ReviewerName: parser.TextOf("div.reviewer-name", "span.reviewer", `span[class*="user"]`),
		ReviewerRole: parser.TextOf(`[class*="reviewer-title"]`, `[class*="job-title"]`),
		SourceURL:    parser.AttrOf("href", `a[href*="/review/"]`, `a[href*="#review"]`),
		Origin:       g2Origin,
	},

	NextTargets: DefaultNextTargets,
	Modes:       allModes,
}

func init() { Register(G2) }
