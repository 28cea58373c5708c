package sources

import (
	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const trustRadiusOrigin = "https://www.trustradius.com"

// TrustRadius is the B2B review site. Its ratings are on a 10-point scale.
var TrustRadius = &Profile{
	Source:  types.SourceTrustRadius,
	Label:   "TrustRadius",
	Aliases: []string{"review-site-c"},
	Origin:  trustRadiusOrigin,

	ReviewsURL: func(slug string) string {
		return trustRadiusOrigin + "/products/" + slug + "/reviews"
	},
	NormalizeReviewsURL: func(u string) string { return appendReviews(u, 0) },

	SearchURLs:  []string{trustRadiusOrigin + "/search?query={q}"},
	Candidates:  []string{`a[href*="/products/{slug}"]`, `a[href*="/products/"]`},
	ProductPath: "/products/",

	Layout: parser.Layout{
		Containers: []string{
			"div.review-card",
			"div.tr-review-card",
			`div[data-test="review-card"]`,
			"article",
			"div.review",
		},
		Title: parser.TextOf("h3", "h2", "div.review-title", "header h3"),
		Date: parser.Lookup{
			{Locator: parser.CSS("time"), Extract: parser.AttrOrText("datetime")},
			{Locator: parser.CSS(`span[itemprop="datePublished"]`), Extract: parser.AttrOrText("content")},
		}.Then(parser.TextOf("span.review-date", "div.review-date")).Then(parser.Lookup{
			{Locator: parser.ContainsText("span", "202"), Extract: parser.Text},
		}),
		Rating: parser.Lookup{
			{Locator: parser.CSS(`[aria-label*="out of 10"], [aria-label*="out of 5"], span[class*="rating"], div[class*="rating"]`), Extract: parser.AttrOrText("aria-label")},
		},
		ReviewerName:    parser.TextOf("span.reviewer-name", "div.reviewer-name", "a.author", `span[class*="user"]`),
		ReviewerRole:    parser.TextOf("span.reviewer-role", "div.reviewer-role", `span[class*="title"]`),
		ReviewerCompany: parser.TextOf("span.company", "div.company", `span[class*="company"]`),
		SourceURL:       parser.AttrOf("href", `a[href*="/reviews/"]`),
		Origin:          trustRadiusOrigin,
	},
	TextInference: true,

	NextTargets: append([]Target{
		{CSS: `a[rel="next"]`},
		{CSS: "button", Text: `^\s*next`},
		{CSS: "a", Text: `^\s*next`},
		{CSS: "button", Text: `^\s*load more`},
	}, DefaultNextTargets...),
	Modes: []types.Mode{types.ModeBrowser, types.ModeCrawler, types.ModeSnapshot},
}

func init() { Register(TrustRadius) }
