package sources

import (
	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const capterraOrigin = "https://www.capterra.com"

// Capterra is the comparison marketplace. Its product URLs carry a numeric
// id, so there is no direct guess from the name.
var Capterra = &Profile{
	Source:  types.SourceCapterra,
	Label:   "Capterra",
	Aliases: []string{"marketplace-b"},
	Origin:  capterraOrigin,

	NormalizeReviewsURL: func(u string) string { return appendReviews(u, 6) },

	// The regional site answers first; .com is the fallback.
	SearchURLs: []string{
		"https://www.capterra.in/search/?q={q}",
		capterraOrigin + "/search/?q={q}",
	},
	Candidates: []string{
		"a.product-card__title",
		"a.product-name",
		`a[href*="/software/"]`,
		`a[href*="/p/"]`,
	},
	ProductPath: "/p/",

	Layout: parser.Layout{
		Containers: []string{
			"div.review",
			"article",
			`div[class*="ReviewCard"]`,
		},
		Title: parser.TextOf("h3", `[data-testid="review-title"]`),
		Date: parser.Lookup{
			{Locator: parser.CSS("time"), Extract: parser.AttrOrText("datetime")},
		}.Then(parser.TextOf(`[data-testid="review-date"]`, `span[class*="date"]`, `div[class*="date"]`)),
		Rating: parser.AttrOf("aria-label", `[aria-label*="out of 5"]`, `[aria-label*="stars"]`).
			Then(parser.TextOf(`[data-testid="rating"]`, `span[class*="rating"]`)),
		ReviewerName:    parser.TextOf(`[data-testid="reviewer-full-name"]`, `span[class*="reviewer"]`, `div[class*="reviewer-name"]`),
		ReviewerRole:    parser.TextOf(`[data-testid="reviewer-job-title"]`),
		ReviewerCompany: parser.TextOf(`[data-testid="reviewer-industry"]`),
		Origin:          capterraOrigin,
	},

	NextTargets: DefaultNextTargets,
	Modes:       []types.Mode{types.ModeBrowser, types.ModeCrawler, types.ModeSnapshot},
}

func init() { Register(Capterra) }
