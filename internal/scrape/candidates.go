package scrape

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ReviewGoat/internal/parser"
)

// Candidate is a search-result anchor that may lead to the product page.
type Candidate struct {
	URL   string
	Text  string
	Score int
	Order int
}

// Score weights a candidate URL path against the product slug: a path that
// starts with the product prefix scores 3, a path merely containing the slug
// 2, a path segment equal to the slug adds 2, and a reviews path adds 1.
func Score(path, slug, productPath string) int {
	path = strings.ToLower(path)
	score := 0
	if slug != "" {
		switch {
		case productPath != "" && strings.HasPrefix(path, productPath+slug):
			score += 3
		case strings.Contains(path, slug):
			score += 2
		}
		for _, seg := range strings.Split(path, "/") {
			if seg == slug {
				score += 2
				break
			}
		}
	}
	if strings.Contains(path, "/reviews") {
		score++
	}
	return score
}

// Candidates collects anchors matching selectors, in selector order then page
// order, and ranks them by Score. Ties keep their collection order.
func Candidates(doc *goquery.Document, selectors []string, base, slug, productPath string) []Candidate {
	var out []Candidate
	seen := map[string]bool{}

	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return
			}
			abs := parser.Resolve(base, href)
			if seen[abs] {
				return
			}
			seen[abs] = true

			path := abs
			if u, err := url.Parse(abs); err == nil {
				path = u.Path
			}
			out = append(out, Candidate{
				URL:   abs,
				Text:  parser.Text(a),
				Score: Score(path, slug, productPath),
				Order: len(out),
			})
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
