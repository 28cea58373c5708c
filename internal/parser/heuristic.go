package parser

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// GenericContainer is the last-resort review container selector.
const GenericContainer = `article, div[class*="review"]`

// Layout describes where a source puts each review and its fields.
type Layout struct {
	// Containers are tried in order; the first selector matching any element
	// wins. GenericContainer is tried after all of them.
	Containers []string

	Title           Lookup
	Date            Lookup
	Rating          Lookup
	ReviewerName    Lookup
	ReviewerRole    Lookup
	ReviewerCompany Lookup
	Location        Lookup
	SourceURL       Lookup

	// Body defaults to the container's whole text.
	Body Lookup

	// Origin resolves relative review links.
	Origin string
}

// HeuristicExtractor extracts reviews by probing container elements with
// per-field lookups.
type HeuristicExtractor struct {
	layout Layout
	logger *slog.Logger
}

// NewHeuristicExtractor creates an extractor for one source layout.
func NewHeuristicExtractor(layout Layout, logger *slog.Logger) *HeuristicExtractor {
	return &HeuristicExtractor{
		layout: layout,
		logger: logger.With("component", "heuristic_extractor"),
	}
}

// Containers returns one selection per review element and the selector that
// matched them.
func (h *HeuristicExtractor) Containers(doc *goquery.Document) (*goquery.Selection, string) {
	for _, sel := range append(append([]string{}, h.layout.Containers...), GenericContainer) {
		found := doc.Find(sel)
		if found.Length() > 0 {
			return outermost(found), sel
		}
	}
	return doc.FindNodes(), ""
}

// Extract returns one raw record per container element.
func (h *HeuristicExtractor) Extract(doc *goquery.Document) []types.RawRecord {
	containers, matched := h.Containers(doc)
	if containers.Length() == 0 {
		return nil
	}
	h.logger.Debug("review containers found", "selector", matched, "count", containers.Length())

	records := make([]types.RawRecord, 0, containers.Length())
	containers.Each(func(_ int, el *goquery.Selection) {
		records = append(records, h.extractOne(el))
	})
	return records
}

func (h *HeuristicExtractor) extractOne(el *goquery.Selection) types.RawRecord {
	l := h.layout
	rec := types.RawRecord{}

	if body, ok := l.Body.First(el); ok {
		rec.Set("review", body)
	} else {
		rec.Set("review", BlockText(el))
	}

	setFirst(rec, "title", l.Title, el)
	setFirst(rec, "date", l.Date, el)
	setFirst(rec, "reviewer_name", l.ReviewerName, el)
	setFirst(rec, "reviewer_role", l.ReviewerRole, el)
	setFirst(rec, "reviewer_company", l.ReviewerCompany, el)
	setFirst(rec, "location", l.Location, el)

	if v, ok := l.Rating.First(el); ok {
		if r, ok := StarClassRating(v); ok {
			rec.Set("rating", r)
		} else if r, ok := RatingOnFive(v); ok {
			rec.Set("rating", r)
		}
	}
	if href, ok := l.SourceURL.First(el); ok {
		rec.Set("source_url", Resolve(l.Origin, href))
	}
	return rec
}

func setFirst(rec types.RawRecord, key string, l Lookup, el *goquery.Selection) {
	if v, ok := l.First(el); ok {
		rec.Set(key, v)
	}
}

// AllUntitled reports whether no record carries a title.
func AllUntitled(records []types.RawRecord) bool {
	for _, r := range records {
		if strings.TrimSpace(r.GetString("title")) != "" {
			return false
		}
	}
	return true
}

// outermost drops matches nested inside another match, so a generic selector
// like div[class*="review"] yields one element per review card.
func outermost(sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		for p := s.Nodes[0].Parent; p != nil; p = p.Parent {
			if sel.IndexOfNode(p) >= 0 {
				return false
			}
		}
		return true
	})
}
