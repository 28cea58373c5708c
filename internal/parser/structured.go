package parser

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/IshaanNene/ReviewGoat/internal/normalize"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// StructuredReviewExtractor reads schema.org Review objects embedded in a
// page as JSON-LD or microdata.
type StructuredReviewExtractor struct {
	logger *slog.Logger
}

// NewStructuredReviewExtractor creates a new structured data extractor.
func NewStructuredReviewExtractor(logger *slog.Logger) *StructuredReviewExtractor {
	return &StructuredReviewExtractor{
		logger: logger.With("component", "structured_data"),
	}
}

// Extract returns one raw record per embedded review, JSON-LD first. Ratings
// are rescaled to five points when the data declares another best rating.
func (sde *StructuredReviewExtractor) Extract(doc *goquery.Document) []types.RawRecord {
	records := sde.extractJSONLD(doc)
	if len(records) > 0 {
		return records
	}
	return sde.extractMicrodata(doc)
}

// extractJSONLD parses <script type="application/ld+json"> elements.
func (sde *StructuredReviewExtractor) extractJSONLD(doc *goquery.Document) []types.RawRecord {
	var records []types.RawRecord

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			// Hand-written islands often carry trailing commas or comments.
			if err5 := json5.Unmarshal([]byte(raw), &data); err5 != nil {
				sde.logger.Debug("skipping unparsable JSON-LD block", "index", i, "error", err)
				return
			}
		}
		collectReviews(data, &records)
	})

	return records
}

// collectReviews walks a JSON-LD value depth-first and appends every Review
// node. It does not descend into a Review once found.
func collectReviews(v any, out *[]types.RawRecord) {
	switch node := v.(type) {
	case []any:
		for _, child := range node {
			collectReviews(child, out)
		}
	case map[string]any:
		if isType(node["@type"], "Review") {
			*out = append(*out, reviewFromJSONLD(node))
			return
		}
		for _, key := range sortedKeys(node) {
			collectReviews(node[key], out)
		}
	}
}

func reviewFromJSONLD(m map[string]any) types.RawRecord {
	rec := types.RawRecord{}
	rec.Set("id", str(m["@id"]))
	rec.Set("title", firstStr(m, "headline", "name"))
	rec.Set("review", firstStr(m, "reviewBody", "description", "text"))
	rec.Set("date", firstStr(m, "datePublished", "dateCreated", "dateModified"))
	rec.Set("source_url", str(m["url"]))

	if rating, ok := m["reviewRating"].(map[string]any); ok {
		setRating(rec, rating["ratingValue"], rating["bestRating"])
	}

	author := m["author"]
	if list, ok := author.([]any); ok && len(list) > 0 {
		author = list[0]
	}
	switch a := author.(type) {
	case string:
		rec.Set("reviewer_name", a)
	case map[string]any:
		rec.Set("reviewer_name", str(a["name"]))
		rec.Set("reviewer_role", str(a["jobTitle"]))
		if org, ok := a["worksFor"].(map[string]any); ok {
			rec.Set("reviewer_company", str(org["name"]))
		} else {
			rec.Set("reviewer_company", str(a["worksFor"]))
		}
		if addr, ok := a["address"].(map[string]any); ok {
			rec.Set("location", firstStr(addr, "addressLocality", "addressRegion", "addressCountry"))
		}
	}

	if item, ok := m["itemReviewed"].(map[string]any); ok {
		rec.Set("item_reviewed", str(item["name"]))
	}
	return rec
}

// setRating stores the rating on five points when both value and scale are
// numeric, else the raw value for the normalizer to judge.
func setRating(rec types.RawRecord, value, best any) {
	if value == nil {
		return
	}
	v, ok := toFloat(value)
	if !ok {
		rec.Set("rating", value)
		return
	}
	if b, ok := toFloat(best); ok {
		v = normalize.Rescale(v, b)
	}
	rec.Set("rating", v)
}

// extractMicrodata parses itemscope elements typed as schema.org/Review.
func (sde *StructuredReviewExtractor) extractMicrodata(doc *goquery.Document) []types.RawRecord {
	var records []types.RawRecord

	doc.Find(`[itemscope][itemtype*="schema.org/Review"]`).Each(func(i int, sel *goquery.Selection) {
		if t, _ := sel.Attr("itemtype"); strings.HasSuffix(t, "ReviewAction") {
			return
		}
		props := ownProps(sel)
		rec := types.RawRecord{}
		rec.Set("title", firstProp(props, "headline", "name"))
		rec.Set("review", firstProp(props, "reviewBody", "description"))
		rec.Set("date", firstProp(props, "datePublished", "dateCreated"))
		rec.Set("source_url", firstProp(props, "url"))

		if r, ok := props["reviewRating"]; ok {
			inner := ownProps(r)
			setRating(rec, nilIfEmpty(firstProp(inner, "ratingValue")), nilIfEmpty(firstProp(inner, "bestRating")))
		} else if v := firstProp(props, "ratingValue"); v != "" {
			setRating(rec, v, nilIfEmpty(firstProp(props, "bestRating")))
		}

		if a, ok := props["author"]; ok {
			if _, scoped := a.Attr("itemscope"); scoped {
				inner := ownProps(a)
				rec.Set("reviewer_name", firstProp(inner, "name"))
				rec.Set("reviewer_role", firstProp(inner, "jobTitle"))
			} else {
				rec.Set("reviewer_name", propValue(a))
			}
		}

		if len(rec) > 0 {
			records = append(records, rec)
		}
	})

	return records
}

// ownProps maps itemprop names to the first element carrying them whose
// nearest enclosing itemscope is scope itself.
func ownProps(scope *goquery.Selection) map[string]*goquery.Selection {
	props := map[string]*goquery.Selection{}
	if len(scope.Nodes) == 0 {
		return props
	}
	root := scope.Nodes[0]
	scope.Find("[itemprop]").Each(func(_ int, prop *goquery.Selection) {
		owner := prop.Parent().Closest("[itemscope]")
		if len(owner.Nodes) == 0 || owner.Nodes[0] != root {
			return
		}
		for _, name := range strings.Fields(prop.AttrOr("itemprop", "")) {
			if _, seen := props[name]; !seen {
				props[name] = prop
			}
		}
	})
	return props
}

func firstProp(props map[string]*goquery.Selection, names ...string) string {
	for _, n := range names {
		if sel, ok := props[n]; ok {
			if v := propValue(sel); v != "" {
				return v
			}
		}
	}
	return ""
}

// propValue reads an itemprop value the way microdata defines it.
func propValue(prop *goquery.Selection) string {
	for _, attr := range []string{"content", "datetime", "href", "src"} {
		if v, ok := prop.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return Text(prop)
}

// PageMeta returns the document title, description and canonical URL.
func PageMeta(doc *goquery.Document) map[string]string {
	meta := map[string]string{}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		meta["og_title"] = og
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && d != "" {
		meta["description"] = d
	}
	if c, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && c != "" {
		meta["canonical"] = c
	}
	return meta
}

func isType(t any, want string) bool {
	switch v := t.(type) {
	case string:
		return v == want || strings.HasSuffix(v, "/"+want)
	case []any:
		for _, x := range v {
			if isType(x, want) {
				return true
			}
		}
	}
	return false
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case map[string]any:
		return str(s["name"])
	}
	return ""
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
