// Package parser extracts raw review records from page HTML.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Locator finds candidate elements inside a scope.
type Locator interface {
	Find(scope *goquery.Selection) *goquery.Selection
	String() string
}

// CSS locates elements with a CSS selector.
type CSS string

func (c CSS) Find(scope *goquery.Selection) *goquery.Selection { return scope.Find(string(c)) }
func (c CSS) String() string { return "css:" + string(c) }

// XPath locates elements with an XPath expression evaluated relative to each
// scope node. It covers text-content matches CSS cannot express.
type XPath string

func (x XPath) Find(scope *goquery.Selection) *goquery.Selection {
	var out *goquery.Selection
	for _, n := range scope.Nodes {
		nodes, err := htmlquery.QueryAll(n, string(x))
		if err != nil || len(nodes) == 0 {
			continue
		}
		found := scope.FindNodes(nodes...)
		if out == nil {
			out = found
		} else {
			out = out.AddSelection(found)
		}
	}
	if out == nil {
		return scope.FindNodes()
	}
	return out
}

func (x XPath) String() string { return "xpath:" + string(x) }

// ContainsText builds an XPath matching tag elements whose text contains s,
// case-insensitively for ASCII letters.
func ContainsText(tag, s string) XPath {
	lower := strings.ToLower(s)
	return XPath(".//" + tag + `[contains(translate(normalize-space(.), "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz"), "` + lower + `")]`)
}

// Extract reads a value from one matched element. Empty means no value.
type Extract func(sel *goquery.Selection) string

// Text extracts the element's trimmed text.
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(BlockText(sel))
}

// Attr extracts an attribute.
func Attr(name string) Extract {
	return func(sel *goquery.Selection) string {
		v, _ := sel.Attr(name)
		return strings.TrimSpace(v)
	}
}

// AttrOrText extracts an attribute, falling back to the element's text.
func AttrOrText(name string) Extract {
	return func(sel *goquery.Selection) string {
		if v := Attr(name)(sel); v != "" {
			return v
		}
		return Text(sel)
	}
}

// Probe pairs a locator with the extractor applied to its matches.
type Probe struct {
	Locator Locator
	Extract Extract
}

// Lookup is an ordered list of probes. The first non-empty value wins; no
// match is a normal outcome, not an error.
type Lookup []Probe

// First returns the first value any probe yields inside scope.
func (l Lookup) First(scope *goquery.Selection) (string, bool) {
	for _, p := range l {
		var found string
		p.Locator.Find(scope).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			found = p.Extract(sel)
			return found == ""
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// Then appends the probes of other after l.
func (l Lookup) Then(other Lookup) Lookup {
	out := make(Lookup, 0, len(l)+len(other))
	return append(append(out, l...), other...)
}

// TextOf builds a lookup reading the text of each CSS selector in order.
func TextOf(selectors ...string) Lookup {
	l := make(Lookup, 0, len(selectors))
	for _, s := range selectors {
		l = append(l, Probe{Locator: CSS(s), Extract: Text})
	}
	return l
}

// AttrOf builds a lookup reading attr from each CSS selector in order.
func AttrOf(attr string, selectors ...string) Lookup {
	l := make(Lookup, 0, len(selectors))
	for _, s := range selectors {
		l = append(l, Probe{Locator: CSS(s), Extract: Attr(attr)})
	}
	return l
}

// Resolve makes href absolute against base. Fragment-only and script links
// are returned unchanged when base is empty.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return href
	}
	return b.ResolveReference(ref).String()
}
