package pipeline

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// TrimMiddleware trims whitespace from all string fields and drops fields
// left empty.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec types.RawRecord) (types.RawRecord, error) {
	for _, key := range rec.Keys() {
		s, ok := rec[key].(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s == "" {
			delete(rec, key)
			continue
		}
		rec[key] = s
	}
	return rec, nil
}

// HTMLSanitizeMiddleware strips HTML tags from the named string fields.
type HTMLSanitizeMiddleware struct {
	fields  []string
	stripRe *regexp.Regexp
	spaceRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware(fields ...string) *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		fields:  fields,
		stripRe: regexp.MustCompile(`<[^>]*>`),
		spaceRe: regexp.MustCompile(`[ \t\f\v]+`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec types.RawRecord) (types.RawRecord, error) {
	for _, key := range m.fields {
		s := rec.GetString(key)
		if s == "" {
			continue
		}
		cleaned := m.stripRe.ReplaceAllString(s, " ")
		cleaned = html.UnescapeString(cleaned)
		// Collapse runs of blanks per line; line breaks feed text inference.
		lines := strings.Split(cleaned, "\n")
		kept := lines[:0]
		for _, line := range lines {
			line = strings.TrimSpace(m.spaceRe.ReplaceAllString(line, " "))
			if line != "" {
				kept = append(kept, line)
			}
		}
		rec[key] = strings.Join(kept, "\n")
	}
	return rec, nil
}

// RequireContentMiddleware drops records carrying none of the fields that
// make a review worth keeping.
type RequireContentMiddleware struct {
	// Fields defaults to title, review and rating aliases.
	Fields []string
}

var contentFields = []string{"title", "headline", "name", "review", "reviewBody", "body", "text", "rating", "ratingValue"}

func (m *RequireContentMiddleware) Name() string { return "require_content" }

func (m *RequireContentMiddleware) Process(rec types.RawRecord) (types.RawRecord, error) {
	fields := m.Fields
	if len(fields) == 0 {
		fields = contentFields
	}
	for _, f := range fields {
		if rec.Has(f) {
			return rec, nil
		}
	}
	return nil, nil
}

// DedupMiddleware drops records already seen in this run. The key is the
// review id when present, else a hash of the record's content.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec types.RawRecord) (types.RawRecord, error) {
	key := Fingerprint(rec)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// Seen returns how many distinct records passed.
func (m *DedupMiddleware) Seen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// Fingerprint derives the dedup key of a record. Links are hashed with the
// content, never used alone: many pages give every review the page URL.
func Fingerprint(rec types.RawRecord) string {
	for _, k := range []string{"id", "review_id", "@id"} {
		if s := rec.GetString(k); s != "" {
			return k + ":" + s
		}
	}
	h := sha1.New()
	for _, k := range []string{"title", "headline", "name", "review", "reviewBody", "date", "datePublished", "reviewer_name", "author", "source_url", "url"} {
		if v, ok := rec[k]; ok && v != nil {
			fmt.Fprintf(h, "%s=%v;", k, v)
		}
	}
	return "hash:" + hex.EncodeToString(h.Sum(nil))
}
