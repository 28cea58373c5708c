package types

import (
	"bytes"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is the HTML of one loaded page, captured from a browser, an HTTP
// fetch or a file on disk.
type Snapshot struct {
	// URL is the page URL after redirects. May be empty for files.
	URL string

	// Body is the raw HTML.
	Body []byte

	// CapturedAt is when the HTML was read.
	CapturedAt time.Time

	doc *goquery.Document
}

// NewSnapshot wraps page HTML.
func NewSnapshot(pageURL string, body []byte) *Snapshot {
	return &Snapshot{URL: pageURL, Body: body, CapturedAt: time.Now()}
}

// Document returns a parsed goquery document, lazily initializing it.
func (s *Snapshot) Document() (*goquery.Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.Body))
	if err != nil {
		return nil, &ParseError{URL: s.URL, Err: err}
	}
	s.doc = doc
	return doc, nil
}

// Text returns the visible text of the page body.
func (s *Snapshot) Text() string {
	doc, err := s.Document()
	if err != nil {
		return ""
	}
	return doc.Find("body").Text()
}
