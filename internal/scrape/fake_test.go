package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ReviewGoat/internal/parser"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakePage serves canned HTML by URL. Clicking an element follows its href
// or data-goto attribute.
type fakePage struct {
	sites     map[string]string
	current   string
	navigated []string
	clicks    []string
	typed     map[string]string
	submitTo  string
}

func newFakePage(sites map[string]string) *fakePage {
	return &fakePage{sites: sites, typed: map[string]string{}}
}

func (f *fakePage) Navigate(_ context.Context, u string) error {
	f.navigated = append(f.navigated, u)
	if _, ok := f.sites[u]; !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", u)
	}
	f.current = u
	return nil
}

func (f *fakePage) URL() string { return f.current }

func (f *fakePage) HTML(context.Context) ([]byte, error) {
	return []byte(f.sites[f.current]), nil
}

func (f *fakePage) doc() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.sites[f.current]))
	if err != nil {
		panic(err)
	}
	return doc
}

func (f *fakePage) WaitFor(_ context.Context, selectors []string, _ time.Duration) (string, bool) {
	doc := f.doc()
	for _, s := range selectors {
		if doc.Find(s).Length() > 0 {
			return s, true
		}
	}
	return "", false
}

func (f *fakePage) Click(ctx context.Context, t sources.Target) (bool, error) {
	var re *regexp.Regexp
	if t.Text != "" {
		re = regexp.MustCompile("(?i)" + t.Text)
	}

	var (
		found  bool
		target string
	)
	f.doc().Find(t.CSS).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if re != nil && !re.MatchString(strings.TrimSpace(s.Text())) {
			return true
		}
		found = true
		target = s.AttrOr("href", s.AttrOr("data-goto", ""))
		return false
	})
	if !found {
		return false, nil
	}

	f.clicks = append(f.clicks, t.String())
	if target == "" {
		return true, nil
	}
	return true, f.Navigate(ctx, parser.Resolve(f.current, target))
}

func (f *fakePage) Type(_ context.Context, selector, text string) error {
	f.typed[selector] = text
	return nil
}

func (f *fakePage) Submit(ctx context.Context) error {
	return f.Navigate(ctx, f.submitTo)
}

func (f *fakePage) Wander(context.Context) {}

func (f *fakePage) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (f *fakePage) visited(u string) bool {
	for _, n := range f.navigated {
		if n == u {
			return true
		}
	}
	return false
}

type fixtureReview struct {
	id, title, date string
	rating          float64
}

// reviewsPage renders reviews as JSON-LD with an optional load-more button.
func reviewsPage(next string, reviews ...fixtureReview) string {
	items := make([]string, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, fmt.Sprintf(
			`{"@type":"Review","@id":%q,"name":%q,"reviewBody":"Body of %s","datePublished":%q,"reviewRating":{"ratingValue":%v,"bestRating":5}}`,
			r.id, r.title, r.title, r.date, r.rating))
	}
	button := ""
	if next != "" {
		button = fmt.Sprintf(`<button data-goto=%q>Load more</button>`, next)
	}
	return fmt.Sprintf(`<html><head><title>Acme Reviews</title>
<script type="application/ld+json">{"@type":"Product","name":"Acme","review":[%s]}</script>
</head><body><h1>Acme reviews</h1>%s</body></html>`, strings.Join(items, ","), button)
}
