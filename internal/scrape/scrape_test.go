package scrape

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const acmeReviews = "https://www.g2.com/products/acme/reviews"

var window = types.Window{Start: types.MustDate("2024-01-01"), End: types.MustDate("2024-06-30")}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scrape.PolitenessDelay = 0
	cfg.Scrape.WaitTimeout = 0
	cfg.Storage.OutputPath = t.TempDir()
	return cfg
}

func g2Job(company, productURL string) Job {
	return NewJob(sources.G2, types.Request{
		Source:     types.SourceG2,
		Company:    company,
		ProductURL: productURL,
		Start:      window.Start,
		End:        window.End,
	})
}

// --- First-success combinator ---

func TestFirstSuccess(t *testing.T) {
	var ran []string
	step := func(name string, err error) Strategy[string] {
		return Strategy[string]{Name: name, Attempt: func(context.Context) (string, error) {
			ran = append(ran, name)
			if err != nil {
				return "", err
			}
			return name + "-result", nil
		}}
	}

	got, via, err := FirstSuccess(context.Background(), testLogger, "test", []Strategy[string]{
		step("a", ErrDeclined),
		step("b", errors.New("boom")),
		step("c", nil),
		step("d", nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "c-result", got)
	assert.Equal(t, "c", via)
	assert.Equal(t, []string{"a", "b", "c"}, ran)
}

func TestFirstSuccessAllFail(t *testing.T) {
	_, _, err := FirstSuccess(context.Background(), testLogger, "test", []Strategy[int]{
		{Name: "a", Attempt: func(context.Context) (int, error) { return 0, ErrDeclined }},
		{Name: "b", Attempt: func(context.Context) (int, error) { return 0, types.ErrBlocked }},
	})
	var attempts *AttemptsError
	require.ErrorAs(t, err, &attempts)
	assert.Equal(t, []string{"b"}, attempts.Tried())
	assert.ErrorIs(t, err, types.ErrBlocked)
}

func TestFirstSuccessStopsOnEnvironmentError(t *testing.T) {
	called := false
	_, _, err := FirstSuccess(context.Background(), testLogger, "test", []Strategy[int]{
		{Name: "a", Attempt: func(context.Context) (int, error) {
			return 0, &types.ExtractionEnvironmentError{Err: errors.New("no chrome")}
		}},
		{Name: "b", Attempt: func(context.Context) (int, error) { called = true; return 1, nil }},
	})
	var envErr *types.ExtractionEnvironmentError
	assert.ErrorAs(t, err, &envErr)
	assert.False(t, called)
}

func TestFirstSuccessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := FirstSuccess(ctx, testLogger, "test", []Strategy[int]{
		{Name: "a", Attempt: func(context.Context) (int, error) { return 1, nil }},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Candidates ---

func TestScore(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/products/acme/reviews", 6},
		{"/products/acme", 5},
		{"/compare/acme-vs-other", 2},
		{"/products/other/reviews", 1},
		{"/categories/crm", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.path, "acme", "/products/"))
		})
	}
}

func TestCandidatesRankingAndTies(t *testing.T) {
	page := `<html><body>
<a href="/products/other">Other</a>
<a href="/products/acme-suite">Acme Suite</a>
<a href="/products/acme-tools">Acme Tools</a>
<a href="#top">Top</a>
<a href="/products/acme-suite">Duplicate</a>
</body></html>`
	f := newFakePage(map[string]string{"https://www.g2.com/search": page})
	f.current = "https://www.g2.com/search"

	cands := Candidates(f.doc(), []string{`a[href*="/products/"]`}, f.current, "acme", "/products/")
	require.Len(t, cands, 3)
	assert.Equal(t, "https://www.g2.com/products/acme-suite", cands[0].URL, "tie broken by page order")
	assert.Equal(t, "https://www.g2.com/products/acme-tools", cands[1].URL)
	assert.Equal(t, "https://www.g2.com/products/other", cands[2].URL)
}

// --- Navigator ---

func TestNavigatorExplicit(t *testing.T) {
	f := newFakePage(map[string]string{})
	nav := NewNavigator(f, testConfig(t).Scrape, testLogger)

	got, via, err := nav.Resolve(context.Background(), g2Job("Acme", "https://www.g2.com/products/acme/"))
	require.NoError(t, err)
	assert.Equal(t, acmeReviews, got)
	assert.Equal(t, "explicit", via)
	assert.Empty(t, f.navigated, "explicit URLs need no round trip")
}

func TestNavigatorDirectGuess(t *testing.T) {
	u := "https://www.g2.com/products/acme-crm/reviews"
	f := newFakePage(map[string]string{
		u: reviewsPage("", fixtureReview{"r1", "Good", "2024-02-01", 4}),
	})
	nav := NewNavigator(f, testConfig(t).Scrape, testLogger)

	got, via, err := nav.Resolve(context.Background(), g2Job("Acme CRM", ""))
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.Equal(t, "direct-guess", via)
}

func TestNavigatorBlockedFallsBackToSearch(t *testing.T) {
	searchURL := sources.SearchURL(sources.G2.SearchURLs[0], "Acme CRM")
	f := newFakePage(map[string]string{
		"https://www.g2.com/products/acme-crm/reviews": `<html><head><title>Access Denied</title></head><body>nope</body></html>`,
		searchURL: `<html><body>
<a class="result-card__name" href="/products/acme-crm-lite">Acme CRM Lite</a>
<a href="/products/acme-crm/reviews">Acme CRM reviews</a>
</body></html>`,
	})
	nav := NewNavigator(f, testConfig(t).Scrape, testLogger)

	got, via, err := nav.Resolve(context.Background(), g2Job("Acme CRM", ""))
	require.NoError(t, err)
	assert.Equal(t, "search", via)
	assert.Equal(t, "https://www.g2.com/products/acme-crm/reviews", got)
}

func TestNavigatorInteractive(t *testing.T) {
	f := newFakePage(map[string]string{
		"https://www.g2.com/": `<html><body><form><input type="search" name="query"></form></body></html>`,
		"https://www.g2.com/search?query=acme": `<html><body>
<a class="result-card__name" href="/products/other">Other Thing</a>
<a class="result-card__name" href="/products/acme-crm">Acme CRM</a>
</body></html>`,
		"https://www.g2.com/products/acme-crm": `<html><body><nav><a href="/products/acme-crm/reviews">Reviews</a></nav></body></html>`,
		"https://www.g2.com/products/acme-crm/reviews": `<html><body>
<div data-testid="review-card"><h3>Great</h3><p>Works well.</p></div>
</body></html>`,
	})
	f.submitTo = "https://www.g2.com/search?query=acme"
	nav := NewNavigator(f, testConfig(t).Scrape, testLogger)

	got, via, err := nav.Resolve(context.Background(), g2Job("Acme", ""))
	require.NoError(t, err)
	assert.Equal(t, "interactive", via)
	assert.Equal(t, "https://www.g2.com/products/acme-crm/reviews", got)
	assert.Equal(t, "Acme", f.typed[`input[type="search"]`])
	assert.False(t, f.visited("https://www.g2.com/products/other"))
}

func TestNavigatorNotFound(t *testing.T) {
	f := newFakePage(map[string]string{})
	nav := NewNavigator(f, testConfig(t).Scrape, testLogger)

	_, _, err := nav.Resolve(context.Background(), g2Job("Nope", ""))
	var discErr *types.DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, types.SourceG2, discErr.Source)
	assert.Equal(t, []string{"direct-guess", "interactive", "search"}, discErr.Tried)
	assert.Contains(t, err.Error(), "product page not found")
}

func TestNavigatorCapterraHasNoDirectGuess(t *testing.T) {
	f := newFakePage(map[string]string{})
	job := NewJob(sources.Capterra, types.Request{Source: types.SourceCapterra, Company: "Acme"})
	_, _, err := NewNavigator(f, testConfig(t).Scrape, testLogger).Resolve(context.Background(), job)

	var discErr *types.DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, []string{"search"}, discErr.Tried)
	assert.Equal(t, []string{
		"https://www.capterra.in/search/?q=Acme",
		"https://www.capterra.com/search/?q=Acme",
	}, f.navigated, "regional search first, then .com")
}

func TestNavigatorSearchBlockedStopsRegionalFallback(t *testing.T) {
	f := newFakePage(map[string]string{
		"https://www.capterra.in/search/?q=Acme": `<html><head><title>Access Denied</title></head><body>nope</body></html>`,
		"https://www.capterra.com/search/?q=Acme": `<html><body>
<a href="/p/123/Acme/">Acme</a>
</body></html>`,
	})
	job := NewJob(sources.Capterra, types.Request{Source: types.SourceCapterra, Company: "Acme"})
	_, _, err := NewNavigator(f, testConfig(t).Scrape, testLogger).Resolve(context.Background(), job)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBlocked)
	assert.Equal(t, []string{"https://www.capterra.in/search/?q=Acme"}, f.navigated)
}

// --- Extractor ---

func TestExtractorPrefersStructured(t *testing.T) {
	html := reviewsPage("", fixtureReview{"r1", "Good", "2024-02-01", 4}) +
		`<div data-testid="review-card"><h3>Card</h3></div>`
	records, via := NewExtractor(sources.G2, testLogger).Extract(context.Background(), types.NewSnapshot(acmeReviews, []byte(html)))
	assert.Equal(t, StrategyStructured, via)
	require.Len(t, records, 1)
	assert.Equal(t, "Good", records[0].GetString("title"))
}

func TestExtractorHeuristic(t *testing.T) {
	html := `<html><body>
<div data-testid="review-card"><h3>Card one</h3><time datetime="2024-03-01"></time><div aria-label="4 out of 5"></div></div>
<div data-testid="review-card"><p>Untitled body</p></div>
</body></html>`
	records, via := NewExtractor(sources.G2, testLogger).Extract(context.Background(), types.NewSnapshot(acmeReviews, []byte(html)))
	assert.Equal(t, StrategyHeuristic, via)
	require.Len(t, records, 2)
	assert.Equal(t, "Card one", records[0].GetString("title"))
	assert.Equal(t, 4.0, records[0]["rating"])
}

func TestExtractorTextInference(t *testing.T) {
	html := `<html><body>
<div class="review-card">
  <p>Rating: 8 out of 10</p>
  <p>Jane Doe</p>
  <p>March 5, 2024</p>
  <p>Solid analytics suite</p>
  <p>We rely on it every week.</p>
</div>
</body></html>`
	records, via := NewExtractor(sources.TrustRadius, testLogger).Extract(context.Background(),
		types.NewSnapshot("https://www.trustradius.com/products/acme/reviews", []byte(html)))
	assert.Equal(t, StrategyTextInference, via)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Solid analytics suite", rec.GetString("title"))
	assert.Equal(t, "March 5, 2024", rec.GetString("date"))
	assert.Equal(t, "8", rec.GetString("rating"))
	assert.Equal(t, "10", rec.GetString("rating_scale"))
}

func TestExtractorNothing(t *testing.T) {
	records, via := NewExtractor(sources.G2, testLogger).Extract(context.Background(),
		types.NewSnapshot(acmeReviews, []byte(`<html><body><p>hello</p></body></html>`)))
	assert.Empty(t, records)
	assert.Empty(t, via)
}

func TestBlockMarker(t *testing.T) {
	m, ok := BlockMarker(types.NewSnapshot("", []byte(`<html><body><h1>Please complete the CAPTCHA</h1></body></html>`)))
	assert.True(t, ok)
	assert.Equal(t, "captcha", m)

	_, ok = BlockMarker(types.NewSnapshot("", []byte(`<html><body><script>loadRecaptcha()</script><p>Reviews</p></body></html>`)))
	assert.False(t, ok, "script text is not visible text")
}

// --- Window filter ---

func TestWindowFilter(t *testing.T) {
	records := []types.RawRecord{
		{"title": "in", "date": "2024-03-01"},
		{"title": "start edge", "date": "2024-01-01"},
		{"title": "end edge", "date": "June 30, 2024"},
		{"title": "before", "date": "2023-12-31"},
		{"title": "after", "date": "2024-07-01"},
		{"title": "undated", "date": "whenever"},
		{"title": "no date"},
	}

	v := WindowFilter{Window: window, KeepUndated: true}.Apply(records)
	var titles []string
	for _, r := range v.Kept {
		titles = append(titles, r.GetString("title"))
	}
	assert.Equal(t, []string{"in", "start edge", "end edge", "undated", "no date"}, titles)
	assert.Equal(t, 5, v.Dated)
	assert.Equal(t, 3, v.InWindow)
	assert.Equal(t, 1, v.Older)
	assert.False(t, v.PastWindow())

	strict := WindowFilter{Window: window}.Apply(records)
	assert.Len(t, strict.Kept, 3)
}

func TestVerdictPastWindow(t *testing.T) {
	f := WindowFilter{Window: window, KeepUndated: true}
	assert.True(t, f.Apply([]types.RawRecord{{"date": "2023-05-01"}, {"date": "x"}}).PastWindow())
	assert.False(t, f.Apply([]types.RawRecord{{"date": "2023-05-01"}, {"date": "2024-09-01"}}).PastWindow(),
		"a newer record means the page is not past the window")
	assert.False(t, f.Apply([]types.RawRecord{{"date": "x"}}).PastWindow(), "no parsable dates")
}

func TestWindowFilterReviews(t *testing.T) {
	in := types.MustDate("2024-02-02")
	out := types.MustDate("2025-01-01")
	reviews := []*types.Review{{Title: "in", Date: &in}, {Title: "out", Date: &out}, {Title: "undated"}}

	kept := WindowFilter{Window: window, KeepUndated: true}.Reviews(reviews)
	require.Len(t, kept, 2)
	assert.Equal(t, "undated", kept[1].Title)
}

// --- Controller ---

func pagedSite() map[string]string {
	return map[string]string{
		acmeReviews: reviewsPage("/products/acme/reviews?page=2",
			fixtureReview{"r1", "One", "2024-06-20", 5},
			fixtureReview{"r2", "Two", "2024-05-10", 4},
			fixtureReview{"r3", "Three", "2024-04-01", 4.5},
			fixtureReview{"r4", "Four", "2024-03-15", 3},
			fixtureReview{"r5", "Five", "2024-02-01", 2},
		),
		acmeReviews + "?page=2": reviewsPage("/products/acme/reviews?page=3",
			fixtureReview{"r6", "Six", "2023-12-20", 4},
			fixtureReview{"r7", "Seven", "2023-11-02", 4},
			fixtureReview{"r8", "Eight", "2023-10-09", 1},
		),
		acmeReviews + "?page=3": reviewsPage("",
			fixtureReview{"r9", "Nine", "2023-08-01", 4},
			fixtureReview{"r10", "Ten", "2023-07-01", 4},
		),
	}
}

func TestControllerEarlyStop(t *testing.T) {
	f := newFakePage(pagedSite())
	out, err := NewController(f, testConfig(t), testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)

	assert.Len(t, out.Records, 5)
	assert.Equal(t, 8, out.RawCount)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, "past date window", out.StopReason)
	assert.Equal(t, "explicit", out.Navigation)
	assert.Equal(t, StrategyStructured, out.Extraction)
	assert.False(t, f.visited(acmeReviews+"?page=3"), "page 3 must never be requested")
}

func TestControllerUnsortedDisablesEarlyStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.Ordering = map[string]string{"g2": config.OrderingUnsorted}
	f := newFakePage(pagedSite())

	out, err := NewController(f, cfg, testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Pages)
	assert.Equal(t, 10, out.RawCount)
	assert.Len(t, out.Records, 5)
	assert.Equal(t, "no next page", out.StopReason)
}

func TestControllerMaxPages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 1
	f := newFakePage(pagedSite())

	out, err := NewController(f, cfg, testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pages)
	assert.Equal(t, "max pages reached", out.StopReason)
}

func TestControllerLoadMoreKeepsOnlyNewRecords(t *testing.T) {
	r1 := fixtureReview{"r1", "One", "2024-06-20", 5}
	r2 := fixtureReview{"r2", "Two", "2024-05-10", 4}
	r3 := fixtureReview{"r3", "Three", "2024-04-01", 4}
	f := newFakePage(map[string]string{
		acmeReviews:          reviewsPage("?p=2", r1, r2),
		acmeReviews + "?p=2": reviewsPage("?p=3", r1, r2, r3),
		acmeReviews + "?p=3": reviewsPage("?p=4", r1, r2, r3),
		acmeReviews + "?p=4": reviewsPage("", r1, r2, r3),
	})

	out, err := NewController(f, testConfig(t), testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)
	assert.Equal(t, 3, out.RawCount)
	assert.Len(t, out.Records, 3)
	assert.Equal(t, 3, out.Pages)
	assert.Equal(t, "no new reviews", out.StopReason)
	assert.False(t, f.visited(acmeReviews+"?p=4"))
}

func TestControllerKeepsUndated(t *testing.T) {
	site := map[string]string{
		acmeReviews: reviewsPage("",
			fixtureReview{"r1", "Dated", "2024-02-01", 4},
			fixtureReview{"r2", "Undated", "someday", 4},
			fixtureReview{"r3", "Old", "2020-01-01", 4},
		),
	}

	out, err := NewController(newFakePage(site), testConfig(t), testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)
	assert.Len(t, out.Records, 2)
	assert.Equal(t, 3, out.RawCount)

	cfg := testConfig(t)
	cfg.Scrape.KeepUndated = false
	out, err = NewController(newFakePage(site), cfg, testLogger).Run(context.Background(), g2Job("Acme", acmeReviews))
	require.NoError(t, err)
	assert.Len(t, out.Records, 1)
}

func TestControllerDiscoveryFailureWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	job := g2Job("Nope", "")
	job.Debug = true

	_, err := NewController(newFakePage(map[string]string{}), cfg, testLogger).Run(context.Background(), job)
	var discErr *types.DiscoveryError
	require.ErrorAs(t, err, &discErr)

	entries, err := os.ReadDir(filepath.Join(cfg.Storage.OutputPath, "debug"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "html and screenshot")
}
