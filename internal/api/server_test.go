package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeScraper struct {
	res  *types.ScrapeResult
	err  error
	seen types.Request
}

func (f *fakeScraper) Run(_ context.Context, req types.Request) (*types.ScrapeResult, error) {
	f.seen = req
	return f.res, f.err
}

func okResult() *types.ScrapeResult {
	return &types.ScrapeResult{
		Company:   "Acme",
		Source:    types.SourceG2,
		StartDate: types.MustDate("2025-06-01"),
		EndDate:   types.MustDate("2025-06-30"),
		ScrapedAt: "2025-07-01T12:00:00Z",
		Reviews:   []*types.Review{{Title: "Solid"}},
		Meta:      types.Meta{ReviewsFound: 1, RawReviewsCount: 1},
	}
}

func newTestServer(scraper Scraper, opts ...Option) *httptest.Server {
	srv := NewServer(config.DefaultConfig().Server, scraper, testLogger, opts...)
	return httptest.NewServer(srv.Handler())
}

func postScrape(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url+"/scrape", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

const scrapeBody = `{"source":"directory-a","company":"Acme","start":"2025-06-01","end":"2025-06-30","limit":5}`

func TestHealth(t *testing.T) {
	ts := newTestServer(&fakeScraper{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string   `json:"status"`
		Mode    string   `json:"mode"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "browser", body.Mode)
	assert.Equal(t, []string{"g2", "capterra", "trustradius"}, body.Sources)
}

func TestSources(t *testing.T) {
	ts := newTestServer(&fakeScraper{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sources")
	require.NoError(t, err)
	defer resp.Body.Close()

	var infos []SourceInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	require.Len(t, infos, 3)
	for _, info := range infos {
		assert.NotEmpty(t, info.Aliases, info.Source)
		assert.Contains(t, info.Modes, types.ModeBrowser, info.Source)
	}
}

func TestScrapeOK(t *testing.T) {
	fake := &fakeScraper{res: okResult()}
	ts := newTestServer(fake)
	defer ts.Close()

	resp, data := postScrape(t, ts.URL, scrapeBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var res types.ScrapeResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "Acme", res.Company)
	assert.Len(t, res.Reviews, 1)

	assert.Equal(t, types.Source("directory-a"), fake.seen.Source)
	assert.Equal(t, 5, fake.seen.Limit)
	assert.Equal(t, "2025-06-30", fake.seen.End.String())
}

func TestScrapeErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"configuration", &types.ConfigurationError{Field: "end", Message: "before start"}, http.StatusBadRequest},
		{"snapshot missing", &types.ConfigurationError{Field: "snapshot_path", Message: "gone", Err: types.ErrSnapshotMissing}, http.StatusBadRequest},
		{"discovery", &types.DiscoveryError{Source: types.SourceG2, Company: "Acme"}, http.StatusNotFound},
		{"remote", types.NewRemoteServiceError("data API", 401, nil, types.ErrUnauthorized), http.StatusBadGateway},
		{"environment", &types.ExtractionEnvironmentError{Err: errors.New("no chrome"), Hint: "install chromium"}, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(&fakeScraper{err: tc.err})
			defer ts.Close()

			resp, data := postScrape(t, ts.URL, scrapeBody)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tc.err.Error(), body.Error)
			assert.Empty(t, body.Trace)
		})
	}
}

func TestScrapeHintAndTrace(t *testing.T) {
	err := &types.ExtractionEnvironmentError{Err: errors.New("no chrome"), Hint: "install chromium"}
	ts := newTestServer(&fakeScraper{err: err})
	defer ts.Close()

	body := strings.Replace(scrapeBody, `"limit":5`, `"debug":true`, 1)
	resp, data := postScrape(t, ts.URL, body)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "install chromium", out.Hint)
	assert.Equal(t, []string{"browser automation unavailable: no chrome", "no chrome"}, out.Trace)
}

func TestScrapeInvalidBody(t *testing.T) {
	fake := &fakeScraper{res: okResult()}
	ts := newTestServer(fake)
	defer ts.Close()

	for _, body := range []string{`{not json`, `{"start":"June 1"}`} {
		resp, _ := postScrape(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Empty(t, fake.seen.Company)
}

func TestScrapeStoresResult(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStorage(dir, storage.FormatJSON, testLogger)
	require.NoError(t, err)
	metrics := observability.NewMetrics(testLogger)

	ts := newTestServer(&fakeScraper{res: okResult()}, WithStorage(store), WithMetrics(metrics, "/metrics"))
	defer ts.Close()

	resp, _ := postScrape(t, ts.URL, scrapeBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasSuffix(resp.Header.Get("X-Result-Location"), "Acme-g2-2025-06-01_2025-06-30.json"))

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(mresp.Body)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `reviewgoat_http_requests_total{method="POST",route="/scrape",status="200"} 1`)
	assert.Contains(t, out, `reviewgoat_results_stored_total{backend="json",status="ok"} 1`)
}

func snapshotBody(t *testing.T, path string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"source": "g2", "company": "Acme", "start": "2025-06-01", "end": "2025-06-30",
		"mode": "snapshot", "snapshot_path": path,
	})
	require.NoError(t, err)
	return string(data)
}

func TestScrapeSnapshotPathConfined(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.html"), []byte("<html></html>"), 0o644))
	outside := filepath.Join(t.TempDir(), "secret.html")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link.html")))

	cfg := config.DefaultConfig().Server
	cfg.SnapshotDir = dir

	cases := []struct {
		name string
		cfg  config.ServerConfig
		path string
	}{
		{"absolute path", cfg, "/etc/hostname"},
		{"parent traversal", cfg, "../secret.html"},
		{"nested traversal", cfg, "a/../../secret.html"},
		{"symlink out", cfg, "link.html"},
		{"remote disabled", cfg, "http://169.254.169.254/latest/meta-data"},
		{"no snapshot dir", config.DefaultConfig().Server, "acme.html"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeScraper{res: okResult()}
			ts := httptest.NewServer(NewServer(tc.cfg, fake, testLogger).Handler())
			defer ts.Close()

			resp, data := postScrape(t, ts.URL, snapshotBody(t, tc.path))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, "snapshot_path", body.Field)
			assert.Empty(t, fake.seen.Company, "scraper must not run")
		})
	}
}

func TestScrapeSnapshotInsideDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Server
	cfg.SnapshotDir = dir
	fake := &fakeScraper{res: okResult()}
	ts := httptest.NewServer(NewServer(cfg, fake, testLogger).Handler())
	defer ts.Close()

	resp, data := postScrape(t, ts.URL, snapshotBody(t, "vendors/acme.html"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vendors", "acme.html"), fake.seen.SnapshotPath)
}

func TestScrapeRemoteSnapshotAllowed(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.AllowRemoteSnapshots = true
	fake := &fakeScraper{res: okResult()}
	ts := httptest.NewServer(NewServer(cfg, fake, testLogger).Handler())
	defer ts.Close()

	resp, _ := postScrape(t, ts.URL, snapshotBody(t, "https://www.g2.com/products/acme/reviews"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://www.g2.com/products/acme/reviews", fake.seen.SnapshotPath)
}

func TestMetricsNotMountedWithoutOption(t *testing.T) {
	ts := newTestServer(&fakeScraper{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &types.DiscoveryError{Source: types.SourceCapterra})
	assert.Equal(t, http.StatusNotFound, StatusFor(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(context.DeadlineExceeded))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.DefaultConfig().Server
	cfg.ShutdownTimeout = time.Second
	srv := NewServer(cfg, &fakeScraper{}, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
