package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const crawlerService = "crawling service"

// CrawlerClient delegates fetching and rendering to a managed crawling
// service. It submits one run, then polls the run's dataset.
type CrawlerClient struct {
	http   *resty.Client
	cfg    config.CrawlerConfig
	token  string
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCrawlerClient creates a client authenticated with token.
func NewCrawlerClient(cfg config.CrawlerConfig, token string, logger *slog.Logger) (*CrawlerClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &types.ConfigurationError{Field: "crawler_token", Message: "required for crawler mode"}
	}
	if cfg.Actor == "" {
		return nil, &types.ConfigurationError{Field: "crawler.actor", Message: "required for crawler mode"}
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "ReviewGoat/"+config.Version)
	client.SetTimeout(cfg.Timeout)
	instrument(client, "reviewgoat/acquire/crawler")

	return &CrawlerClient{
		http:   client,
		cfg:    cfg,
		token:  token,
		logger: logger.With("component", "crawler_client"),
		sleep:  sleepCtx,
	}, nil
}

type runResponse struct {
	Data struct {
		ID               string `json:"id"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// Acquire crawls t.URL and maps each dataset item to a best-effort record.
// An exhausted poll budget returns an empty result, not an error.
func (c *CrawlerClient) Acquire(ctx context.Context, t Target) (*Result, error) {
	if t.URL == "" {
		return nil, &types.ConfigurationError{Field: "product_url", Message: "a start URL is required for crawler mode"}
	}

	run, err := c.startRun(ctx, t.URL)
	if err != nil {
		return nil, err
	}
	c.logger.Info("crawler run started", "run", run.Data.ID, "dataset", run.Data.DefaultDatasetID, "url", t.URL)

	items, err := c.pollDataset(ctx, run.Data.DefaultDatasetID)
	if err != nil {
		return nil, err
	}

	result := &Result{URL: t.URL, Pages: len(items)}
	for _, item := range items {
		result.Records = append(result.Records, crawlerRecord(item, c.logger))
	}
	return result, nil
}

func (c *CrawlerClient) startRun(ctx context.Context, startURL string) (*runResponse, error) {
	maxPages := c.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	payload := map[string]any{
		"startUrls":        []map[string]string{{"url": startURL}},
		"maxPagesPerCrawl": maxPages,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/v2/acts/" + url.PathEscape(c.cfg.Actor) + "/runs")
	if err != nil {
		return nil, types.NewRemoteServiceError(crawlerService, 0, nil, err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}

	var run runResponse
	if err := json.Unmarshal(resp.Body(), &run); err != nil {
		return nil, types.NewRemoteServiceError(crawlerService, resp.StatusCode(), resp.Body(), fmt.Errorf("decode run: %w", err))
	}
	if run.Data.DefaultDatasetID == "" {
		return nil, types.NewRemoteServiceError(crawlerService, resp.StatusCode(), resp.Body(), fmt.Errorf("run has no dataset"))
	}
	return &run, nil
}

func (c *CrawlerClient) pollDataset(ctx context.Context, datasetID string) ([]map[string]any, error) {
	attempts := c.cfg.PollAttempts
	if attempts <= 0 {
		attempts = 1
	}
	path := "/v2/datasets/" + url.PathEscape(datasetID) + "/items"

	for i := 1; i <= attempts; i++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("token", c.token).
			SetQueryParam("clean", "true").
			Get(path)
		if err != nil {
			return nil, types.NewRemoteServiceError(crawlerService, 0, nil, err)
		}
		if err := statusError(resp); err != nil {
			return nil, err
		}

		var items []map[string]any
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return nil, types.NewRemoteServiceError(crawlerService, resp.StatusCode(), resp.Body(), fmt.Errorf("decode dataset: %w", err))
		}
		if len(items) > 0 {
			c.logger.Debug("dataset populated", "attempt", i, "items", len(items))
			return items, nil
		}

		if i < attempts {
			if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Warn("crawler dataset still empty", "dataset", datasetID, "attempts", attempts)
	return nil, nil
}

func statusError(resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewRemoteServiceError(crawlerService, status, resp.Body(), types.ErrUnauthorized)
	case !resp.IsSuccess():
		return types.NewRemoteServiceError(crawlerService, status, resp.Body(), nil)
	}
	return nil
}

// crawlerRecord maps a generic page item. Most review fields stay empty: the
// service returns page content, not reviews.
func crawlerRecord(item map[string]any, logger *slog.Logger) types.RawRecord {
	meta, _ := item["metadata"].(map[string]any)

	rec := types.RawRecord{}
	rec.Set("title", firstString(item, meta, "title"))
	rec.Set("review", firstString(item, nil, "text", "markdown"))
	rec.Set("source_url", firstString(item, nil, "url"))
	rec.Set("date", firstString(item, meta, "date", "publishedAt"))
	rec.Set("reviewer_name", firstString(item, meta, "author"))
	if r, ok := item["rating"]; ok {
		rec.Set("rating", r)
	}

	if html, ok := item["html"].(string); ok && html != "" {
		pageURL, _ := url.Parse(rec.GetString("source_url"))
		article, err := readability.FromReader(strings.NewReader(html), pageURL)
		if err != nil {
			logger.Debug("readability failed", "url", rec.GetString("source_url"), "error", err)
			return rec
		}
		if !rec.Has("title") {
			rec.Set("title", article.Title)
		}
		if !rec.Has("review") {
			rec.Set("review", contentText(article.Content))
		}
	}
	return rec
}

// contentText flattens readability's cleaned HTML to text.
func contentText(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstString(item, meta map[string]any, keys ...string) string {
	for _, m := range []map[string]any{item, meta} {
		for _, k := range keys {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
