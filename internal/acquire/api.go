package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const apiService = "data API"

// apiFields renames data API attributes to canonical record keys. Earlier
// pairs win when two attributes map to the same key: the publication date is
// the one the site displays, so it beats the submission date.
var apiFields = []struct{ from, to string }{
	{"star_rating", "rating"},
	{"published_at", "date"},
	{"submitted_at", "date"},
	{"user_name", "reviewer_name"},
	{"user_title", "reviewer_role"},
	{"user_company", "reviewer_company"},
	{"country_name", "location"},
	{"review_url", "source_url"},
	{"slug", "product_slug"},
	{"product_name", "item_reviewed"},
	{"verified_user", "verified"},
}

// APIClient reads reviews from a source's first-party data API. Requests are
// paced client-side and never retried.
type APIClient struct {
	http     *resty.Client
	limiter  *rate.Limiter
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// NewAPIClient creates a client authenticated with token.
func NewAPIClient(cfg config.APIConfig, token string, logger *slog.Logger) (*APIClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &types.ConfigurationError{Field: "api_token", Message: "required for api mode"}
	}
	if cfg.BaseURL == "" {
		return nil, &types.ConfigurationError{Field: "api.base_url", Message: "required for api mode"}
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("Authorization", "Token token="+token)
	client.SetHeader("Accept", "application/vnd.api+json, application/json")
	client.SetHeader("User-Agent", "ReviewGoat/"+config.Version)
	client.SetTimeout(cfg.Timeout)
	instrument(client, "reviewgoat/acquire/api")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	return &APIClient{
		http:     client,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
		maxPages: cfg.MaxPages,
		logger:   logger.With("component", "api_client"),
	}, nil
}

// Acquire pages through the product's reviews until a short page or the page
// cap.
func (c *APIClient) Acquire(ctx context.Context, t Target) (*Result, error) {
	if t.Slug == "" {
		return nil, &types.ConfigurationError{Field: "company", Message: "a product slug is required for api mode"}
	}
	path := "/products/" + url.PathEscape(t.Slug) + "/reviews"
	result := &Result{URL: c.http.BaseURL + path}

	for page := 1; c.maxPages <= 0 || page <= c.maxPages; page++ {
		items, err := c.fetchPage(ctx, path, page)
		if err != nil {
			return nil, err
		}
		result.Pages = page
		for _, item := range items {
			result.Records = append(result.Records, apiRecord(item))
		}
		c.logger.Debug("api page read", "page", page, "items", len(items))
		if len(items) < c.pageSize {
			break
		}
	}

	c.logger.Info("api acquisition complete", "slug", t.Slug, "pages", result.Pages, "records", len(result.Records))
	return result, nil
}

func (c *APIClient) fetchPage(ctx context.Context, path string, page int) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page[number]", strconv.Itoa(page)).
		SetQueryParam("page[size]", strconv.Itoa(c.pageSize)).
		Get(path)
	if err != nil {
		return nil, types.NewRemoteServiceError(apiService, 0, nil, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, types.NewRemoteServiceError(apiService, status, resp.Body(), types.ErrUnauthorized)
	case !resp.IsSuccess():
		return nil, types.NewRemoteServiceError(apiService, status, resp.Body(), nil)
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, types.NewRemoteServiceError(apiService, resp.StatusCode(), resp.Body(), fmt.Errorf("decode page %d: %w", page, err))
	}
	return body.Data, nil
}

// apiRecord flattens a JSON:API resource (id plus attributes) or a flat item
// into a raw record with canonical keys where the API's names are known.
func apiRecord(item map[string]any) types.RawRecord {
	rec := types.RawRecord{}
	attrs, nested := item["attributes"].(map[string]any)
	if !nested {
		attrs = item
	}
	for k, v := range attrs {
		rec.Set(k, v)
	}
	if id, ok := item["id"]; ok {
		rec.Set("id", fmt.Sprint(id))
	}
	for _, f := range apiFields {
		if v, ok := rec[f.from]; ok {
			delete(rec, f.from)
			if !rec.Has(f.to) {
				rec.Set(f.to, v)
			}
		}
	}
	if answers, ok := rec["comment_answers"].(map[string]any); ok && !rec.Has("review") {
		rec.Set("review", joinAnswers(answers))
		delete(rec, "comment_answers")
	}
	return rec
}

// joinAnswers renders the question/answer body the data API returns as one
// text block, ordered by question key.
func joinAnswers(answers map[string]any) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch a := answers[k].(type) {
		case string:
			parts = append(parts, strings.TrimSpace(a))
		case map[string]any:
			if v, ok := a["value"].(string); ok && strings.TrimSpace(v) != "" {
				parts = append(parts, strings.TrimSpace(v))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
