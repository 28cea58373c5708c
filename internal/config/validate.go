package config

import (
	"fmt"
	"net/url"
	"strings"
)

// StorageTypes lists the supported storage backends.
var StorageTypes = []string{"json", "yaml", "csv", "mongo", "mongodb", "sqlite", "redis"}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.PolitenessDelay < 0 {
		return fmt.Errorf("scrape.politeness_delay must be >= 0")
	}
	if cfg.Scrape.WaitTimeout <= 0 {
		return fmt.Errorf("scrape.wait_timeout must be > 0")
	}
	if cfg.Scrape.NavigationTimeout <= 0 {
		return fmt.Errorf("scrape.navigation_timeout must be > 0")
	}
	if cfg.Scrape.MaxPages < 1 {
		return fmt.Errorf("scrape.max_pages must be >= 1, got %d", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.MatchThreshold < 0 || cfg.Scrape.MatchThreshold > 1 {
		return fmt.Errorf("scrape.match_threshold must be within [0,1], got %v", cfg.Scrape.MatchThreshold)
	}
	for source, ordering := range cfg.Scrape.Ordering {
		if ordering != OrderingNewestFirst && ordering != OrderingUnsorted {
			return fmt.Errorf("scrape.ordering.%s must be %q or %q, got %q", source, OrderingNewestFirst, OrderingUnsorted, ordering)
		}
	}

	if cfg.Browser.TypingDelayMin < 0 || cfg.Browser.TypingDelayMax < cfg.Browser.TypingDelayMin {
		return fmt.Errorf("browser.typing_delay_min/max must satisfy 0 <= min <= max")
	}
	if cfg.Browser.Proxy != "" {
		if _, err := url.Parse(cfg.Browser.Proxy); err != nil {
			return fmt.Errorf("invalid browser.proxy %q: %w", cfg.Browser.Proxy, err)
		}
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if err := ValidateURL(cfg.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if cfg.API.PageSize < 1 || cfg.API.PageSize > 100 {
		return fmt.Errorf("api.page_size must be 1-100, got %d", cfg.API.PageSize)
	}
	if cfg.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.requests_per_second must be > 0")
	}

	if err := ValidateURL(cfg.Crawler.BaseURL); err != nil {
		return fmt.Errorf("crawler.base_url: %w", err)
	}
	if cfg.Crawler.PollAttempts < 1 {
		return fmt.Errorf("crawler.poll_attempts must be >= 1, got %d", cfg.Crawler.PollAttempts)
	}
	if cfg.Crawler.PollInterval < 0 {
		return fmt.Errorf("crawler.poll_interval must be >= 0")
	}

	valid := map[string]bool{}
	for _, t := range StorageTypes {
		valid[t] = true
	}
	for _, t := range cfg.Storage.Types {
		if !valid[t] {
			return fmt.Errorf("storage.types entry %q is not supported (valid: %s)", t, strings.Join(StorageTypes, ", "))
		}
		if (t == "mongo" || t == "mongodb") && cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongo backend")
		}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

// ValidateURL checks if a URL string is a usable absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
