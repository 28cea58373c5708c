package types

import (
	"fmt"
	"strings"
)

// Source identifies a supported review directory.
type Source string

const (
	SourceG2          Source = "g2"
	SourceCapterra    Source = "capterra"
	SourceTrustRadius Source = "trustradius"
)

// Sources lists every supported source in display order.
var Sources = []Source{SourceG2, SourceCapterra, SourceTrustRadius}

var sourceAliases = map[string]Source{
	"g2":            SourceG2,
	"directory-a":   SourceG2,
	"capterra":      SourceCapterra,
	"marketplace-b": SourceCapterra,
	"trustradius":   SourceTrustRadius,
	"review-site-c": SourceTrustRadius,
}

// ParseSource resolves a source identifier or one of its aliases.
func ParseSource(s string) (Source, error) {
	if src, ok := sourceAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return src, nil
	}
	return "", &ConfigurationError{Field: "source", Message: fmt.Sprintf("unsupported source %q", s)}
}

// Mode is the acquisition strategy family.
type Mode string

const (
	ModeBrowser  Mode = "browser"
	ModeAPI      Mode = "api"
	ModeCrawler  Mode = "crawler"
	ModeSnapshot Mode = "snapshot"
)

// ParseMode resolves an acquisition mode name. Empty means browser.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "browser", "interactive", "interactive-browser":
		return ModeBrowser, nil
	case "api", "direct-api":
		return ModeAPI, nil
	case "crawler", "crawling-service":
		return ModeCrawler, nil
	case "snapshot", "offline", "offline-snapshot":
		return ModeSnapshot, nil
	}
	return "", &ConfigurationError{Field: "mode", Message: fmt.Sprintf("unsupported acquisition mode %q", s)}
}

// Request is the acquisition request consumed by the engine.
type Request struct {
	Source       Source `json:"source"`
	Company      string `json:"company"`
	Start        Date   `json:"start"`
	End          Date   `json:"end"`
	ProductURL   string `json:"product_url,omitempty"`
	Mode         Mode   `json:"mode,omitempty"`
	APIToken     string `json:"api_token,omitempty"`
	CrawlerToken string `json:"crawler_token,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Debug        bool   `json:"debug,omitempty"`
	Headless     *bool  `json:"headless,omitempty"`
}

// Window returns the request's date window.
func (r Request) Window() Window {
	return Window{Start: r.Start, End: r.End}
}

// Validate checks the fields every mode needs. Mode-specific credentials are
// checked by the engine against configuration fallbacks.
func (r Request) Validate() error {
	if _, err := ParseSource(string(r.Source)); err != nil {
		return err
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if err := r.Window().Validate(); err != nil {
		return err
	}
	if r.Limit < 0 {
		return &ConfigurationError{Field: "limit", Message: "must be >= 0"}
	}
	if strings.TrimSpace(r.Company) == "" && strings.TrimSpace(r.ProductURL) == "" && r.Mode != ModeSnapshot {
		return &ConfigurationError{Field: "company", Message: "company or product_url is required"}
	}
	return nil
}
