// Package browser drives a headless Chromium through go-rod for the scrape
// package.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/scrape"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// launchHint is shown when Chromium cannot be started.
const launchHint = "install Chromium or point browser.bin (REVIEWGOAT_BROWSER_BIN) at a Chrome binary; " +
	"inside containers set browser.no_sandbox=true; or rerun with --mode api, crawler or snapshot"

// Session is one browser process with a single tab. It implements
// scrape.Page and is not safe for concurrent use.
type Session struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	cfg         config.BrowserConfig
	fp          Fingerprint
	navTimeout  time.Duration
	waitTimeout time.Duration
	logger      *slog.Logger
}

// Launch starts Chromium and opens a patched tab. headless overrides the
// configured mode when non-nil. A launch failure is returned as a
// *types.ExtractionEnvironmentError.
func Launch(ctx context.Context, cfg *config.Config, headless *bool, logger *slog.Logger) (*Session, error) {
	s := &Session{
		cfg:         cfg.Browser,
		fp:          RandomFingerprint(cfg.Browser.UserAgents),
		navTimeout:  cfg.Scrape.NavigationTimeout,
		waitTimeout: cfg.Scrape.WaitTimeout,
		logger:      logger.With("component", "browser"),
	}

	hl := cfg.Browser.Headless
	if headless != nil {
		hl = *headless
	}

	l := launcher.New().
		Context(ctx).
		Headless(hl).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", s.fp.WindowSize())
	if cfg.Browser.NoSandbox {
		l = l.NoSandbox(true)
	}
	if cfg.Browser.Bin != "" {
		l = l.Bin(cfg.Browser.Bin)
	}
	if cfg.Browser.Proxy != "" {
		l = l.Proxy(cfg.Browser.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &types.ExtractionEnvironmentError{Err: fmt.Errorf("launch browser: %w", err), Hint: launchHint}
	}
	s.launcher = l

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, &types.ExtractionEnvironmentError{Err: fmt.Errorf("connect browser: %w", err), Hint: launchHint}
	}
	s.browser = b

	if err := s.openPage(); err != nil {
		s.Close()
		return nil, &types.ExtractionEnvironmentError{Err: err, Hint: launchHint}
	}

	s.logger.Info("browser ready",
		"headless", hl,
		"stealth", cfg.Browser.Stealth,
		"viewport", s.fp.WindowSize(),
	)
	return s, nil
}

var _ scrape.Page = (*Session)(nil)

func (s *Session) openPage() error {
	var (
		page *rod.Page
		err  error
	)
	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	if s.fp.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.fp.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
			Platform:       s.fp.Platform,
		})
		if err != nil {
			s.logger.Warn("failed to set user agent", "error", err)
		}
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.fp.ViewportWidth,
		Height:            s.fp.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		s.logger.Warn("failed to set viewport", "error", err)
	}
	if _, err := page.EvalOnNewDocument(s.fp.PatchJS()); err != nil {
		s.logger.Warn("failed to inject patches", "error", err)
	}

	s.page = page
	return nil
}

// Navigate loads url and waits for the DOM to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.navTimeout)
	if err := page.Navigate(url); err != nil {
		return &types.FetchError{URL: url, Err: err}
	}
	if err := page.WaitLoad(); err != nil {
		s.logger.Debug("load wait timed out, continuing", "url", url, "error", err)
	}
	s.settle(ctx)
	s.logger.Debug("navigated", "url", url, "landed", s.URL())
	return nil
}

// URL returns the current location.
func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) ([]byte, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// WaitFor polls for any of selectors until timeout.
func (s *Session) WaitFor(ctx context.Context, selectors []string, timeout time.Duration) (string, bool) {
	if len(selectors) == 0 {
		return "", false
	}
	page := s.page.Context(ctx)
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			if has, _, err := page.Has(sel); err == nil && has {
				return sel, true
			}
		}
		if time.Now().After(deadline) {
			return "", false
		}
		if pause(ctx, 250*time.Millisecond) != nil {
			return "", false
		}
	}
}

// Click clicks the first visible element matching t and waits for the page
// to settle. Hidden matches, such as a collapsed mobile menu rendered first,
// are skipped.
func (s *Session) Click(ctx context.Context, t sources.Target) (bool, error) {
	page := s.page.Context(ctx)

	var pattern *regexp.Regexp
	if t.Text != "" {
		re, err := regexp.Compile("(?i)" + t.Text)
		if err != nil {
			return false, fmt.Errorf("target text %q: %w", t.Text, err)
		}
		pattern = re
	}

	els, err := page.Elements(t.CSS)
	if err != nil {
		return false, err
	}
	el, ok := firstVisible([]*rod.Element(els), pattern)
	if !ok {
		return false, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		return false, err
	}
	if err := el.Hover(); err == nil {
		_ = pause(ctx, s.jitter(100*time.Millisecond, 400*time.Millisecond))
	}
	if err := el.Timeout(s.waitTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	s.settle(ctx)
	return true, nil
}

type clickable interface {
	Visible() (bool, error)
	Text() (string, error)
}

// firstVisible returns the first element whose text matches pattern (any
// text when nil) and that is rendered visibly.
func firstVisible[E clickable](els []E, pattern *regexp.Regexp) (E, bool) {
	for _, el := range els {
		if pattern != nil {
			text, err := el.Text()
			if err != nil || !pattern.MatchString(text) {
				continue
			}
		}
		if visible, err := el.Visible(); err == nil && visible {
			return el, true
		}
	}
	var zero E
	return zero, false
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// settle waits briefly for network and DOM activity to stop.
func (s *Session) settle(ctx context.Context) {
	page := s.page.Context(ctx).Timeout(s.waitTimeout)
	if err := page.WaitStable(300 * time.Millisecond); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("page did not settle", "error", err)
	}
}

// Close closes the tab and the browser and kills the process. It is safe to
// call on a partially launched session.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
