package browser

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestRandomFingerprint(t *testing.T) {
	uas := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
	for i := 0; i < 20; i++ {
		fp := RandomFingerprint(uas)
		if fp.UserAgent != uas[0] {
			t.Fatalf("user agent = %q", fp.UserAgent)
		}
		if fp.Platform != "MacIntel" {
			t.Errorf("platform = %q, want MacIntel", fp.Platform)
		}
		if fp.ViewportWidth < 1260 || fp.ViewportHeight < 740 {
			t.Errorf("viewport too small: %s", fp.WindowSize())
		}
	}
}

func TestFingerprintNoUserAgents(t *testing.T) {
	fp := RandomFingerprint(nil)
	if fp.UserAgent != "" {
		t.Errorf("expected browser default user agent, got %q", fp.UserAgent)
	}
	if fp.Platform != "Win32" {
		t.Errorf("platform = %q", fp.Platform)
	}
}

func TestPatchJS(t *testing.T) {
	fp := Fingerprint{Platform: "Linux x86_64", Language: "en-US", HardwareConcurrency: 8, DeviceMemory: 8}
	js := fp.PatchJS()
	for _, want := range []string{"'webdriver'", "'Linux x86_64'", "hardwareConcurrency', { get: () => 8 }"} {
		if !strings.Contains(js, want) {
			t.Errorf("patch script missing %q", want)
		}
	}
}

type fakeElement struct {
	name    string
	text    string
	visible bool
	err     error
}

func (e fakeElement) Visible() (bool, error) { return e.visible, e.err }
func (e fakeElement) Text() (string, error) { return e.text, nil }

func TestFirstVisibleSkipsHidden(t *testing.T) {
	els := []fakeElement{
		{name: "mobile", text: "Next", visible: false},
		{name: "detached", text: "Next", err: errors.New("node gone")},
		{name: "desktop", text: "Next", visible: true},
	}
	el, ok := firstVisible(els, regexp.MustCompile(`(?i)^\s*next`))
	if !ok || el.name != "desktop" {
		t.Fatalf("expected desktop button, got %q (ok=%v)", el.name, ok)
	}
}

func TestFirstVisibleMatchesText(t *testing.T) {
	els := []fakeElement{
		{name: "prev", text: "Previous", visible: true},
		{name: "more", text: " Load more reviews", visible: true},
	}
	el, ok := firstVisible(els, regexp.MustCompile(`(?i)^\s*load more`))
	if !ok || el.name != "more" {
		t.Fatalf("expected load more button, got %q (ok=%v)", el.name, ok)
	}

	if el, ok := firstVisible(els, nil); !ok || el.name != "prev" {
		t.Errorf("without a pattern the first visible element wins, got %q", el.name)
	}
	if _, ok := firstVisible([]fakeElement{{text: "Next"}}, nil); ok {
		t.Error("hidden-only matches should not be clicked")
	}
}
