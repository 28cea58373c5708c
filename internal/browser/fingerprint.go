package browser

import (
	"fmt"
	"math/rand"
	"strings"
)

// Fingerprint is the browser identity presented to sites for one session.
type Fingerprint struct {
	UserAgent           string
	ViewportWidth       int
	ViewportHeight      int
	Platform            string
	Language            string
	HardwareConcurrency int
	DeviceMemory        int
}

var viewports = []struct{ w, h int }{
	{1920, 1080}, {1366, 768}, {1536, 864},
	{1440, 900}, {1280, 800}, {1600, 900},
}

// RandomFingerprint picks a user agent from userAgents and a desktop viewport
// at random. The platform follows the user agent.
func RandomFingerprint(userAgents []string) Fingerprint {
	vp := viewports[rand.Intn(len(viewports))]
	fp := Fingerprint{
		ViewportWidth:       vp.w + rand.Intn(40) - 20,
		ViewportHeight:      vp.h + rand.Intn(40) - 20,
		Language:            "en-US",
		HardwareConcurrency: 4 + 2*rand.Intn(5),
		DeviceMemory:        8,
	}
	if len(userAgents) > 0 {
		fp.UserAgent = userAgents[rand.Intn(len(userAgents))]
	}
	fp.Platform = platformOf(fp.UserAgent)
	return fp
}

func platformOf(ua string) string {
	switch {
	case strings.Contains(ua, "Macintosh"):
		return "MacIntel"
	case strings.Contains(ua, "Linux"):
		return "Linux x86_64"
	}
	return "Win32"
}

// WindowSize formats the viewport for the --window-size launch flag.
func (fp Fingerprint) WindowSize() string {
	return fmt.Sprintf("%d,%d", fp.ViewportWidth, fp.ViewportHeight)
}

// PatchJS returns the script injected before any page script runs. It masks
// the usual automation tells on top of go-rod/stealth.
func (fp Fingerprint) PatchJS() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });

window.chrome = window.chrome || {
	runtime: { onMessage: { addListener: () => {} }, sendMessage: () => {} },
	loadTimes: () => ({}),
	csi: () => ({}),
};

if (window.navigator.permissions) {
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);
}

Object.defineProperty(navigator, 'plugins', {
	get: () => {
		const plugins = [
			{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
			{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
			{ name: 'Native Client', filename: 'internal-nacl-plugin' },
		];
		plugins.length = 3;
		return plugins;
	}
});
`, fp.Platform, fp.Language, fp.Language, fp.HardwareConcurrency, fp.DeviceMemory)
}
