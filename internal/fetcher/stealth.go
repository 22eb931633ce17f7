package fetcher

import (
	"fmt"
	"math/rand/v2"
)

// StealthConfig parameterizes the anti-detection patches applied to every
// page before navigation: a locale/timezone matching the target market and
// removal of the automation markers headless Chrome otherwise exposes. The
// viewport itself is not part of this config since it must be re-randomized
// on every fetch attempt rather than fixed once per fetcher; see
// randomViewport.
type StealthConfig struct {
	Locale   string
	Timezone string
}

// DefaultStealthConfig returns the stealth profile used for every fetch:
// the en-IN / Asia/Kolkata locale this fleet's targets expect.
func DefaultStealthConfig() *StealthConfig {
	return &StealthConfig{
		Locale:   "en-IN",
		Timezone: "Asia/Kolkata",
	}
}

// randomViewport returns a desktop viewport randomized within a realistic
// range. Called once per fetch attempt so that retries of the same target
// don't present an identical fingerprint.
func randomViewport() (width, height int) {
	return 1200 + rand.IntN(1920-1200+1), 800 + rand.IntN(1080-800+1)
}

// StealthJS returns JavaScript injected before any page script runs, to
// hide the navigator.webdriver flag set by automated Chrome.
func (sc *StealthConfig) StealthJS() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
window.chrome = window.chrome || { runtime: {} };
`, sc.Locale)
}
