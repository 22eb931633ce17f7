package parser

import "strings"

// captchaMarkers is the fixed set of substrings that indicate a CAPTCHA
// challenge page rather than real product content. Matching is
// case-insensitive.
var captchaMarkers = []string{
	"recaptcha",
	"g-recaptcha",
	"captcha",
	"cf-chl-manual-challenge",
	"verify you are human",
	"robot check",
	"security check",
}

// detectCAPTCHA reports whether html contains any known CAPTCHA marker.
func detectCAPTCHA(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
