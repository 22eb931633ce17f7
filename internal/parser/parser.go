// Package parser extracts prices from rendered product-page HTML,
// detects CAPTCHA challenges, and fingerprints page content. Each
// storefront gets its own Parser; a Registry dispatches by domain and
// falls back to a generic, JSON-LD-first implementation.
package parser

// PriceResult is a successfully extracted price.
type PriceResult struct {
	Price    float64
	Currency string
}

// Parser extracts structured signal from one storefront's HTML.
type Parser interface {
	// DetectCAPTCHA reports whether html shows a CAPTCHA challenge
	// instead of the product page.
	DetectCAPTCHA(html string) bool

	// ParsePrice extracts the product's current price, or
	// types.ErrParseMiss if no known selector or JSON-LD field matched.
	ParsePrice(html string) (*PriceResult, error)

	// ContentHash fingerprints the page content for change detection.
	ContentHash(html string) string
}

// Registry maps a storefront domain to its Parser, falling back to a
// generic parser for unrecognized domains.
type Registry struct {
	parsers map[string]Parser
	generic Parser
}

// NewRegistry builds a Registry with the built-in Amazon/Flipkart parsers
// and a GenericParser fallback.
func NewRegistry() *Registry {
	generic := NewGenericParser()
	return &Registry{
		parsers: map[string]Parser{
			"amazon.in":    NewAmazonParser(),
			"flipkart.com": NewFlipkartParser(),
		},
		generic: generic,
	}
}

// For returns the Parser registered for domain, or the generic fallback
// if none matches exactly.
func (r *Registry) For(domain string) Parser {
	if p, ok := r.parsers[domain]; ok {
		return p
	}
	return r.generic
}

// Register adds or replaces the parser for a domain.
func (r *Registry) Register(domain string, p Parser) {
	r.parsers[domain] = p
}
