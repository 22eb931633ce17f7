package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/crawler/internal/types"
)

// FlipkartParser extracts prices from flipkart.com product pages.
type FlipkartParser struct{}

// NewFlipkartParser returns a FlipkartParser.
func NewFlipkartParser() *FlipkartParser { return &FlipkartParser{} }

func (p *FlipkartParser) DetectCAPTCHA(html string) bool { return detectCAPTCHA(html) }

func (p *FlipkartParser) ContentHash(html string) string { return contentHash(html) }

func (p *FlipkartParser) ParsePrice(html string) (*PriceResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, types.ErrParseMiss
	}

	if text := doc.Find("div._30jeq3._16Jk6d").First().Text(); text != "" {
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if text := doc.Find("._30jeq3").First().Text(); text != "" {
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if price, currency, ok := jsonLDOfferPrice(doc); ok {
		return &PriceResult{Price: price, Currency: currency}, nil
	}

	return nil, types.ErrParseMiss
}
