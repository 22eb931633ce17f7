package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/crawler/internal/types"
)

// AmazonParser extracts prices from amazon.in product pages. Selectors
// are tried in order; the first one that yields a parseable price wins.
type AmazonParser struct{}

// NewAmazonParser returns an AmazonParser.
func NewAmazonParser() *AmazonParser { return &AmazonParser{} }

func (p *AmazonParser) DetectCAPTCHA(html string) bool { return detectCAPTCHA(html) }

func (p *AmazonParser) ContentHash(html string) string { return contentHash(html) }

func (p *AmazonParser) ParsePrice(html string) (*PriceResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, types.ErrParseMiss
	}

	if text := doc.Find(".a-price-whole").First().Text(); text != "" {
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if text := doc.Find("#priceblock_ourprice").First().Text(); text != "" {
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if text := doc.Find("#priceblock_dealprice").First().Text(); text != "" {
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if sel := doc.Find(`[itemprop="price"]`).First(); sel.Length() > 0 {
		text := sel.AttrOr("content", "")
		if text == "" {
			text = sel.Text()
		}
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	if price, currency, ok := jsonLDOfferPrice(doc); ok {
		return &PriceResult{Price: price, Currency: currency}, nil
	}

	return nil, types.ErrParseMiss
}
