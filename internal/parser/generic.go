package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricewatch/crawler/internal/types"
)

// genericSelectors is the fixed fallback selector list tried, in order,
// once JSON-LD offers have been ruled out.
var genericSelectors = []string{
	`[itemprop="price"]`,
	".price",
	".Price",
	".sale-price",
	".a-price-whole",
	`[id^="priceblock_"]`,
}

// GenericParser is the domain-agnostic fallback used for any storefront
// without a dedicated Parser.
type GenericParser struct{}

// NewGenericParser returns a GenericParser.
func NewGenericParser() *GenericParser { return &GenericParser{} }

func (p *GenericParser) DetectCAPTCHA(html string) bool { return detectCAPTCHA(html) }

func (p *GenericParser) ContentHash(html string) string { return contentHash(html) }

func (p *GenericParser) ParsePrice(html string) (*PriceResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, types.ErrParseMiss
	}

	if price, currency, ok := jsonLDOfferPrice(doc); ok {
		return &PriceResult{Price: price, Currency: currency}, nil
	}

	for _, selector := range genericSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := sel.AttrOr("content", "")
		if text == "" {
			text = sel.Text()
		}
		if text == "" {
			continue
		}
		if price, err := parsePriceText(text); err == nil {
			return &PriceResult{Price: price, Currency: "INR"}, nil
		}
	}

	return nil, types.ErrParseMiss
}
