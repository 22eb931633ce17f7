package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDOfferPrice walks every <script type="application/ld+json"> block
// looking for a Product node's offers.price (or offers[].price), the
// shape schema.org Product markup uses. It returns ok=false if no block
// carries a usable price.
func jsonLDOfferPrice(doc *goquery.Document) (float64, string, bool) {
	var price float64
	var currency string
	var found bool

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			if p, c, ok := offerFromNode(obj); ok {
				price, currency, found = p, c, true
				return false
			}
			return true
		}

		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			for _, obj := range arr {
				if p, c, ok := offerFromNode(obj); ok {
					price, currency, found = p, c, true
					return false
				}
			}
		}
		return true
	})

	return price, currency, found
}

// offerFromNode extracts a price/currency pair from a single JSON-LD
// node's "offers" field, which schema.org allows to be either a single
// Offer object or an array of them.
func offerFromNode(node map[string]any) (float64, string, bool) {
	offers, ok := node["offers"]
	if !ok {
		return 0, "", false
	}

	switch v := offers.(type) {
	case map[string]any:
		return priceFromOffer(v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if p, c, ok := priceFromOffer(m); ok {
					return p, c, true
				}
			}
		}
	}
	return 0, "", false
}

func priceFromOffer(offer map[string]any) (float64, string, bool) {
	raw, ok := offer["price"]
	if !ok {
		return 0, "", false
	}

	var price float64
	switch v := raw.(type) {
	case float64:
		price = v
	case string:
		var err error
		price, err = parsePriceText(v)
		if err != nil {
			return 0, "", false
		}
	default:
		return 0, "", false
	}

	currency, _ := offer["priceCurrency"].(string)
	if currency == "" {
		currency = "INR"
	}
	return price, currency, true
}
