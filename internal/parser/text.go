package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// nonPriceChars strips everything but digits, dots, and commas, mirroring
// the original parsers' `re.sub(r"[^\d.,]", "", text)` cleanup.
var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// parsePriceText cleans a raw price string (currency symbols, thousands
// separators, stray whitespace) and parses it as a float. Leading and
// trailing dots left over from a dotted currency label such as "Rs." are
// trimmed before parsing.
func parsePriceText(raw string) (float64, error) {
	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.Trim(cleaned, ".")
	return strconv.ParseFloat(cleaned, 64)
}
