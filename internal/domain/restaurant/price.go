package restaurant

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceLevel is a coarse price tier derived from free-text price ranges.
type PriceLevel string

// Price tiers. Thresholds are in KRW; unparsable text defaults to medium.
const (
	PriceLow        PriceLevel = "low"
	PriceMedium     PriceLevel = "medium"
	PriceMediumHigh PriceLevel = "medium-high"
	PriceHigh       PriceLevel = "high"
)

var firstAmountRe = regexp.MustCompile(`\d[\d,]*`)

// FirstAmount extracts the first embedded number from price text,
// ignoring thousands separators. Returns false if none is found.
func FirstAmount(text string) (int, bool) {
	m := firstAmountRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Level classifies price text into a tier by its first embedded number:
// <10000 low, <20000 medium, <30000 medium-high, otherwise high.
// Missing or unparsable text is classified as medium.
func Level(text string) PriceLevel {
	n, ok := FirstAmount(text)
	if !ok {
		return PriceMedium
	}
	switch {
	case n < 10000:
		return PriceLow
	case n < 20000:
		return PriceMedium
	case n < 30000:
		return PriceMediumHigh
	default:
		return PriceHigh
	}
}

// priceShapeRe matches the well-formed shape <number><separator><number><optional currency word>.
var priceShapeRe = regexp.MustCompile(`^\d[\d,]*\s*[-~]\s*\d[\d,]*\s*(원|₩|KRW)?$`)

// WellFormedPrice reports whether price text matches the expected
// "lower-upper" range shape. Empty text is not well formed.
func WellFormedPrice(text string) bool {
	return priceShapeRe.MatchString(strings.TrimSpace(text))
}
