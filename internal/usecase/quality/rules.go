package quality

// Rules configures the structural corruption checks and the renumbering
// prefix. Token lists are matched as plain substrings.
type Rules struct {
	// IDPrefix prefixes re-assigned identifiers in the cleaned collection.
	IDPrefix string
	// LocalityTokens must all appear in a valid address.
	LocalityTokens []string
	// PromoTokens are promotional substrings a valid address must not contain.
	PromoTokens []string
	// BannedNameTokens are address-like substrings a valid name must not contain.
	BannedNameTokens []string
}

// DefaultRules returns rules tuned for the Busan dataset.
func DefaultRules() Rules {
	return Rules{
		IDPrefix:         "busan_",
		LocalityTokens:   []string{"부산", "구"},
		PromoTokens:      []string{"맛집", "추천", "유명"},
		BannedNameTokens: []string{"해운대구", "수영구", "남구 ", "중구 ", "로 ", "길 "},
	}
}
