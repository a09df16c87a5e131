package lookups

var currencySymbols = map[string]string{
	"AUD": "A$",
	"USD": "$",
	"CAD": "C$",
	"GBP": "£",
	"EUR": "€",
}

// CurrencySymbol returns the display symbol for an ISO currency code,
// falling back to the code itself.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}
