package shipper

import "strings"

// Some carriers report legacy, non-ISO currency codes.
var currencyAliases = map[string]string{
	"UKL": "GBP",
	"SID": "SGD",
}

// NormalizeCurrency maps non-standard currency codes to their ISO 4217 code.
// Any other code is returned unchanged.
func NormalizeCurrency(code string) string {
	if iso, ok := currencyAliases[strings.ToUpper(code)]; ok {
		return iso
	}
	return code
}
