package shipper

import (
	"math"
	"strconv"
)

// MinimumWeight is the smallest weight sent to carriers that reject zero weights.
const MinimumWeight = 0.1

var imperialCountries = map[string]bool{
	"US": true,
	"LR": true,
	"MM": true,
}

// UnitSystemFor returns the unit system used for shipments leaving country.
func UnitSystemFor(country string) UnitSystem {
	if imperialCountries[country] {
		return Imperial
	}
	return Metric
}

// Round3 rounds v to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// CeilDimension rounds a dimension to three decimals, then up to the next
// whole unit so size-based charges are never underestimated.
func CeilDimension(v float64) float64 {
	return math.Ceil(Round3(v))
}

// RoundWeight rounds a weight to three decimals with a floor of MinimumWeight.
func RoundWeight(v float64) float64 {
	return math.Max(Round3(v), MinimumWeight)
}

// FormatAmount renders a number without trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseAmount parses a decimal amount, returning zero for empty or invalid input.
func ParseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
