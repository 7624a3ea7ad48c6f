package ingest

import "github.com/shopspring/decimal"

// FormatPrice normalizes a raw closing price to a string with exactly two
// digits after the decimal point, rounding half away from zero.
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
