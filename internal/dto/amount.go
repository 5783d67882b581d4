package dto

import "github.com/shopspring/decimal"

// minorUnitExponent converts minor units (cents) into major units for display.
const minorUnitExponent = -2

// FormatAmount renders a minor-unit amount as a major-unit decimal string, e.g. 12345 -> "123.45".
func FormatAmount(amount int64) string {
	return decimal.New(amount, minorUnitExponent).StringFixed(2)
}
