// Package core provides money formatting helpers for the credit ledger.
//
// Amounts travel as JSON numbers (float64). Anything that sums or rounds
// them goes through decimal to avoid binary float drift in the UI.
package core

import (
	"github.com/shopspring/decimal"
)

// Decimal converts a wire amount to an exact decimal.
func Decimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// SumMontos returns the exact sum of all monto values.
func SumMontos(credits []Credit) decimal.Decimal {
	total := decimal.Zero
	for _, c := range credits {
		total = total.Add(Decimal(c.Monto))
	}
	return total
}

// FormatMonto renders an amount as currency with two decimals, e.g. "$1234.50".
func FormatMonto(f float64) string {
	d := Decimal(f)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatTasa renders a percentage with two decimals, e.g. "12.50%".
func FormatTasa(f float64) string {
	return Decimal(f).StringFixed(2) + "%"
}
