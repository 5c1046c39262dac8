package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromFloat creates decimal from float with rounding to cents
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Lenient parses an NF-e numeric field. The NF-e layout always uses a period
// as separator; blank or unparsable input yields zero, never an error.
func Lenient(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero
	}
	return d
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// Delta returns |a - b|
func Delta(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs()
}

// WithinTolerance reports whether |a - b| <= tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return Delta(a, b).LessThanOrEqual(tolerance)
}

// PercentToRate converts a percentage (18 means 18%) into a fraction.
func PercentToRate(percent float64) float64 {
	return percent / 100
}

// RateToPercent converts a fraction back into a percentage.
func RateToPercent(rate float64) float64 {
	return rate * 100
}

// FormatBRL renders an amount the way Brazilian invoices print it:
// thousands separated by '.', cents by ','. Example: 12500.5 -> "R$ 12.500,50".
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	prefix := "R$ "
	if neg {
		prefix = "-R$ "
	}
	return prefix + b.String() + "," + frac
}

// FormatBRLFloat is FormatBRL for calculator outputs.
func FormatBRLFloat(v float64) string {
	return FormatBRL(FromFloat(v))
}
