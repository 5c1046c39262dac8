package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rezonia/nfe-processor/internal/decimal"
)

func TestFromFloat(t *testing.T) {
	d := decimal.FromFloat(100.555)
	// Should round to 2 decimal places
	assert.True(t, d.Equal(dec.NewFromFloat(100.56)))
}

func TestLenient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "1500.00", "1500"},
		{"four decimals", "2.5000", "2.5"},
		{"surrounding whitespace", "  10.10\n", "10.1"},
		{"empty", "", "0"},
		{"blank", "   ", "0"},
		{"comma separator is not accepted", "10,50", "0"},
		{"garbage", "abc", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decimal.Lenient(tt.input)
			assert.True(t, got.Equal(dec.RequireFromString(tt.expected)),
				"Lenient(%q) = %s, want %s", tt.input, got.String(), tt.expected)
		})
	}
}

func TestLenient_KeepsFullPrecision(t *testing.T) {
	d := decimal.Lenient("0.3333333333")
	assert.Equal(t, "0.3333333333", d.String())
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.NewFromInt(300),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.NewFromInt(600)))
}

func TestSum_Empty(t *testing.T) {
	result := decimal.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}

func TestIsPositive(t *testing.T) {
	assert.True(t, decimal.IsPositive(dec.NewFromInt(1)))
	assert.False(t, decimal.IsPositive(dec.Zero))
	assert.False(t, decimal.IsPositive(dec.NewFromInt(-1)))
}

func TestDeltaAndTolerance(t *testing.T) {
	a := dec.RequireFromString("100.00")
	b := dec.RequireFromString("100.015")

	assert.Equal(t, "0.015", decimal.Delta(a, b).String())
	assert.Equal(t, "0.015", decimal.Delta(b, a).String())

	assert.False(t, decimal.WithinTolerance(a, b, dec.RequireFromString("0.01")))
	assert.True(t, decimal.WithinTolerance(a, b, dec.RequireFromString("0.02")))
	// boundary is inclusive
	assert.True(t, decimal.WithinTolerance(a, dec.RequireFromString("100.01"), dec.RequireFromString("0.01")))
}

func TestPercentConversion(t *testing.T) {
	assert.InDelta(t, 0.18, decimal.PercentToRate(18), 1e-12)
	assert.InDelta(t, 18.0, decimal.RateToPercent(0.18), 1e-12)
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0", "R$ 0,00"},
		{"5.5", "R$ 5,50"},
		{"999.99", "R$ 999,99"},
		{"1000", "R$ 1.000,00"},
		{"12500.5", "R$ 12.500,50"},
		{"1234567.891", "R$ 1.234.567,89"},
		{"-1300", "-R$ 1.300,00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, decimal.FormatBRL(dec.RequireFromString(tt.input)))
		})
	}
}

func TestFormatBRLFloat(t *testing.T) {
	assert.Equal(t, "R$ 1.550,00", decimal.FormatBRLFloat(1550))
}
