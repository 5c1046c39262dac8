package tax_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-processor/internal/tax"
)

func TestDefaultRateTable(t *testing.T) {
	table := tax.DefaultRateTable()
	require.NotNil(t, table)

	assert.Len(t, table.Codes(), 27)
	assert.Equal(t, "AC", table.Codes()[0])
	assert.Equal(t, "TO", table.Codes()[26])

	rj, ok := table.State("RJ")
	require.True(t, ok)
	assert.Equal(t, 20.0, rj.Internal)
	assert.Equal(t, 2.0, rj.FCP)
	assert.Equal(t, tax.RegionSoutheast, rj.Region)

	sp, ok := table.State(" sp ")
	require.True(t, ok)
	assert.Equal(t, 18.0, sp.Internal)

	_, ok = table.State("XX")
	assert.False(t, ok)

	assert.Equal(t, 4.0, table.Interstate.Imported)
	assert.Equal(t, 7.0, table.Interstate.Reduced)
	assert.Equal(t, 12.0, table.Interstate.Standard)
}

func TestRateTable_InterstateRate(t *testing.T) {
	table := tax.DefaultRateTable()

	tests := []struct {
		name     string
		origin   string
		dest     string
		imported bool
		expected float64
	}{
		{"southeast to southeast", "SP", "RJ", false, 12},
		{"southeast to northeast", "SP", "BA", false, 7},
		{"south to north", "RS", "AM", false, 7},
		{"south to center-west", "PR", "GO", false, 7},
		{"southeast to ES", "MG", "ES", false, 7},
		{"ES is not a reduced-rate origin", "ES", "BA", false, 12},
		{"northeast to southeast", "BA", "SP", false, 12},
		{"north to northeast", "AM", "PE", false, 12},
		{"south to south", "SC", "RS", false, 12},
		{"imported goods", "SP", "BA", true, 4},
		{"imported goods any route", "BA", "SP", true, 4},
		{"lowercase codes", "sp", "ba", false, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := table.InterstateRate(tt.origin, tt.dest, tt.imported)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rate)
		})
	}
}

func TestRateTable_InterstateRateErrors(t *testing.T) {
	table := tax.DefaultRateTable()

	_, err := table.InterstateRate("SP", "SP", false)
	assert.ErrorIs(t, err, tax.ErrSameState)

	_, err = table.InterstateRate("SP", "", false)
	assert.ErrorIs(t, err, tax.ErrUnknownState)

	_, err = table.InterstateRate("XX", "RJ", false)
	assert.ErrorIs(t, err, tax.ErrUnknownState)
}

func TestParseRateTable_Defaults(t *testing.T) {
	table, err := tax.ParseRateTable([]byte(`
states:
  sp: { region: se, internal: 18, fcp: 2 }
  ba: { region: ne, internal: 20.5 }
`))
	require.NoError(t, err)

	assert.Equal(t, 4.0, table.Interstate.Imported)
	assert.Equal(t, 7.0, table.Interstate.Reduced)
	assert.Equal(t, 12.0, table.Interstate.Standard)

	ba, ok := table.State("BA")
	require.True(t, ok)
	assert.Equal(t, tax.RegionNortheast, ba.Region)
	assert.Zero(t, ba.FCP)

	rate, err := table.InterstateRate("SP", "BA", false)
	require.NoError(t, err)
	assert.Equal(t, 7.0, rate)
}

func TestParseRateTable_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "states: [unclosed"},
		{"no states", "interstate: { standard: 12 }"},
		{"unknown region", "states:\n  SP: { region: XX, internal: 18 }"},
		{"rate of 100", "states:\n  SP: { region: SE, internal: 100 }"},
		{"negative fcp", "states:\n  SP: { region: SE, internal: 18, fcp: -1 }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tax.ParseRateTable([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRateTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("states:\n  RJ: { region: SE, internal: 22, fcp: 2 }\n  SP: { region: SE, internal: 18 }\n"), 0o644))

	table, err := tax.LoadRateTable(path)
	require.NoError(t, err)

	rj, ok := table.State("RJ")
	require.True(t, ok)
	assert.Equal(t, 22.0, rj.Internal)

	_, err = tax.LoadRateTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
