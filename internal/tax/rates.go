package tax

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRatesYAML []byte

// Regions used by the interstate rate rule
const (
	RegionNorth      = "N"
	RegionNortheast  = "NE"
	RegionCenterWest = "CO"
	RegionSoutheast  = "SE"
	RegionSouth      = "S"
)

var (
	ErrUnknownState = errors.New("unknown state")
	ErrSameState    = errors.New("origin and destination are the same state")
)

// StateRate holds one state's internal rates, in percent
type StateRate struct {
	Region   string  `yaml:"region" json:"region"`
	Internal float64 `yaml:"internal" json:"internal"`
	FCP      float64 `yaml:"fcp" json:"fcp"`
}

// InterstateRates are the three federal interstate ICMS rates, in percent
type InterstateRates struct {
	Imported float64 `yaml:"imported" json:"imported"`
	Reduced  float64 `yaml:"reduced" json:"reduced"`
	Standard float64 `yaml:"standard" json:"standard"`
}

// RateTable maps UF codes to their rates
type RateTable struct {
	Interstate InterstateRates      `yaml:"interstate" json:"interstate"`
	States     map[string]StateRate `yaml:"states" json:"states"`
}

var (
	defaultTable     *RateTable
	defaultTableOnce sync.Once
)

// DefaultRateTable returns the table embedded in the binary
func DefaultRateTable() *RateTable {
	defaultTableOnce.Do(func() {
		table, err := ParseRateTable(defaultRatesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded rates.yaml: %v", err))
		}
		defaultTable = table
	})
	return defaultTable
}

// LoadRateTable reads a rate table from a YAML file
func LoadRateTable(path string) (*RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table: %w", err)
	}
	table, err := ParseRateTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ParseRateTable decodes, defaults and validates a YAML rate table
func ParseRateTable(data []byte) (*RateTable, error) {
	var table RateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse rate table: %w", err)
	}

	applyRateDefaults(&table)

	if err := validateRateTable(&table); err != nil {
		return nil, fmt.Errorf("invalid rate table: %w", err)
	}
	return &table, nil
}

func applyRateDefaults(table *RateTable) {
	if table.Interstate.Imported == 0 {
		table.Interstate.Imported = 4
	}
	if table.Interstate.Reduced == 0 {
		table.Interstate.Reduced = 7
	}
	if table.Interstate.Standard == 0 {
		table.Interstate.Standard = 12
	}

	normalized := make(map[string]StateRate, len(table.States))
	for uf, rate := range table.States {
		rate.Region = strings.ToUpper(strings.TrimSpace(rate.Region))
		normalized[strings.ToUpper(strings.TrimSpace(uf))] = rate
	}
	table.States = normalized
}

func validateRateTable(table *RateTable) error {
	if len(table.States) == 0 {
		return errors.New("no states defined")
	}
	for uf, rate := range table.States {
		switch rate.Region {
		case RegionNorth, RegionNortheast, RegionCenterWest, RegionSoutheast, RegionSouth:
		default:
			return fmt.Errorf("state %s: unknown region %q", uf, rate.Region)
		}
		if rate.Internal < 0 || rate.Internal >= 100 {
			return fmt.Errorf("state %s: internal rate %g out of range", uf, rate.Internal)
		}
		if rate.FCP < 0 {
			return fmt.Errorf("state %s: negative FCP rate", uf)
		}
	}
	return nil
}

// State looks up a UF, case-insensitively
func (t *RateTable) State(uf string) (StateRate, bool) {
	rate, ok := t.States[strings.ToUpper(strings.TrimSpace(uf))]
	return rate, ok
}

// Codes returns the known UF codes in alphabetical order
func (t *RateTable) Codes() []string {
	codes := make([]string, 0, len(t.States))
	for uf := range t.States {
		codes = append(codes, uf)
	}
	sort.Strings(codes)
	return codes
}

// InterstateRate returns the interstate ICMS rate, in percent, for goods
// moving from origin to dest. Imported goods (ICMS origin 1, 2, 3, 8) take
// the imported rate wherever they go.
func (t *RateTable) InterstateRate(origin, dest string, imported bool) (float64, error) {
	o, ok := t.State(origin)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, origin)
	}
	d, ok := t.State(dest)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, dest)
	}
	if strings.EqualFold(strings.TrimSpace(origin), strings.TrimSpace(dest)) {
		return 0, fmt.Errorf("%w: %s", ErrSameState, strings.ToUpper(origin))
	}

	if imported {
		return t.Interstate.Imported, nil
	}

	originSouthSoutheast := (o.Region == RegionSouth || o.Region == RegionSoutheast) && !isES(origin)
	destLessDeveloped := d.Region == RegionNorth || d.Region == RegionNortheast ||
		d.Region == RegionCenterWest || isES(dest)

	if originSouthSoutheast && destLessDeveloped {
		return t.Interstate.Reduced, nil
	}
	return t.Interstate.Standard, nil
}

func isES(uf string) bool {
	return strings.EqualFold(strings.TrimSpace(uf), "ES")
}
