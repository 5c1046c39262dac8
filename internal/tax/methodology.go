package tax

import (
	"fmt"
	"strings"
)

// Methodology selects the DIFAL formula
type Methodology int

const (
	// MethodologyAuto picks the formula from the destination state
	MethodologyAuto Methodology = iota
	// MethodologyDualBase grosses the operation value up by the destination rate
	MethodologyDualBase
	// MethodologySingleBase applies the rate differential to the operation value
	MethodologySingleBase
)

// singleBaseStates compute DIFAL on the operation value itself.
// Point-in-time legal fact; update when state legislation changes.
var singleBaseStates = map[string]bool{
	"ES": true,
}

// ResolveMethodology turns Auto into a concrete formula for dest.
// Explicit choices are returned unchanged.
func ResolveMethodology(m Methodology, dest string) Methodology {
	if m != MethodologyAuto {
		return m
	}
	if singleBaseStates[strings.ToUpper(strings.TrimSpace(dest))] {
		return MethodologySingleBase
	}
	return MethodologyDualBase
}

// String returns the methodology name
func (m Methodology) String() string {
	switch m {
	case MethodologyAuto:
		return "auto"
	case MethodologyDualBase:
		return "dual_base"
	case MethodologySingleBase:
		return "single_base"
	default:
		return fmt.Sprintf("methodology(%d)", int(m))
	}
}

// ParseMethodology accepts the English and Portuguese spellings used on the
// CLI and in query strings. An empty string means auto.
func ParseMethodology(s string) (Methodology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return MethodologyAuto, nil
	case "dual", "dual_base", "base_dupla":
		return MethodologyDualBase, nil
	case "single", "single_base", "base_unica":
		return MethodologySingleBase, nil
	}
	return MethodologyAuto, fmt.Errorf("unknown methodology %q (use auto, dual or single)", s)
}

// MarshalText implements encoding.TextMarshaler
func (m Methodology) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Methodology) UnmarshalText(text []byte) error {
	parsed, err := ParseMethodology(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
