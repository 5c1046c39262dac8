package tax

import (
	"fmt"

	"github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/model"
)

// MvaInput holds the percentages for the adjusted MVA formula
type MvaInput struct {
	OriginalMVA             float64 `json:"original_mva"`
	InterstateRate          float64 `json:"interstate_rate"`
	DestinationInternalRate float64 `json:"destination_internal_rate"`
}

// MvaResult is an adjusted MVA with the inputs it came from, all in percent
type MvaResult struct {
	Original                float64 `json:"original_mva"`
	Adjusted                float64 `json:"adjusted_mva"`
	InterstateRate          float64 `json:"interstate_rate"`
	DestinationInternalRate float64 `json:"destination_internal_rate"`
}

// CalculateMVAAdjusted returns, in percent,
//
//	((1 + MVA) * (1 - inter) / (1 - intra)) - 1
//
// Codified formula: the evaluation order is kept as written.
func CalculateMVAAdjusted(in MvaInput) (float64, error) {
	if in.DestinationInternalRate == 100 {
		return 0, model.NewCalcError(model.ErrCodeDivisionByZero,
			"destination internal rate of 100% leaves no base for the adjusted MVA")
	}

	mva := decimal.PercentToRate(in.OriginalMVA)
	inter := decimal.PercentToRate(in.InterstateRate)
	intra := decimal.PercentToRate(in.DestinationInternalRate)

	adjusted := (1+mva)*(1-inter)/(1-intra) - 1
	return decimal.RateToPercent(adjusted), nil
}

// CalculateMVA wraps CalculateMVAAdjusted for presentation
func CalculateMVA(in MvaInput) (*MvaResult, error) {
	adjusted, err := CalculateMVAAdjusted(in)
	if err != nil {
		return nil, fmt.Errorf("adjusted MVA: %w", err)
	}
	return &MvaResult{
		Original:                in.OriginalMVA,
		Adjusted:                adjusted,
		InterstateRate:          in.InterstateRate,
		DestinationInternalRate: in.DestinationInternalRate,
	}, nil
}
