// Package tax implements the interstate ICMS calculations: DIFAL, adjusted
// MVA and the rate table they draw from.
//
// Every rate crosses the API as a percentage (18 means 18%) and is divided
// by 100 only inside the formulas.
package tax

import (
	"fmt"

	"github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/model"
)

// DifalInput holds one DIFAL calculation request
type DifalInput struct {
	OperationValue          float64     `json:"operation_value"`
	OriginState             string      `json:"origin_state"`
	DestinationState        string      `json:"destination_state"`
	InterstateRate          float64     `json:"interstate_rate"`
	DestinationInternalRate float64     `json:"destination_internal_rate"`
	FCPRate                 float64     `json:"fcp_rate"`
	Methodology             Methodology `json:"methodology"`
}

// DifalResult carries the resolved formula and every intermediate figure
type DifalResult struct {
	Methodology      Methodology `json:"methodology"`
	OriginState      string      `json:"origin_state"`
	DestinationState string      `json:"destination_state"`
	OperationValue   float64     `json:"operation_value"`

	// GrossedUpBase is zero for the single-base formula
	GrossedUpBase   float64 `json:"grossed_up_base"`
	ICMSDestination float64 `json:"icms_destination"`
	ICMSOrigin      float64 `json:"icms_origin"`
	DIFAL           float64 `json:"difal"`
	FCP             float64 `json:"fcp"`
	Total           float64 `json:"total"`
}

// CalculateDIFAL computes the ICMS rate differential owed to the
// destination state.
//
// Dual base:
//
//	base  = v / (1 - d)
//	DIFAL = base*d - v*i
//	FCP   = base*f
//
// Single base:
//
//	DIFAL = v * (d - i)
//	FCP   = v * f
func CalculateDIFAL(in DifalInput) (*DifalResult, error) {
	v := in.OperationValue
	i := decimal.PercentToRate(in.InterstateRate)
	d := decimal.PercentToRate(in.DestinationInternalRate)
	f := decimal.PercentToRate(in.FCPRate)

	result := &DifalResult{
		Methodology:      ResolveMethodology(in.Methodology, in.DestinationState),
		OriginState:      in.OriginState,
		DestinationState: in.DestinationState,
		OperationValue:   v,
	}

	switch result.Methodology {
	case MethodologyDualBase:
		if d >= 1 {
			return nil, model.NewCalcError(model.ErrCodeInvalidRateSum,
				fmt.Sprintf("destination internal rate %g%% must be below 100%%", in.DestinationInternalRate))
		}
		base := v / (1 - d)
		result.GrossedUpBase = base
		result.ICMSDestination = base * d
		result.ICMSOrigin = v * i
		result.FCP = base * f
		result.DIFAL = result.ICMSDestination - result.ICMSOrigin
	case MethodologySingleBase:
		result.ICMSDestination = v * d
		result.ICMSOrigin = v * i
		result.DIFAL = v * (d - i)
		result.FCP = v * f
	default:
		return nil, model.NewCalcError(model.ErrCodeBadMethodology,
			fmt.Sprintf("unsupported methodology %s", result.Methodology))
	}

	result.Total = result.DIFAL + result.FCP
	return result, nil
}
