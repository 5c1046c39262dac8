package tax_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/tax"
)

const tolerance = 1e-6

func spToRJ(methodology tax.Methodology) tax.DifalInput {
	return tax.DifalInput{
		OperationValue:          10000,
		OriginState:             "SP",
		DestinationState:        "RJ",
		InterstateRate:          12,
		DestinationInternalRate: 20,
		FCPRate:                 2,
		Methodology:             methodology,
	}
}

func TestCalculateDIFAL_DualBaseSPToRJ(t *testing.T) {
	result, err := tax.CalculateDIFAL(spToRJ(tax.MethodologyDualBase))
	require.NoError(t, err)

	assert.Equal(t, tax.MethodologyDualBase, result.Methodology)
	assert.InDelta(t, 12500, result.GrossedUpBase, tolerance)
	assert.InDelta(t, 2500, result.ICMSDestination, tolerance)
	assert.InDelta(t, 1200, result.ICMSOrigin, tolerance)
	assert.InDelta(t, 250, result.FCP, tolerance)
	assert.InDelta(t, 1300, result.DIFAL, tolerance)
	assert.InDelta(t, 1550, result.Total, tolerance)
	assert.Equal(t, "SP", result.OriginState)
	assert.Equal(t, "RJ", result.DestinationState)
}

func TestCalculateDIFAL_SingleBase(t *testing.T) {
	result, err := tax.CalculateDIFAL(spToRJ(tax.MethodologySingleBase))
	require.NoError(t, err)

	assert.Equal(t, tax.MethodologySingleBase, result.Methodology)
	assert.Zero(t, result.GrossedUpBase)
	assert.InDelta(t, 800, result.DIFAL, tolerance)
	assert.InDelta(t, 200, result.FCP, tolerance)
	assert.InDelta(t, 1000, result.Total, tolerance)
	assert.InDelta(t, 2000, result.ICMSDestination, tolerance)
	assert.InDelta(t, 1200, result.ICMSOrigin, tolerance)
}

func TestCalculateDIFAL_AutoResolvesByDestination(t *testing.T) {
	toES := spToRJ(tax.MethodologyAuto)
	toES.DestinationState = "ES"
	esResult, err := tax.CalculateDIFAL(toES)
	require.NoError(t, err)

	toRJ := spToRJ(tax.MethodologyAuto)
	rjResult, err := tax.CalculateDIFAL(toRJ)
	require.NoError(t, err)

	assert.Equal(t, tax.MethodologySingleBase, esResult.Methodology)
	assert.Equal(t, tax.MethodologyDualBase, rjResult.Methodology)

	// same numbers, different formulas
	assert.InDelta(t, 1000, esResult.Total, tolerance)
	assert.InDelta(t, 1550, rjResult.Total, tolerance)
	assert.NotEqual(t, esResult.Total, rjResult.Total)
}

func TestCalculateDIFAL_ExplicitMethodologyOverridesState(t *testing.T) {
	in := spToRJ(tax.MethodologyDualBase)
	in.DestinationState = "ES"

	result, err := tax.CalculateDIFAL(in)
	require.NoError(t, err)
	assert.Equal(t, tax.MethodologyDualBase, result.Methodology)
	assert.InDelta(t, 12500, result.GrossedUpBase, tolerance)
}

func TestCalculateDIFAL_ScaleInvariance(t *testing.T) {
	for _, m := range []tax.Methodology{tax.MethodologyDualBase, tax.MethodologySingleBase} {
		t.Run(m.String(), func(t *testing.T) {
			for _, value := range []float64{0.01, 1, 997.13, 10000, 1234567.89} {
				in := spToRJ(m)
				in.OperationValue = value
				single, err := tax.CalculateDIFAL(in)
				require.NoError(t, err)

				in.OperationValue = value * 2
				double, err := tax.CalculateDIFAL(in)
				require.NoError(t, err)

				assert.InDelta(t, 2*single.GrossedUpBase, double.GrossedUpBase, tolerance)
				assert.InDelta(t, 2*single.ICMSDestination, double.ICMSDestination, tolerance)
				assert.InDelta(t, 2*single.ICMSOrigin, double.ICMSOrigin, tolerance)
				assert.InDelta(t, 2*single.DIFAL, double.DIFAL, tolerance)
				assert.InDelta(t, 2*single.FCP, double.FCP, tolerance)
				assert.InDelta(t, 2*single.Total, double.Total, tolerance)
			}
		})
	}
}

// Rates are percentages: 20 means 20%, never 0.20 or 2000%.
func TestCalculateDIFAL_PercentageConvention(t *testing.T) {
	in := spToRJ(tax.MethodologySingleBase)
	in.InterstateRate = 0.12
	in.DestinationInternalRate = 0.20
	in.FCPRate = 0.02

	result, err := tax.CalculateDIFAL(in)
	require.NoError(t, err)

	// fractional inputs read as fractions of a percent
	assert.InDelta(t, 8, result.DIFAL, tolerance)
	assert.InDelta(t, 2, result.FCP, tolerance)
}

func TestCalculateDIFAL_InvalidRateSum(t *testing.T) {
	for _, rate := range []float64{100, 120} {
		in := spToRJ(tax.MethodologyDualBase)
		in.DestinationInternalRate = rate

		result, err := tax.CalculateDIFAL(in)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, model.ErrInvalidRateSum)

		var calcErr *model.CalcError
		require.ErrorAs(t, err, &calcErr)
		assert.Equal(t, model.ErrCodeInvalidRateSum, calcErr.Code)
	}

	// single base has no division
	in := spToRJ(tax.MethodologySingleBase)
	in.DestinationInternalRate = 100
	_, err := tax.CalculateDIFAL(in)
	assert.NoError(t, err)
}

func TestCalculateDIFAL_UnsupportedMethodology(t *testing.T) {
	in := spToRJ(tax.Methodology(7))

	result, err := tax.CalculateDIFAL(in)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, model.ErrBadMethodology)

	var calcErr *model.CalcError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, model.ErrCodeBadMethodology, calcErr.Code)
}

func TestMethodology_ParseAndResolve(t *testing.T) {
	tests := []struct {
		input    string
		expected tax.Methodology
	}{
		{"", tax.MethodologyAuto},
		{"auto", tax.MethodologyAuto},
		{"DUAL", tax.MethodologyDualBase},
		{"base_dupla", tax.MethodologyDualBase},
		{"dual_base", tax.MethodologyDualBase},
		{"single", tax.MethodologySingleBase},
		{"base_unica", tax.MethodologySingleBase},
		{" single_base ", tax.MethodologySingleBase},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := tax.ParseMethodology(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}

	_, err := tax.ParseMethodology("triple")
	assert.Error(t, err)

	assert.Equal(t, tax.MethodologySingleBase, tax.ResolveMethodology(tax.MethodologyAuto, "ES"))
	assert.Equal(t, tax.MethodologySingleBase, tax.ResolveMethodology(tax.MethodologyAuto, "es"))
	assert.Equal(t, tax.MethodologyDualBase, tax.ResolveMethodology(tax.MethodologyAuto, "RJ"))
	assert.Equal(t, tax.MethodologyDualBase, tax.ResolveMethodology(tax.MethodologyDualBase, "ES"))
	assert.Equal(t, tax.MethodologySingleBase, tax.ResolveMethodology(tax.MethodologySingleBase, "RJ"))
}

func TestMethodology_JSON(t *testing.T) {
	var in tax.DifalInput
	err := json.Unmarshal([]byte(`{"operation_value": 10000, "destination_state": "RJ", "methodology": "base_dupla"}`), &in)
	require.NoError(t, err)
	assert.Equal(t, tax.MethodologyDualBase, in.Methodology)

	out, err := json.Marshal(tax.DifalResult{Methodology: tax.MethodologySingleBase})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"methodology":"single_base"`)

	err = json.Unmarshal([]byte(`{"methodology": "nope"}`), &in)
	assert.Error(t, err)
}
