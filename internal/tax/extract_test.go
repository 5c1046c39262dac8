package tax_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-processor/internal/model"
	xmlparser "github.com/rezonia/nfe-processor/internal/parser/xml"
	"github.com/rezonia/nfe-processor/internal/tax"
)

func interstateDocument(origin, dest, icmsOrigin string) *model.FiscalDocument {
	return &model.FiscalDocument{
		Issuer:    model.Party{Address: model.Address{State: origin}},
		Recipient: &model.Party{Address: model.Address{State: dest}},
		LineItems: []model.LineItem{
			{Number: 1, LineTotal: decimal.NewFromInt(10000), Taxes: model.ItemTaxes{ICMS: model.ICMSTax{Origin: icmsOrigin}}},
		},
		Totals: model.TaxTotals{
			ProductTotal: decimal.NewFromInt(10000),
			GrandTotal:   decimal.NewFromInt(10000),
		},
	}
}

func TestExtractDIFALInput_EndToEnd(t *testing.T) {
	doc := interstateDocument("SP", "RJ", "0")

	in, err := tax.ExtractDIFALInput(doc, tax.DefaultRateTable(), tax.MethodologyDualBase)
	require.NoError(t, err)

	assert.Equal(t, 10000.0, in.OperationValue)
	assert.Equal(t, "SP", in.OriginState)
	assert.Equal(t, "RJ", in.DestinationState)
	assert.Equal(t, 12.0, in.InterstateRate)
	assert.Equal(t, 20.0, in.DestinationInternalRate)
	assert.Equal(t, 2.0, in.FCPRate)

	result, err := tax.CalculateDIFAL(in)
	require.NoError(t, err)
	assert.InDelta(t, 12500, result.GrossedUpBase, tolerance)
	assert.InDelta(t, 2500, result.ICMSDestination, tolerance)
	assert.InDelta(t, 1200, result.ICMSOrigin, tolerance)
	assert.InDelta(t, 250, result.FCP, tolerance)
	assert.InDelta(t, 1300, result.DIFAL, tolerance)
	assert.InDelta(t, 1550, result.Total, tolerance)
}

func TestExtractDIFALInput_ImportedGoods(t *testing.T) {
	in, err := tax.ExtractDIFALInput(interstateDocument("SP", "BA", "1"), nil, tax.MethodologyAuto)
	require.NoError(t, err)
	assert.Equal(t, 4.0, in.InterstateRate)
	assert.Equal(t, 20.5, in.DestinationInternalRate)
}

func TestExtractDIFALInput_FallsBackToProductTotal(t *testing.T) {
	doc := interstateDocument("SP", "MG", "0")
	doc.Totals.GrandTotal = decimal.Zero
	doc.Totals.ProductTotal = decimal.RequireFromString("4321.09")

	in, err := tax.ExtractDIFALInput(doc, nil, tax.MethodologyAuto)
	require.NoError(t, err)
	assert.Equal(t, 4321.09, in.OperationValue)
}

func TestExtractDIFALInput_Errors(t *testing.T) {
	doc := interstateDocument("SP", "RJ", "0")
	doc.Recipient = nil
	_, err := tax.ExtractDIFALInput(doc, nil, tax.MethodologyAuto)
	assert.ErrorIs(t, err, tax.ErrNoRecipient)

	_, err = tax.ExtractDIFALInput(interstateDocument("SP", "SP", "0"), nil, tax.MethodologyAuto)
	assert.ErrorIs(t, err, tax.ErrSameState)

	_, err = tax.ExtractDIFALInput(interstateDocument("SP", "", "0"), nil, tax.MethodologyAuto)
	assert.ErrorIs(t, err, tax.ErrUnknownState)
}

func TestExtractDIFALInput_ParsedDocument(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("..", "parser", "xml", "testdata", "nfe_proc_sp_rj.xml"))
	require.NoError(t, err)

	doc, err := xmlparser.Parse(content)
	require.NoError(t, err)

	in, err := tax.ExtractDIFALInput(doc, nil, tax.MethodologyAuto)
	require.NoError(t, err)
	assert.Equal(t, 10650.0, in.OperationValue)

	result, err := tax.CalculateDIFAL(in)
	require.NoError(t, err)
	assert.Equal(t, tax.MethodologyDualBase, result.Methodology)
	assert.InDelta(t, 13312.5, result.GrossedUpBase, tolerance)
	assert.InDelta(t, 1384.5, result.DIFAL, tolerance)
	assert.InDelta(t, 266.25, result.FCP, tolerance)
	assert.InDelta(t, 1650.75, result.Total, tolerance)
}
