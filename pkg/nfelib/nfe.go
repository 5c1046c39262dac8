// Package nfelib provides a public API for processing Brazilian NF-e.
//
// It exposes the document model, the consistency checks and the
// interstate ICMS calculations (DIFAL and adjusted MVA).
//
// Example usage:
//
//	proc := nfelib.NewDefaultProcessor()
//	result, err := proc.Process(ctx, reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Document.Totals.GrandTotal)
package nfelib

import (
	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/tax"
)

// Re-export core types for public API
type (
	FiscalDocument = model.FiscalDocument
	LineItem       = model.LineItem
	Party          = model.Party
	TaxTotals      = model.TaxTotals
	Authorization  = model.Authorization
	Diagnostic     = model.Diagnostic
	Severity       = model.Severity
	Summary        = model.Summary
)

// Re-export severities
const (
	SeveritySuccess = model.SeveritySuccess
	SeverityWarning = model.SeverityWarning
	SeverityError   = model.SeverityError
)

// Re-export calculation types
type (
	DifalInput  = tax.DifalInput
	DifalResult = tax.DifalResult
	MvaInput    = tax.MvaInput
	MvaResult   = tax.MvaResult
	Methodology = tax.Methodology
	RateTable   = tax.RateTable
)

// Re-export DIFAL methodologies
const (
	MethodologyAuto       = tax.MethodologyAuto
	MethodologyDualBase   = tax.MethodologyDualBase
	MethodologySingleBase = tax.MethodologySingleBase
)

// Re-export error types
type (
	ParseError      = model.ParseError
	CalcError       = model.CalcError
	ValidationError = model.ValidationError
)

// Re-export sentinel errors for errors.Is
var (
	ErrMalformed        = model.ErrMalformed
	ErrMissingRoot      = model.ErrMissingRoot
	ErrMissingInfoBlock = model.ErrMissingInfoBlock
	ErrInvalidRateSum   = model.ErrInvalidRateSum
	ErrDivisionByZero   = model.ErrDivisionByZero
	ErrBadMethodology   = model.ErrBadMethodology
)

// CalculateDIFAL computes the ICMS rate differential for in
func CalculateDIFAL(in DifalInput) (*DifalResult, error) {
	return tax.CalculateDIFAL(in)
}

// CalculateMVA computes the adjusted MVA for in
func CalculateMVA(in MvaInput) (*MvaResult, error) {
	return tax.CalculateMVA(in)
}

// DefaultRateTable returns the built-in state rate table
func DefaultRateTable() *RateTable {
	return tax.DefaultRateTable()
}

// LoadRateTable reads a YAML rate table from path
func LoadRateTable(path string) (*RateTable, error) {
	return tax.LoadRateTable(path)
}
