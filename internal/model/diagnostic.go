package model

import "github.com/shopspring/decimal"

// Severity of a validation diagnostic
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is the outcome of one validation check
type Diagnostic struct {
	Field    string           `json:"field"`
	Severity Severity         `json:"severity"`
	Message  string           `json:"message"`
	Count    int              `json:"count,omitempty"`
	Delta    *decimal.Decimal `json:"delta,omitempty"`
}

// Summary counts diagnostics by severity
type Summary struct {
	Success  int  `json:"success"`
	Warnings int  `json:"warnings"`
	Errors   int  `json:"errors"`
	Valid    bool `json:"valid"`
}

// Summarize counts diagnostics. A document is valid when no check failed
// with SeverityError.
func Summarize(diags []Diagnostic) Summary {
	var s Summary
	for _, d := range diags {
		switch d.Severity {
		case SeveritySuccess:
			s.Success++
		case SeverityWarning:
			s.Warnings++
		case SeverityError:
			s.Errors++
		}
	}
	s.Valid = s.Errors == 0
	return s
}

// HasErrors reports whether any diagnostic is an error
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
