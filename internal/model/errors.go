package model

import (
	"errors"
	"fmt"
)

// Error codes for document parsing
const (
	ErrCodeMalformed        = "MALFORMED"
	ErrCodeMissingRoot      = "MISSING_ROOT"
	ErrCodeMissingInfoBlock = "MISSING_INFO_BLOCK"
)

// Error codes for tax calculations
const (
	ErrCodeInvalidRateSum = "INVALID_RATE_SUM"
	ErrCodeDivisionByZero = "DIVISION_BY_ZERO"
	ErrCodeBadMethodology = "UNSUPPORTED_METHODOLOGY"
)

// Sentinels matched with errors.Is against ParseError and CalcError
var (
	ErrMalformed        = errors.New("malformed document")
	ErrMissingRoot      = errors.New("missing document root")
	ErrMissingInfoBlock = errors.New("missing infNFe block")

	ErrInvalidRateSum = errors.New("invalid rate sum")
	ErrDivisionByZero = errors.New("division by zero")
	ErrBadMethodology = errors.New("unsupported methodology")
)

// ParseError is a fatal document parsing failure
type ParseError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that corresponds to the error code
func (e *ParseError) Is(target error) bool {
	switch e.Code {
	case ErrCodeMalformed:
		return target == ErrMalformed
	case ErrCodeMissingRoot:
		return target == ErrMissingRoot
	case ErrCodeMissingInfoBlock:
		return target == ErrMissingInfoBlock
	}
	return false
}

// NewParseError creates a new parse error
func NewParseError(code, message string, cause error) *ParseError {
	return &ParseError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewMalformedError reports input that is not well-formed XML
func NewMalformedError(cause error) *ParseError {
	return NewParseError(ErrCodeMalformed, "document is not well-formed XML", cause)
}

// NewMissingRootError reports a root element other than nfeProc or NFe
func NewMissingRootError(root string) *ParseError {
	if root == "" {
		return NewParseError(ErrCodeMissingRoot, "no nfeProc or NFe element found", nil)
	}
	return NewParseError(ErrCodeMissingRoot, fmt.Sprintf("unexpected root element %q, want nfeProc or NFe", root), nil)
}

// NewMissingInfoBlockError reports an NFe element without infNFe
func NewMissingInfoBlockError() *ParseError {
	return NewParseError(ErrCodeMissingInfoBlock, "infNFe element not found", nil)
}

// CalcError is a tax calculation failure. Calculators return it instead
// of a zero, infinite or NaN result.
type CalcError struct {
	Code    string
	Message string
}

func (e *CalcError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is matches the sentinel that corresponds to the error code
func (e *CalcError) Is(target error) bool {
	switch e.Code {
	case ErrCodeInvalidRateSum:
		return target == ErrInvalidRateSum
	case ErrCodeDivisionByZero:
		return target == ErrDivisionByZero
	case ErrCodeBadMethodology:
		return target == ErrBadMethodology
	}
	return false
}

// NewCalcError creates a new calculation error
func NewCalcError(code, message string) *CalcError {
	return &CalcError{
		Code:    code,
		Message: message,
	}
}

// ValidationError represents a rejected input value at an API boundary
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}
