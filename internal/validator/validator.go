// Package validator runs the arithmetic and structural consistency checks
// over a parsed FiscalDocument.
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/model"
)

// Diagnostic field names, in the order the checks run
const (
	FieldAccessKey      = "access_key"
	FieldAuthorization  = "authorization"
	FieldIssuerTaxID    = "issuer.tax_id"
	FieldIssuerStateReg = "issuer.state_registration"
	FieldRecipientTaxID = "recipient.tax_id"
	FieldLineItems      = "line_items"
	FieldLineNCM        = "line_items.ncm"
	FieldLineCFOP       = "line_items.cfop"
	FieldLineTotal      = "line_items.line_total"
	FieldProductTotal   = "totals.product_total"
	FieldGrandTotal     = "totals.grand_total"
)

const (
	ncmLength  = 8
	cfopLength = 4
)

var (
	// ProductSumTolerance bounds |sum(vProd of lines) - ICMSTot.vProd|
	ProductSumTolerance = decimal.RequireFromString("0.01")

	// GrandTotalTolerance bounds the recomputed vNF. ICMS, PIS and COFINS are
	// not re-added, so a slightly wider band is accepted.
	GrandTotalTolerance = decimal.RequireFromString("0.02")
)

type check func(doc *model.FiscalDocument) []model.Diagnostic

var checks = []check{
	checkAccessKey,
	checkAuthorization,
	checkIssuerTaxID,
	checkIssuerStateRegistration,
	checkRecipientTaxID,
	checkLineItems,
	checkNCM,
	checkCFOP,
	checkLineValues,
	checkProductSum,
	checkGrandTotal,
}

// Validate runs every check in a fixed order and returns all diagnostics.
// It never stops early; an empty document still gets the full set.
func Validate(doc *model.FiscalDocument) []model.Diagnostic {
	if doc == nil {
		doc = &model.FiscalDocument{}
	}
	diags := make([]model.Diagnostic, 0, len(checks))
	for _, c := range checks {
		diags = append(diags, c(doc)...)
	}
	return diags
}

// Summarize counts diagnostics by severity
func Summarize(diags []model.Diagnostic) model.Summary {
	return model.Summarize(diags)
}

func checkAccessKey(doc *model.FiscalDocument) []model.Diagnostic {
	if len(doc.AccessKey) == model.AccessKeyLength && isDigits(doc.AccessKey) {
		return success(FieldAccessKey, "access key has 44 digits")
	}
	if doc.AccessKey == "" {
		return fail(FieldAccessKey, "access key is missing")
	}
	return fail(FieldAccessKey, fmt.Sprintf("access key must have 44 digits, got %q (%d chars)", doc.AccessKey, len(doc.AccessKey)))
}

func checkAuthorization(doc *model.FiscalDocument) []model.Diagnostic {
	auth := doc.Authorization
	if auth == nil || auth.ProtocolNumber == "" {
		return warn(FieldAuthorization, "no authorization protocol, document may not be authorized")
	}
	if auth.StatusCode == model.AuthorizedStatus {
		return success(FieldAuthorization, fmt.Sprintf("authorized under protocol %s", auth.ProtocolNumber))
	}
	return warn(FieldAuthorization, fmt.Sprintf("protocol %s has status %s: %s", auth.ProtocolNumber, auth.StatusCode, auth.StatusReason))
}

func checkIssuerTaxID(doc *model.FiscalDocument) []model.Diagnostic {
	id := doc.Issuer.TaxID
	switch len(id) {
	case 0:
		return fail(FieldIssuerTaxID, "issuer tax id (CNPJ/CPF) is missing")
	case model.CNPJLength:
		return success(FieldIssuerTaxID, fmt.Sprintf("issuer CNPJ %s", id))
	case model.CPFLength:
		return success(FieldIssuerTaxID, fmt.Sprintf("issuer CPF %s", id))
	}
	return fail(FieldIssuerTaxID, fmt.Sprintf("issuer tax id %q must have 14 (CNPJ) or 11 (CPF) digits", id))
}

func checkIssuerStateRegistration(doc *model.FiscalDocument) []model.Diagnostic {
	if doc.Issuer.StateRegistration == "" {
		return warn(FieldIssuerStateReg, "issuer state registration (IE) is missing")
	}
	return success(FieldIssuerStateReg, fmt.Sprintf("issuer state registration %s", doc.Issuer.StateRegistration))
}

// Recipients may carry foreign identifiers, so only presence is checked.
func checkRecipientTaxID(doc *model.FiscalDocument) []model.Diagnostic {
	if doc.Recipient == nil {
		return nil
	}
	if doc.Recipient.TaxID == "" {
		return warn(FieldRecipientTaxID, "recipient tax id is missing")
	}
	return success(FieldRecipientTaxID, fmt.Sprintf("recipient tax id %s", doc.Recipient.TaxID))
}

func checkLineItems(doc *model.FiscalDocument) []model.Diagnostic {
	if len(doc.LineItems) == 0 {
		return fail(FieldLineItems, "no products")
	}
	return success(FieldLineItems, fmt.Sprintf("%d line item(s)", len(doc.LineItems)))
}

func checkNCM(doc *model.FiscalDocument) []model.Diagnostic {
	bad := countLines(doc, func(item model.LineItem) bool { return len(item.NCM) != ncmLength })
	if bad > 0 {
		return warnCount(FieldLineNCM, fmt.Sprintf("%d line item(s) with missing or invalid NCM (must have 8 characters)", bad), bad)
	}
	return success(FieldLineNCM, "all NCM codes have 8 characters")
}

func checkCFOP(doc *model.FiscalDocument) []model.Diagnostic {
	bad := countLines(doc, func(item model.LineItem) bool { return len(item.CFOP) != cfopLength })
	if bad > 0 {
		return warnCount(FieldLineCFOP, fmt.Sprintf("%d line item(s) with missing or invalid CFOP (must have 4 characters)", bad), bad)
	}
	return success(FieldLineCFOP, "all CFOP codes have 4 characters")
}

func checkLineValues(doc *model.FiscalDocument) []model.Diagnostic {
	bad := countLines(doc, func(item model.LineItem) bool { return !money.IsPositive(item.LineTotal) })
	if bad > 0 {
		return warnCount(FieldLineTotal, fmt.Sprintf("%d line item(s) with zero or negative value", bad), bad)
	}
	return success(FieldLineTotal, "all line items have positive values")
}

func checkProductSum(doc *model.FiscalDocument) []model.Diagnostic {
	sum := doc.SumLineTotals()
	declared := doc.Totals.ProductTotal
	delta := money.Delta(sum, declared)

	if !money.WithinTolerance(sum, declared, ProductSumTolerance) {
		return []model.Diagnostic{{
			Field:    FieldProductTotal,
			Severity: model.SeverityError,
			Message: fmt.Sprintf("product total %s does not match sum of line items %s (difference %s)",
				declared.String(), sum.String(), delta.String()),
			Delta: &delta,
		}}
	}
	return success(FieldProductTotal, fmt.Sprintf("product total %s matches sum of line items", declared.StringFixed(2)))
}

// checkGrandTotal recomputes vNF as
// vProd + vFrete + vSeg + vOutro + vIPI - vDesc + vST.
func checkGrandTotal(doc *model.FiscalDocument) []model.Diagnostic {
	t := doc.Totals
	recomputed := t.ProductTotal.
		Add(t.Freight).
		Add(t.Insurance).
		Add(t.OtherCharges).
		Add(t.IPIValue).
		Sub(t.Discount).
		Add(t.STValue)
	delta := money.Delta(recomputed, t.GrandTotal)

	if !money.WithinTolerance(recomputed, t.GrandTotal, GrandTotalTolerance) {
		return []model.Diagnostic{{
			Field:    FieldGrandTotal,
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("grand total %s does not match recomputed total %s (difference %s)",
				t.GrandTotal.String(), recomputed.String(), delta.String()),
			Delta: &delta,
		}}
	}
	return success(FieldGrandTotal, fmt.Sprintf("grand total %s matches recomputed total", t.GrandTotal.StringFixed(2)))
}

func countLines(doc *model.FiscalDocument, bad func(model.LineItem) bool) int {
	n := 0
	for _, item := range doc.LineItems {
		if bad(item) {
			n++
		}
	}
	return n
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func success(field, msg string) []model.Diagnostic {
	return []model.Diagnostic{{Field: field, Severity: model.SeveritySuccess, Message: msg}}
}

func warn(field, msg string) []model.Diagnostic {
	return []model.Diagnostic{{Field: field, Severity: model.SeverityWarning, Message: msg}}
}

func warnCount(field, msg string, count int) []model.Diagnostic {
	return []model.Diagnostic{{Field: field, Severity: model.SeverityWarning, Message: msg, Count: count}}
}

func fail(field, msg string) []model.Diagnostic {
	return []model.Diagnostic{{Field: field, Severity: model.SeverityError, Message: msg}}
}
