// Package export renders parsed NF-e documents as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rezonia/nfe-processor/internal/model"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv", case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write renders docs in the given format
func Write(w io.Writer, format Format, docs []*model.FiscalDocument) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, docs)
	case FormatCSV:
		return WriteCSV(w, docs)
	}
	return fmt.Errorf("unsupported export format: %q", format)
}

var documentHeader = []string{
	"access_key", "model", "series", "number", "emitted_at", "operation_nature",
	"issuer_tax_id", "issuer_name", "issuer_state",
	"recipient_tax_id", "recipient_name", "recipient_state",
	"items", "product_total", "freight", "discount", "icms_value", "st_value",
	"ipi_value", "pis_value", "cofins_value", "grand_total", "protocol", "status",
}

var itemHeader = []string{
	"access_key", "item", "code", "description", "ncm", "cfop", "unit",
	"quantity", "unit_value", "line_total", "icms_group", "icms_base",
	"icms_rate", "icms_value", "ipi_value", "pis_value", "cofins_value",
}

// documentRow flattens the header fields of a document. Money is rendered
// with two decimals, quantities keep their precision.
func documentRow(doc *model.FiscalDocument) []string {
	var recipient model.Party
	if doc.Recipient != nil {
		recipient = *doc.Recipient
	}
	var protocol, status string
	if doc.Authorization != nil {
		protocol = doc.Authorization.ProtocolNumber
		status = doc.Authorization.StatusCode
	}
	emitted := ""
	if !doc.Identification.EmittedAt.IsZero() {
		emitted = doc.Identification.EmittedAt.Format("2006-01-02 15:04:05")
	}

	t := doc.Totals
	return []string{
		doc.AccessKey,
		doc.Identification.Model,
		doc.Identification.Series,
		doc.Identification.Number,
		emitted,
		doc.Identification.OperationNature,
		doc.Issuer.TaxID,
		doc.Issuer.Name,
		doc.IssuerState(),
		recipient.TaxID,
		recipient.Name,
		recipient.Address.State,
		fmt.Sprint(len(doc.LineItems)),
		t.ProductTotal.StringFixed(2),
		t.Freight.StringFixed(2),
		t.Discount.StringFixed(2),
		t.ICMSValue.StringFixed(2),
		t.STValue.StringFixed(2),
		t.IPIValue.StringFixed(2),
		t.PISValue.StringFixed(2),
		t.COFINSValue.StringFixed(2),
		t.GrandTotal.StringFixed(2),
		protocol,
		status,
	}
}

func itemRow(doc *model.FiscalDocument, item model.LineItem) []string {
	ipi := "0.00"
	if item.Taxes.IPI != nil {
		ipi = item.Taxes.IPI.Value.StringFixed(2)
	}
	icms := item.Taxes.ICMS
	return []string{
		doc.AccessKey,
		fmt.Sprint(item.Number),
		item.Code,
		item.Description,
		item.NCM,
		item.CFOP,
		item.Unit,
		item.Quantity.String(),
		item.UnitValue.String(),
		item.LineTotal.StringFixed(2),
		icms.Group,
		icms.Base.StringFixed(2),
		icms.Rate.String(),
		icms.Value.StringFixed(2),
		ipi,
		item.Taxes.PIS.Value.StringFixed(2),
		item.Taxes.COFINS.Value.StringFixed(2),
	}
}
