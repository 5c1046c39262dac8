package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/rezonia/nfe-processor/internal/model"
)

// Sheet names in the exported workbook
const (
	SheetDocuments = "Documentos"
	SheetItems     = "Itens"
)

// columns holding amounts or quantities, stored as numbers in the workbook
var numericColumns = map[string]bool{
	"items":         true,
	"product_total": true,
	"freight":       true,
	"discount":      true,
	"icms_value":    true,
	"st_value":      true,
	"ipi_value":     true,
	"pis_value":     true,
	"cofins_value":  true,
	"grand_total":   true,
	"item":          true,
	"quantity":      true,
	"unit_value":    true,
	"line_total":    true,
	"icms_base":     true,
	"icms_rate":     true,
}

// WriteXLSX writes a workbook with a documents sheet and an items sheet
func WriteXLSX(w io.Writer, docs []*model.FiscalDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var docRows, itemRows [][]string
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		docRows = append(docRows, documentRow(doc))
		for _, item := range doc.LineItems {
			itemRows = append(itemRows, itemRow(doc, item))
		}
	}

	if err := writeSheet(f, SheetDocuments, documentHeader, docRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, SheetItems, itemHeader, itemRows, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s: failed to write header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("%s: failed to style header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := cells(header, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("%s: failed to write row %d: %w", sheet, i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

// cells converts numeric columns so spreadsheet formulas work on them.
// Text that fails to parse is kept as text.
func cells(header, row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
		if i < len(header) && numericColumns[header[i]] {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[i] = f
			}
		}
	}
	return out
}
