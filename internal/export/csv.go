package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/rezonia/nfe-processor/internal/model"
)

// CSVOption configures CSV output
type CSVOption func(*csvConfig)

type csvConfig struct {
	comma rune
	latin bool
	items bool
}

// WithComma sets the field separator. Spreadsheet tools set to pt-BR expect ';'.
func WithComma(r rune) CSVOption {
	return func(c *csvConfig) {
		c.comma = r
	}
}

// WithWindows1252 encodes the output as Windows-1252 instead of UTF-8
func WithWindows1252() CSVOption {
	return func(c *csvConfig) {
		c.latin = true
	}
}

// WithItems writes one row per line item instead of one per document
func WithItems() CSVOption {
	return func(c *csvConfig) {
		c.items = true
	}
}

// WriteCSV writes docs as CSV, one row per document unless WithItems is given
func WriteCSV(w io.Writer, docs []*model.FiscalDocument, opts ...CSVOption) error {
	cfg := csvConfig{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	var tw *transform.Writer
	if cfg.latin {
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()))
		w = tw
	}

	writer := csv.NewWriter(w)
	writer.Comma = cfg.comma

	header := documentHeader
	if cfg.items {
		header = itemHeader
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if !cfg.items {
			if err := writer.Write(documentRow(doc)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
			continue
		}
		for _, item := range doc.LineItems {
			if err := writer.Write(itemRow(doc, item)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}
