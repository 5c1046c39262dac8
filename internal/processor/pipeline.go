package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rezonia/nfe-processor/internal/model"
	xmlparser "github.com/rezonia/nfe-processor/internal/parser/xml"
	"github.com/rezonia/nfe-processor/internal/tax"
	"github.com/rezonia/nfe-processor/internal/validator"
)

// Format represents the detected input format
type Format int

const (
	FormatUnknown Format = iota
	FormatNFe            // XML with an nfeProc or NFe root
	FormatXML            // well-formed XML with some other root
	FormatPDF            // usually a DANFE printout; not decoded
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatNFe:
		return "nfe"
	case FormatXML:
		return "xml"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// DetectFormat inspects the leading bytes to pick a format
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	if bytes.HasPrefix(trimmed, []byte("%PDF")) {
		return FormatPDF
	}

	if trimmed[0] == '<' {
		if xmlparser.CanParse(data) {
			return FormatNFe
		}
		if xmlparser.RootName(data) != "" {
			return FormatXML
		}
	}

	return FormatUnknown
}

// Result holds the outcome of processing one document
type Result struct {
	Document    *model.FiscalDocument
	Diagnostics []model.Diagnostic
	Summary     model.Summary
	Warnings    []string
	Error       error
}

// Valid reports whether the document parsed and no check failed
func (r *Result) Valid() bool {
	return r.Error == nil && r.Document != nil && !model.HasErrors(r.Diagnostics)
}

// Pipeline parses and validates NF-e documents
type Pipeline struct {
	rates    *tax.RateTable
	validate bool
	logger   *zap.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithRateTable sets the table used for DIFAL extraction
func WithRateTable(table *tax.RateTable) PipelineOption {
	return func(p *Pipeline) {
		if table != nil {
			p.rates = table
		}
	}
}

// WithValidation turns the consistency checks on or off
func WithValidation(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.validate = enabled
	}
}

// WithLogger sets the logger for debug output
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rates:    tax.DefaultRateTable(),
		validate: true,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rates returns the rate table in use
func (p *Pipeline) Rates() *tax.RateTable {
	return p.rates
}

// ProcessXML reads an NF-e from r, parses and validates it
func (p *Pipeline) ProcessXML(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Error: fmt.Errorf("failed to read input: %w", err)}
	}
	return p.ProcessXMLBytes(ctx, data)
}

// ProcessXMLBytes parses and validates an NF-e held in memory
func (p *Pipeline) ProcessXMLBytes(ctx context.Context, data []byte) *Result {
	result := &Result{}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	doc, err := xmlparser.Parse(data)
	if err != nil {
		p.logger.Debug("parse failed", zap.Int("size", len(data)), zap.Error(err))
		result.Error = fmt.Errorf("XML parsing failed: %w", err)
		return result
	}
	result.Document = doc

	if p.validate {
		result.Diagnostics = validator.Validate(doc)
		result.Summary = validator.Summarize(result.Diagnostics)
		for _, d := range result.Diagnostics {
			if d.Severity == model.SeverityWarning {
				result.Warnings = append(result.Warnings, d.Message)
			}
		}
	}

	p.logger.Debug("document processed",
		zap.String("access_key", doc.AccessKey),
		zap.Int("items", len(doc.LineItems)),
		zap.Int("errors", result.Summary.Errors),
	)

	return result
}

// DIFAL extracts the DIFAL input from a parsed document and runs the
// calculator with the pipeline's rate table.
func (p *Pipeline) DIFAL(ctx context.Context, doc *model.FiscalDocument, methodology tax.Methodology) (*tax.DifalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := tax.ExtractDIFALInput(doc, p.rates, methodology)
	if err != nil {
		return nil, fmt.Errorf("DIFAL input: %w", err)
	}
	return tax.CalculateDIFAL(in)
}
