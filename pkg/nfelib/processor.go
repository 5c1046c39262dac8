package nfelib

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/processor"
)

// Options configures a Processor
type Options struct {
	// Rates overrides the built-in rate table
	Rates *RateTable

	// Logger receives debug output; nil discards it
	Logger *zap.Logger

	// Validate runs the consistency checks after parsing (default: true)
	Validate bool

	// RejectInvalid turns failed checks into a Process error
	RejectInvalid bool
}

// DefaultOptions returns default processor options
func DefaultOptions() Options {
	return Options{
		Validate: true,
	}
}

// Result is one processed document with its diagnostics
type Result struct {
	Document    *FiscalDocument
	Diagnostics []Diagnostic
	Summary     Summary
	Warnings    []string
}

// Valid reports whether no check failed
func (r *Result) Valid() bool {
	return r != nil && r.Summary.Errors == 0
}

// Processor parses, validates and calculates taxes for NF-e documents
type Processor struct {
	pipeline *processor.Pipeline
	options  Options
}

// NewProcessor creates a new NF-e processor with the given options
func NewProcessor(opts Options) *Processor {
	pipeline := processor.NewPipeline(
		processor.WithRateTable(opts.Rates),
		processor.WithValidation(opts.Validate),
		processor.WithLogger(opts.Logger),
	)

	return &Processor{
		pipeline: pipeline,
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// Process parses one NF-e from r
func (p *Processor) Process(ctx context.Context, r io.Reader) (*Result, error) {
	if r == nil {
		return nil, model.NewValidationError("input", nil, "required", "reader is nil")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.ErrCodeMalformed, "failed to read input", err)
	}

	return p.ProcessBytes(ctx, data)
}

// ProcessBytes parses one NF-e from data
func (p *Processor) ProcessBytes(ctx context.Context, data []byte) (*Result, error) {
	if format := processor.DetectFormat(data); format == processor.FormatPDF {
		return nil, model.NewParseError(model.ErrCodeMalformed, "PDF (DANFE) input is not supported", nil)
	}

	result := p.pipeline.ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		return nil, result.Error
	}

	if p.options.RejectInvalid && model.HasErrors(result.Diagnostics) {
		return nil, model.NewValidationError("document", result.Document.AccessKey, "consistency",
			"document failed consistency checks")
	}

	return &Result{
		Document:    result.Document,
		Diagnostics: result.Diagnostics,
		Summary:     result.Summary,
		Warnings:    result.Warnings,
	}, nil
}

// DIFAL computes the DIFAL owed on doc using the processor's rate table
func (p *Processor) DIFAL(ctx context.Context, doc *FiscalDocument, methodology Methodology) (*DifalResult, error) {
	return p.pipeline.DIFAL(ctx, doc, methodology)
}

// ProcessBatch processes multiple inputs concurrently. Results keep input
// order; the first error encountered is returned alongside them.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*Result, error) {
	results := make([]*Result, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			result, err := p.Process(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
