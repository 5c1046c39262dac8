package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/export"
	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/processor"
)

var (
	outputFile string
	timeout    time.Duration
	itemRows   bool
	latinCSV   bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse NF-e files",
	Long: `Parse one or more NF-e XML files into normalized documents.

Both the authorized envelope (nfeProc) and a bare NFe are accepted.
Directories are walked for .xml files.

Output formats:
  - json:  full documents with diagnostics
  - table: one line per file
  - csv:   one row per document, or per item with --items
  - xlsx:  workbook with documents and items sheets (requires -o)

Examples:
  nfe-processor parse nota.xml
  nfe-processor parse notas/ -f table
  nfe-processor parse notas/*.xml -f csv --items --latin1 -o itens.csv
  nfe-processor parse notas/ -f xlsx -o notas.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	parseCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout per file")
	parseCmd.Flags().BoolVar(&itemRows, "items", false, "CSV: one row per line item")
	parseCmd.Flags().BoolVar(&latinCSV, "latin1", false, "CSV: encode as Windows-1252 with ';' separators")
}

func runParse(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}

	printVerbose("Found %d files to process\n", len(files))

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	results := make([]*ParseResult, 0, len(files))
	for _, file := range files {
		printVerbose("Processing: %s\n", file)

		result := parseFile(pipeline, file)
		results = append(results, result)

		if result.Error != "" {
			printVerbose("  Error: %s\n", result.Error)
		} else {
			printVerbose("  %d item(s), %d error(s), %d warning(s)\n",
				len(result.Document.LineItems), result.Summary.Errors, result.Summary.Warnings)
		}
	}

	return outputResults(results)
}

func parseFile(pipeline *processor.Pipeline, filePath string) *ParseResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := &ParseResult{
		File: filePath,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	pipelineResult := pipeline.ProcessXMLBytes(ctx, data)
	if pipelineResult.Error != nil {
		result.Error = pipelineResult.Error.Error()
		return result
	}

	result.Document = pipelineResult.Document
	result.Diagnostics = pipelineResult.Diagnostics
	result.Summary = pipelineResult.Summary
	result.Warnings = pipelineResult.Warnings

	return result
}

func outputResults(results []*ParseResult) error {
	if outputFormat == "xlsx" && outputFile == "" {
		return fmt.Errorf("xlsx output requires --output")
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		var opts []export.CSVOption
		if itemRows {
			opts = append(opts, export.WithItems())
		}
		if latinCSV {
			opts = append(opts, export.WithWindows1252(), export.WithComma(';'))
		}
		return export.WriteCSV(writer, documents(results), opts...)
	case "xlsx":
		return export.WriteXLSX(writer, documents(results))
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func documents(results []*ParseResult) []*model.FiscalDocument {
	docs := make([]*model.FiscalDocument, 0, len(results))
	for _, r := range results {
		if r.Document != nil {
			docs = append(docs, r.Document)
		} else {
			printVerbose("Skipping %s: %s\n", r.File, r.Error)
		}
	}
	return docs
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputTable(w io.Writer, results []*ParseResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNUMBER\tDATE\tISSUER\tFROM\tTO\tITEMS\tTOTAL\tSTATUS")
	fmt.Fprintln(tw, "----\t------\t----\t------\t----\t--\t-----\t-----\t------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\t\t\n", r.File, r.Error)
			continue
		}

		doc := r.Document
		date := ""
		if !doc.Identification.EmittedAt.IsZero() {
			date = doc.Identification.EmittedAt.Format("2006-01-02")
		}
		status := "valid"
		if !r.Summary.Valid {
			status = fmt.Sprintf("%d error(s)", r.Summary.Errors)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.File,
			doc.Identification.Number,
			date,
			doc.Issuer.Name,
			doc.IssuerState(),
			doc.RecipientState(),
			len(doc.LineItems),
			decimal.FormatBRL(doc.Totals.GrandTotal),
			status,
		)
	}

	return tw.Flush()
}

// ParseResult holds the result of processing a single file
type ParseResult struct {
	File        string                `json:"file"`
	Document    *model.FiscalDocument `json:"document,omitempty"`
	Diagnostics []model.Diagnostic    `json:"diagnostics,omitempty"`
	Summary     model.Summary         `json:"summary"`
	Warnings    []string              `json:"warnings,omitempty"`
	Error       string                `json:"error,omitempty"`
}
