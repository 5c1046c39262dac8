package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/processor"
)

var (
	strictValidation bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate NF-e files",
	Long: `Validate one or more NF-e files for structural and arithmetic consistency.

Checks performed, in order:
  - Access key has 44 digits
  - Authorization protocol present with status 100
  - Issuer CNPJ/CPF length and state registration (IE)
  - Recipient tax id present
  - At least one line item
  - NCM (8 chars), CFOP (4 chars) and positive value per line
  - Sum of line values matches the declared product total (0.01)
  - Recomputed grand total matches vNF (0.02)

Examples:
  nfe-processor validate nota.xml
  nfe-processor validate notas/*.xml --strict -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as failures")
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(pipeline, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		if err := outputJSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		printValidation(results)
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}

	return nil
}

func validateFile(pipeline *processor.Pipeline, filePath string) *ValidationResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ValidationResult{
		File:  filePath,
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	pipelineResult := pipeline.ProcessXMLBytes(ctx, data)
	if pipelineResult.Error != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("parse error: %v", pipelineResult.Error))
		return result
	}

	result.AccessKey = pipelineResult.Document.AccessKey
	result.Summary = pipelineResult.Summary
	result.Diagnostics = pipelineResult.Diagnostics

	for _, d := range pipelineResult.Diagnostics {
		switch d.Severity {
		case model.SeverityError:
			result.Valid = false
			result.Errors = append(result.Errors, d.Message)
		case model.SeverityWarning:
			if strictValidation {
				result.Valid = false
				result.Errors = append(result.Errors, d.Message)
			} else {
				result.Warnings = append(result.Warnings, d.Message)
			}
		}
	}

	return result
}

func printValidation(results []*ValidationResult) {
	for _, r := range results {
		if r.Valid {
			fmt.Printf("✓ %s: VALID\n", r.File)
		} else {
			fmt.Printf("✗ %s: INVALID\n", r.File)
			for _, e := range r.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}
		for _, w := range r.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
		if verbose {
			for _, d := range r.Diagnostics {
				if d.Severity == model.SeveritySuccess {
					fmt.Printf("  ✓ %s\n", d.Message)
				}
			}
		}
	}
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File        string             `json:"file"`
	AccessKey   string             `json:"access_key,omitempty"`
	Valid       bool               `json:"valid"`
	Summary     model.Summary      `json:"summary"`
	Errors      []string           `json:"errors,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}
