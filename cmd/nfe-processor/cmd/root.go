package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/processor"
	"github.com/rezonia/nfe-processor/internal/tax"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	ratesFile    string
)

var rootCmd = &cobra.Command{
	Use:   "nfe-processor",
	Short: "Parse, validate and compute taxes for Brazilian NF-e",
	Long: `NF-e Processor is a CLI tool for Brazilian electronic invoices (NF-e).

Supports:
  - Parsing nfeProc envelopes and bare NFe documents (UTF-8, ISO-8859-1)
  - Arithmetic and structural consistency checks
  - DIFAL (dual and single base) and adjusted MVA calculations

Examples:
  # Parse a single NF-e
  nfe-processor parse nota.xml

  # Export a folder of NF-e to a spreadsheet
  nfe-processor parse notas/ -f xlsx -o notas.xlsx

  # Validate an NF-e
  nfe-processor validate nota.xml --strict

  # DIFAL for a document
  nfe-processor difal nota.xml`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table, csv, xlsx)")
	rootCmd.PersistentFlags().StringVar(&ratesFile, "rates", "", "YAML rate table overriding the built-in one (env: NFE_RATES_FILE)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if ratesFile == "" {
		ratesFile = os.Getenv("NFE_RATES_FILE")
	}
	if serverAddr == "" {
		serverAddr = os.Getenv("NFE_SERVER_ADDR")
	}
	if serverAddr == "" {
		serverAddr = ":8080"
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// rateTable returns the table from --rates, or the built-in one
func rateTable() (*tax.RateTable, error) {
	if ratesFile == "" {
		return tax.DefaultRateTable(), nil
	}
	table, err := tax.LoadRateTable(ratesFile)
	if err != nil {
		return nil, err
	}
	printVerbose("Loaded rate table from %s (%d states)\n", ratesFile, len(table.States))
	return table, nil
}

func newPipeline() (*processor.Pipeline, error) {
	table, err := rateTable()
	if err != nil {
		return nil, err
	}
	return processor.NewPipeline(processor.WithRateTable(table)), nil
}

// collectFiles expands globs and directories into the list of XML files
func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				files = append(files, match)
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSupportedFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
