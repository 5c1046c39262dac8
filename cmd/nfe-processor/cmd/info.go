package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	xmlparser "github.com/rezonia/nfe-processor/internal/parser/xml"
	"github.com/rezonia/nfe-processor/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about NF-e files",
	Long: `Display information about files without full processing.

Shows:
  - Detected file format (NF-e, other XML, PDF)
  - Root element and access key for NF-e
  - File metadata

Examples:
  nfe-processor info nota.xml
  nfe-processor info notas/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	for _, file := range files {
		printFileInfo(file)
		fmt.Println()
	}

	return nil
}

func printFileInfo(filePath string) {
	fmt.Printf("File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}

	fmt.Printf("  Size: %d bytes\n", info.Size())
	fmt.Printf("  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("  Error reading file: %v\n", err)
		return
	}

	format := processor.DetectFormat(data)
	fmt.Printf("  Format: %s\n", formatName(format))

	if format == processor.FormatNFe || format == processor.FormatXML {
		fmt.Printf("  Root: %s\n", xmlparser.RootName(data))
	}

	if format == processor.FormatNFe {
		doc, err := xmlparser.Parse(data)
		if err != nil {
			fmt.Printf("  Parse error: %v\n", err)
		} else {
			fmt.Printf("  Access key: %s\n", doc.AccessKey)
			fmt.Printf("  Issuer: %s (%s)\n", doc.Issuer.Name, doc.IssuerState())
			fmt.Printf("  Authorized: %t\n", doc.Authorization.Authorized())
		}
	}

	if format == processor.FormatNFe || format == processor.FormatXML {
		if preview := getPreview(string(data), 200); preview != "" {
			fmt.Printf("  Preview: %s\n", preview)
		}
	}
}

func formatName(f processor.Format) string {
	switch f {
	case processor.FormatNFe:
		return "NF-e (XML)"
	case processor.FormatXML:
		return "XML (not an NF-e)"
	case processor.FormatPDF:
		return "PDF (DANFE is not parsed)"
	default:
		return "Unknown"
	}
}

func getPreview(content string, maxLen int) string {
	if idx := strings.Index(content, "?>"); idx >= 0 {
		content = content[idx+2:]
	}

	content = strings.Join(strings.Fields(content), " ")

	if len(content) > maxLen {
		content = content[:maxLen] + "..."
	}

	return content
}
