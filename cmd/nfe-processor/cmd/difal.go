package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/decimal"
	"github.com/rezonia/nfe-processor/internal/tax"
)

var (
	difalValue       float64
	difalOrigin      string
	difalDest        string
	difalInterstate  float64
	difalInternal    float64
	difalFCP         float64
	difalImported    bool
	difalMethodology string
)

var difalCmd = &cobra.Command{
	Use:   "difal [file.xml]",
	Short: "Calculate DIFAL for an NF-e or for given values",
	Long: `Calculate the ICMS rate differential (DIFAL) owed to the destination state.

With a file, the operation value, states and rates are taken from the
document and the rate table. Without one, pass the values as flags; rates
left out are looked up in the rate table.

Methodologies:
  - auto:        single base for ES, dual base elsewhere
  - dual_base:   base grossed up by the destination rate
  - single_base: rate differential over the operation value

Examples:
  nfe-processor difal nota.xml
  nfe-processor difal nota.xml --methodology single_base
  nfe-processor difal --value 10000 --origin SP --dest RJ -f table
  nfe-processor difal --value 10000 --origin SP --dest BA --internal 20.5 --fcp 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDifal,
}

func init() {
	rootCmd.AddCommand(difalCmd)

	difalCmd.Flags().Float64Var(&difalValue, "value", 0, "Operation value")
	difalCmd.Flags().StringVar(&difalOrigin, "origin", "", "Origin state (UF)")
	difalCmd.Flags().StringVar(&difalDest, "dest", "", "Destination state (UF)")
	difalCmd.Flags().Float64Var(&difalInterstate, "interstate", 0, "Interstate rate in percent (default: from rate table)")
	difalCmd.Flags().Float64Var(&difalInternal, "internal", 0, "Destination internal rate in percent (default: from rate table)")
	difalCmd.Flags().Float64Var(&difalFCP, "fcp", 0, "Destination FCP rate in percent (default: from rate table)")
	difalCmd.Flags().BoolVar(&difalImported, "imported", false, "Imported goods (4% interstate rate)")
	difalCmd.Flags().StringVar(&difalMethodology, "methodology", "auto", "auto, dual_base or single_base")
}

func runDifal(cmd *cobra.Command, args []string) error {
	methodology, err := tax.ParseMethodology(difalMethodology)
	if err != nil {
		return err
	}

	var in tax.DifalInput
	if len(args) == 1 {
		in, err = difalInputFromFile(args[0], methodology)
	} else {
		in, err = difalInputFromFlags(cmd, methodology)
	}
	if err != nil {
		return err
	}

	printVerbose("DIFAL input: value=%.2f %s->%s interstate=%g%% internal=%g%% fcp=%g%%\n",
		in.OperationValue, in.OriginState, in.DestinationState,
		in.InterstateRate, in.DestinationInternalRate, in.FCPRate)

	result, err := tax.CalculateDIFAL(in)
	if err != nil {
		return err
	}

	if outputFormat == "table" {
		return printDifal(result)
	}
	return outputJSON(os.Stdout, result)
}

func difalInputFromFile(path string, methodology tax.Methodology) (tax.DifalInput, error) {
	pipeline, err := newPipeline()
	if err != nil {
		return tax.DifalInput{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tax.DifalInput{}, fmt.Errorf("failed to read file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := pipeline.ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		return tax.DifalInput{}, result.Error
	}
	return tax.ExtractDIFALInput(result.Document, pipeline.Rates(), methodology)
}

func difalInputFromFlags(cmd *cobra.Command, methodology tax.Methodology) (tax.DifalInput, error) {
	if difalValue <= 0 {
		return tax.DifalInput{}, fmt.Errorf("--value must be positive when no file is given")
	}

	table, err := rateTable()
	if err != nil {
		return tax.DifalInput{}, err
	}

	in := tax.DifalInput{
		OperationValue:          difalValue,
		OriginState:             difalOrigin,
		DestinationState:        difalDest,
		InterstateRate:          difalInterstate,
		DestinationInternalRate: difalInternal,
		FCPRate:                 difalFCP,
		Methodology:             methodology,
	}

	if !cmd.Flags().Changed("interstate") {
		rate, err := table.InterstateRate(difalOrigin, difalDest, difalImported)
		if err != nil {
			return in, fmt.Errorf("interstate rate: %w", err)
		}
		in.InterstateRate = rate
	}

	if !cmd.Flags().Changed("internal") || !cmd.Flags().Changed("fcp") {
		dest, ok := table.State(difalDest)
		if !ok {
			return in, fmt.Errorf("destination: %w: %q", tax.ErrUnknownState, difalDest)
		}
		if !cmd.Flags().Changed("internal") {
			in.DestinationInternalRate = dest.Internal
		}
		if !cmd.Flags().Changed("fcp") {
			in.FCPRate = dest.FCP
		}
	}

	return in, nil
}

func printDifal(r *tax.DifalResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Methodology\t%s\n", r.Methodology)
	fmt.Fprintf(tw, "Route\t%s -> %s\n", r.OriginState, r.DestinationState)
	fmt.Fprintf(tw, "Operation value\t%s\n", decimal.FormatBRLFloat(r.OperationValue))
	if r.Methodology == tax.MethodologyDualBase {
		fmt.Fprintf(tw, "Grossed-up base\t%s\n", decimal.FormatBRLFloat(r.GrossedUpBase))
	}
	fmt.Fprintf(tw, "ICMS destination\t%s\n", decimal.FormatBRLFloat(r.ICMSDestination))
	fmt.Fprintf(tw, "ICMS origin\t%s\n", decimal.FormatBRLFloat(r.ICMSOrigin))
	fmt.Fprintf(tw, "DIFAL\t%s\n", decimal.FormatBRLFloat(r.DIFAL))
	fmt.Fprintf(tw, "FCP\t%s\n", decimal.FormatBRLFloat(r.FCP))
	fmt.Fprintf(tw, "Total\t%s\n", decimal.FormatBRLFloat(r.Total))
	return tw.Flush()
}
