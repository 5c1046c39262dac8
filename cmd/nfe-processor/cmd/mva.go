package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/tax"
)

var (
	mvaOriginal   float64
	mvaInterstate float64
	mvaInternal   float64
)

var mvaCmd = &cobra.Command{
	Use:   "mva",
	Short: "Calculate the adjusted MVA for tax substitution",
	Long: `Calculate the adjusted MVA (MVA ajustada) used when goods under ICMS tax
substitution cross state lines. All values are percentages.

Examples:
  nfe-processor mva --mva 40 --interstate 12 --internal 18
  nfe-processor mva --mva 40 --interstate 4 --internal 18 -f table`,
	Args: cobra.NoArgs,
	RunE: runMVA,
}

func init() {
	rootCmd.AddCommand(mvaCmd)

	mvaCmd.Flags().Float64Var(&mvaOriginal, "mva", 0, "Original MVA in percent")
	mvaCmd.Flags().Float64Var(&mvaInterstate, "interstate", 0, "Interstate rate in percent")
	mvaCmd.Flags().Float64Var(&mvaInternal, "internal", 0, "Destination internal rate in percent")
	_ = mvaCmd.MarkFlagRequired("mva")
	_ = mvaCmd.MarkFlagRequired("interstate")
	_ = mvaCmd.MarkFlagRequired("internal")
}

func runMVA(cmd *cobra.Command, args []string) error {
	result, err := tax.CalculateMVA(tax.MvaInput{
		OriginalMVA:             mvaOriginal,
		InterstateRate:          mvaInterstate,
		DestinationInternalRate: mvaInternal,
	})
	if err != nil {
		return err
	}

	if outputFormat == "table" {
		fmt.Printf("Original MVA:  %.2f%%\n", result.Original)
		fmt.Printf("Interstate:    %.2f%%\n", result.InterstateRate)
		fmt.Printf("Internal:      %.2f%%\n", result.DestinationInternalRate)
		fmt.Printf("Adjusted MVA:  %.4f%%\n", result.Adjusted)
		return nil
	}
	return outputJSON(os.Stdout, result)
}
