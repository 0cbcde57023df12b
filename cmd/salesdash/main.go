// Command salesdash serves the sales prediction dashboard and runs
// one-off predictions from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "Dynamic pricing sales prediction dashboard",
	Long: `Predicts unit sales for products from their price, cost, catalogue attributes
and date, either one at a time, from uploaded CSV files, or through the web dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			disableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml or .toml); defaults to ./config.yaml when present")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint(err))
		os.Exit(1)
	}
}
