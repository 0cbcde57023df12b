package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"salesdash/ml"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the model's feature list and attribute encodings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schema, err := loadSchema(cfg.Model)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printHeader(out, "Features (%d)", schema.Len())
		for i, name := range schema.Names() {
			fmt.Fprintf(out, "  %2d  %s\n", i, name)
		}
		fmt.Fprintln(out)
		printHeader(out, "Attributes")
		for _, enc := range ml.AttributeEncodings() {
			baseline := ""
			if enc.Baseline != "" {
				baseline = dimColor.Sprintf(" (baseline %s)", enc.Baseline)
			}
			fmt.Fprintf(out, "  %-12s %s%s\n", enc.Attribute, strings.Join(enc.Values, ", "), baseline)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
