package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"salesdash/pipeline"
	"salesdash/render"
)

var batchOutput string

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Predict sales for every row of a CSV file",
	Long: `Read a delimited file with a header row, predict sales for every row and write
the input columns plus Predicted_Sales as CSV to stdout or --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Write results to this file instead of stdout")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	upload, err := pipeline.ParseUpload(file)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	c, err := setup()
	if err != nil {
		return err
	}
	defer c.logger.Sync()

	service, err := c.newService(nil, nil)
	if err != nil {
		return err
	}
	result, err := service.PredictBatch(cmd.Context(), filepath.Base(args[0]), upload)
	if err != nil {
		return err
	}
	for _, issue := range result.Issues {
		printWarning(os.Stderr, "row %d: %s", issue.Row, issue.Message)
	}

	var out io.Writer = cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := pipeline.WriteResults(out, upload, pipeline.PredictedSalesColumn, result.Predictions()); err != nil {
		return err
	}

	successColor.Fprintf(os.Stderr, "Predicted %s rows, %s in total\n",
		render.FormatCount(len(result.Rows)), render.FormatSales(result.Total()))
	return nil
}
