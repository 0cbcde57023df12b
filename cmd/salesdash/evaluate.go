package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"salesdash/config"
	"salesdash/ml"
	"salesdash/pipeline"
	"salesdash/render"
)

var evaluateFlags struct {
	chart string
	svg   string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report accuracy on the saved hold-out predictions",
	Args:  cobra.NoArgs,
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateFlags.chart, "chart", "scatter", "Chart written by --svg (scatter, bar)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.svg, "svg", "", "Write the chart as SVG to this file")
	rootCmd.AddCommand(evaluateCmd)
}

// evaluate only reads the saved series, so it skips model loading.
func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sample, err := ml.LoadEvaluation(cfg.Evaluation.ActualPath, cfg.Evaluation.PredictedPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	m := sample.Metrics()
	printHeader(out, "Hold-out evaluation")
	printField(out, "rows", render.FormatCount(m.Count))
	printField(out, "MAE", render.FormatNumber(m.MAE))
	printField(out, "RMSE", render.FormatNumber(m.RMSE))
	printField(out, "R²", render.FormatNumber(m.R2))

	if evaluateFlags.svg == "" {
		return nil
	}
	return writeEvaluationSVG(evaluateFlags.svg, evaluateFlags.chart, sample, cfg.Evaluation)
}

func writeEvaluationSVG(path, chart string, sample ml.EvaluationSample, cfg config.EvaluationConfig) error {
	chart, err := pipeline.ParseChart(chart)
	if err != nil {
		return err
	}
	if chart == pipeline.ChartNone {
		return fmt.Errorf("--svg needs a scatter or bar chart")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if chart == pipeline.ChartBar {
		err = render.ComparisonSVG(f, sample.Sample(cfg.SampleSize, cfg.Seed))
	} else {
		err = render.ScatterSVG(f, sample.Scatter())
	}
	if err != nil {
		return err
	}
	successColor.Fprintf(os.Stderr, "Wrote %s chart to %s\n", chart, path)
	return nil
}
