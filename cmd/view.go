package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landgeo/internal/land"
)

var (
	viewInput  string
	viewOutput string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Render land records into grouped, ordered boundary views",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("view"); err != nil {
			return err
		}
		doc, err := readInput(viewInput)
		if err != nil {
			return err
		}
		return runView(cmd.Context(), cmd.OutOrStdout(), doc, viewOutput, cfg.View.Concurrency)
	},
}

func runView(ctx context.Context, out io.Writer, doc inputDoc, format string, concurrency int) error {
	recs, list, err := doc.records()
	if err != nil {
		return err
	}

	views, err := land.BuildViews(ctx, recs, concurrency)
	if err != nil {
		return err
	}

	dropped := 0
	for _, v := range views {
		dropped += len(v.Dropped)
	}
	zap.L().Info("rendered land views",
		zap.Int("records", len(views)),
		zap.Int("dropped_points", dropped),
	)

	if !list {
		return writeOutput(out, format, views[0])
	}
	return writeOutput(out, format, views)
}

func init() {
	viewCmd.Flags().StringVar(&viewInput, "input", "-", "land record file (JSON or YAML), - for stdin")
	viewCmd.Flags().StringVarP(&viewOutput, "output", "o", outputJSON, "output format: json or yaml")
	rootCmd.AddCommand(viewCmd)
}
