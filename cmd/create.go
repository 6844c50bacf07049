package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landgeo/internal/land"
	"github.com/sells-group/landgeo/internal/store"
)

var createInput string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Normalize, validate and store a create-land submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("create"); err != nil {
			return err
		}
		doc, err := readInput(createInput)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		id, err := runCreate(ctx, cmd.ErrOrStderr(), st, doc, newBuilder())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// runCreate stores the submission in doc once it passes validation.
// Nothing is written when any check fails.
func runCreate(ctx context.Context, errOut io.Writer, st store.Store, doc inputDoc, b *land.Builder) (int64, error) {
	partial, err := doc.submission()
	if err != nil {
		return 0, err
	}

	sub, err := b.Prepare(partial)
	if err != nil {
		var ve land.ValidationError
		if errors.As(err, &ve) {
			for _, msg := range ve {
				fmt.Fprintf(errOut, "invalid: %s\n", msg)
			}
		}
		return 0, err
	}

	id, err := st.CreateLand(ctx, sub)
	if err != nil {
		return 0, err
	}
	zap.L().Info("land created",
		zap.Int64("land_id", id),
		zap.String("land_code", sub.LandCode),
		zap.Int("coordinate_points", len(sub.CoordinatePoints)),
		zap.Int("reference_points", len(sub.ReferencePoints)),
	)
	return id, nil
}

func init() {
	createCmd.Flags().StringVar(&createInput, "input", "-", "submission file (JSON or YAML), - for stdin")
	rootCmd.AddCommand(createCmd)
}
