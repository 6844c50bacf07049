package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/landgeo/internal/land"
)

var (
	normalizeInput  string
	normalizeOutput string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize and validate a create-land submission without storing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("normalize"); err != nil {
			return err
		}
		doc, err := readInput(normalizeInput)
		if err != nil {
			return err
		}
		_, err = runNormalize(cmd.OutOrStdout(), cmd.ErrOrStderr(), doc, normalizeOutput, newBuilder())
		return err
	},
}

// runNormalize prints the normalized submission and reports every validation
// message on errOut. The returned error is a land.ValidationError when any
// check fails.
func runNormalize(out, errOut io.Writer, doc inputDoc, format string, b *land.Builder) (land.LandSubmission, error) {
	partial, err := doc.submission()
	if err != nil {
		return land.LandSubmission{}, err
	}

	sub, err := b.Prepare(partial)
	if werr := writeOutput(out, format, sub); werr != nil {
		return sub, werr
	}

	var ve land.ValidationError
	if errors.As(err, &ve) {
		for _, msg := range ve {
			fmt.Fprintf(errOut, "invalid: %s\n", msg)
		}
	}
	return sub, err
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInput, "input", "-", "submission file (JSON or YAML), - for stdin")
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", outputJSON, "output format: json or yaml")
	rootCmd.AddCommand(normalizeCmd)
}
