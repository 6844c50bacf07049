package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landgeo/internal/config"
	"github.com/sells-group/landgeo/internal/land"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "landgeo",
	Short: "Land parcel geometry toolkit",
	Long:  "Normalizes surveyed land parcels: groups and orders boundary points, resolves reference marks, validates and stores create-land submissions, and exports boundaries.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// newBuilder returns a submission builder carrying the configured defaults.
func newBuilder() *land.Builder {
	return land.NewBuilder(
		land.WithDefaultOwnership(cfg.Land.DefaultOwnership),
		land.WithPlaceholderName(cfg.Land.PlaceholderName),
		land.WithCodePrefix(cfg.Land.CodePrefix),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
