package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/landgeo/internal/geo"
	"github.com/sells-group/landgeo/internal/store"
)

var (
	listFarmer int64
	listBBox   string
	listLimit  int
	listOffset int
	listOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored lands, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("list"); err != nil {
			return err
		}

		filter := store.LandFilter{Limit: listLimit, Offset: listOffset}
		if cmd.Flags().Changed("farmer") {
			filter.FarmerID = &listFarmer
		}
		if listBBox != "" {
			b, err := parseBBox(listBBox)
			if err != nil {
				return err
			}
			filter.BBox = b
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lands, err := st.ListLands(ctx, filter)
		if err != nil {
			return err
		}
		if lands == nil {
			lands = []store.LandSummary{}
		}
		return writeOutput(cmd.OutOrStdout(), listOutput, lands)
	},
}

// parseBBox parses "minLng,minLat,maxLng,maxLat".
func parseBBox(s string) (*geo.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, eris.Errorf("bbox %q: want minLng,minLat,maxLng,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "bbox %q", s)
		}
		v[i] = f
	}
	b := geo.BBox{MinLng: v[0], MinLat: v[1], MaxLng: v[2], MaxLat: v[3]}
	if b.MinLng > b.MaxLng || b.MinLat > b.MaxLat {
		return nil, eris.Errorf("bbox %q: min exceeds max", s)
	}
	return &b, nil
}

func init() {
	listCmd.Flags().Int64Var(&listFarmer, "farmer", 0, "only lands of this farmer")
	listCmd.Flags().StringVar(&listBBox, "bbox", "", "only lands overlapping minLng,minLat,maxLng,maxLat")
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "maximum lands to return")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "lands to skip")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", outputJSON, "output format: json or yaml")
	rootCmd.AddCommand(listCmd)
}
