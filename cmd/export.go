package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landgeo/internal/export"
	"github.com/sells-group/landgeo/internal/land"
)

// Export formats accepted by --format.
const (
	formatShapefile = "shp"
	formatGeoJSON   = "geojson"
	formatEWKB      = "ewkb"
)

var (
	exportInput  string
	exportLandID int64
	exportFormat string
	exportDir    string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export land boundaries as Shapefile, GeoJSON or EWKB",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var recs []land.LandRecord
		if cmd.Flags().Changed("land-id") {
			if err := cfg.Validate("list"); err != nil {
				return err
			}
			rec, err := loadLand(ctx, exportLandID)
			if err != nil {
				return err
			}
			recs = []land.LandRecord{*rec}
		} else {
			if err := cfg.Validate("export"); err != nil {
				return err
			}
			doc, err := readInput(exportInput)
			if err != nil {
				return err
			}
			if recs, _, err = doc.records(); err != nil {
				return err
			}
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		for _, rec := range recs {
			if err := runExport(cmd.OutOrStdout(), land.BuildView(rec), exportFormat, dir, exportOutput); err != nil {
				return err
			}
		}
		return nil
	},
}

func loadLand(ctx context.Context, id int64) (*land.LandRecord, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	rec, err := st.GetLand(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, eris.Errorf("land %d not found", id)
	}
	return rec, nil
}

// exportStem names export files after the land plus a short unique suffix so
// repeated exports never overwrite each other.
func exportStem(landID int64) string {
	return fmt.Sprintf("land_%d_%s", landID, uuid.NewString()[:8])
}

// runExport writes v in the given format. File formats land in dir and their
// path is printed on out; EWKB is printed directly.
func runExport(out io.Writer, v land.View, format, dir, outFormat string) error {
	switch format {
	case formatShapefile:
		path := filepath.Join(dir, exportStem(v.LandID)+".shp")
		if _, err := export.Shapefile(path, v); err != nil {
			return err
		}
		fmt.Fprintln(out, path)
	case formatGeoJSON:
		data, err := export.GeoJSON(v)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create dir %s", dir)
		}
		path := filepath.Join(dir, exportStem(v.LandID)+".geojson")
		if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
			return eris.Wrapf(err, "export: write %s", path)
		}
		zap.L().Info("wrote geojson", zap.String("path", path), zap.Int64("land_id", v.LandID))
		fmt.Fprintln(out, path)
	case formatEWKB:
		hexes, err := export.EWKBHex(v)
		if err != nil {
			return err
		}
		return writeOutput(out, outFormat, map[string]any{
			"land_id":  v.LandID,
			"polygons": hexes,
		})
	default:
		return eris.Errorf("unsupported export format %q", format)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "-", "land record file (JSON or YAML), - for stdin")
	exportCmd.Flags().Int64Var(&exportLandID, "land-id", 0, "export a stored land instead of --input")
	exportCmd.Flags().StringVar(&exportFormat, "format", formatGeoJSON, "export format: shp, geojson or ewkb")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default export.dir)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", outputJSON, "output format for ewkb: json or yaml")
	rootCmd.AddCommand(exportCmd)
}
