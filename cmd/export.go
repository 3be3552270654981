package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/export"
	"github.com/sells-group/gridfinder/internal/ranking"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export filtered or ranked grid centers to CSV or XLSX",
	Long:  "Without --lat/--lng every center passing the filter is exported in dataset order. With a location the ranked list is exported instead; --top sets its length.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		top, _ := cmd.Flags().GetInt("top")
		format = strings.ToLower(format)
		if format != "csv" && format != "xlsx" {
			return eris.Errorf("unknown export format %q (want csv or xlsx)", format)
		}
		if format == "xlsx" && out == "" {
			return eris.New("--out is required for xlsx")
		}

		q, ranked, err := pointFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "query", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := filterStateFromFlags(cmd, env.Bounds)
		if err != nil {
			return err
		}
		if _, err := loadDataset(ctx, env); err != nil {
			return err
		}

		var rows []export.Row
		if ranked {
			engine := env.Engine
			if top > 0 {
				engine = ranking.New(ranking.WithTopN(top))
			}
			res, err := engine.Rank(env.Store, st, q)
			if err != nil {
				return userError(err)
			}
			rows = export.EntryRows(res.TopN)
		} else {
			points, err := ranking.Filtered(env.Store, st)
			if err != nil {
				return userError(err)
			}
			rows = export.PointRows(points)
		}

		if format == "xlsx" {
			err = export.WriteXLSX(out, rows)
		} else {
			err = writeCSVTo(out, rows)
		}
		if err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("format", format),
			zap.String("out", out),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

// writeCSVTo writes to path, or stdout when path is empty or "-".
func writeCSVTo(path string, rows []export.Row) error {
	if path == "" || path == "-" {
		return export.WriteCSV(os.Stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create export file")
	}
	if err := export.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "close export file")
}

func init() {
	exportCmd.Flags().String("format", "csv", "export format: csv or xlsx")
	exportCmd.Flags().String("out", "", "output file (csv defaults to stdout)")
	exportCmd.Flags().Int("top", 0, "ranked rows to export (default filter.top_n)")
	addPointFlags(exportCmd, false)
	addFilterFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
