package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/gridfinder/internal/ranking"
)

type pointsOutput struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Count     int     `json:"count" yaml:"count"`
	Points    any     `json:"points" yaml:"points"`
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List the grid centers that pass the score filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		points, err := ranking.Filtered(env.Store, st)
		if err != nil {
			return userError(err)
		}

		out := pointsOutput{Threshold: st.EffectiveThreshold(), Count: len(points), Points: points}
		format, _ := cmd.Flags().GetString("format")
		return writeOutput(os.Stdout, format, out, func(w io.Writer) {
			formatPoints(w, points, out.Threshold)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the loaded dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := loadDataset(ctx, env)
		if err != nil {
			return err
		}
		for reason, n := range res.Dropped {
			cmd.PrintErrf("dropped %d features: %s\n", n, reason)
		}

		st := env.Store.Stats()
		format, _ := cmd.Flags().GetString("format")
		return writeOutput(os.Stdout, format, st, func(w io.Writer) { formatStats(w, st) })
	},
}

func init() {
	addFilterFlags(pointsCmd)
	addFormatFlag(pointsCmd)
	addFormatFlag(statsCmd)
	rootCmd.AddCommand(pointsCmd, statsCmd)
}
