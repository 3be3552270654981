package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
)

func errInvalidPoint(p geo.Point) error {
	return eris.Errorf("invalid location %s: both --lat and --lng are required and must be in range", p)
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the nearest grid centers to a location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, _, err := pointFromFlags(cmd)
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

		logOutsideArea(q)
		res, err := env.Engine.Rank(env.Store, st, q)
		if err != nil {
			return userError(err)
		}

		format, _ := cmd.Flags().GetString("format")
		return writeOutput(os.Stdout, format, res, func(w io.Writer) { formatRanking(w, res) })
	},
}

// recoverable reports whether err is one of the user-facing failure states.
func recoverable(err error) bool {
	return eris.Is(err, model.ErrNotReady) || eris.Is(err, model.ErrNoCandidates) ||
		eris.Is(err, model.ErrLookupEmpty) || eris.Is(err, model.ErrLookupFailed)
}

// userError prefixes recoverable errors with their user-facing message.
func userError(err error) error {
	if recoverable(err) {
		return eris.Wrap(err, model.UserMessage(err))
	}
	return err
}

func logOutsideArea(p geo.Point) {
	if area := geo.ClassifyArea(p); area != geo.AreaInside {
		zap.L().Info("query point outside service area",
			zap.String("point", p.String()),
			zap.String("area", area),
		)
	}
}

func init() {
	addPointFlags(rankCmd, true)
	addFilterFlags(rankCmd)
	addFormatFlag(rankCmd)
	rootCmd.AddCommand(rankCmd)
}

