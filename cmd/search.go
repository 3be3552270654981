package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

type searchOutput struct {
	Query    string          `json:"query" yaml:"query"`
	Location *geocode.Result `json:"location" yaml:"location"`
	Ranking  *ranking.Result `json:"ranking" yaml:"ranking"`
}

var searchCmd = &cobra.Command{
	Use:   "search <address>",
	Short: "Geocode an address and rank the nearest grid centers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		env, err := initEnv(ctx, "query", envOptions{geocoder: true})
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

		loc, err := env.Geocoder.Lookup(ctx, query)
		if err != nil {
			return userError(err)
		}
		logOutsideArea(loc.Position)

		res, err := env.Engine.Rank(env.Store, st, loc.Position)
		if err != nil {
			return userError(err)
		}

		out := searchOutput{Query: query, Location: loc, Ranking: res}
		format, _ := cmd.Flags().GetString("format")
		return writeOutput(os.Stdout, format, out, func(w io.Writer) {
			formatLocation(w, query, loc)
			fmt.Fprintln(w)
			formatRanking(w, res)
		})
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <file>",
	Short: "Geocode one address per line and print coordinates",
	Long:  "Resolves every non-empty line of file (or stdin for \"-\") through the geocoder cascade and its cache. Lookups run concurrently up to geocode.batch_concurrency.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrap(err, "open address file")
			}
			defer f.Close() //nolint:errcheck
			in = f
		}
		queries, err := readLines(in)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "cache", envOptions{geocoder: true})
		if err != nil {
			return err
		}
		defer env.Close()

		results := env.Geocoder.LookupBatch(ctx, queries)
		formatBatch(os.Stdout, results)
		return ctx.Err()
	},
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, eris.Wrap(sc.Err(), "read addresses")
}

func formatBatch(w io.Writer, results []geocode.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tLAT\tLNG\tSOURCE\tSTATUS")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t\t\t\t%s\n", r.Query, model.UserMessage(r.Err))
			continue
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%s\tok\n", r.Query, r.Result.Position.Lat, r.Result.Position.Lng, r.Result.Source)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	addFilterFlags(searchCmd)
	addFormatFlag(searchCmd)
	rootCmd.AddCommand(searchCmd, geocodeCmd)
}
