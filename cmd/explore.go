package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/session"
)

const exploreHelp = `commands:
  click <lat> <lng>        rank from a map location
  search <address>         geocode an address and rank from it
  high on|off              high-score-only toggle (score >= 4)
  min <score>              score slider
  all on|off               check or clear every category
  cat <category> on|off    check or clear one category
  refresh                  redraw with the current inputs
  state                    print the filter state
  help                     this text
  quit                     leave
`

// textPresenter prints session output as plain text.
type textPresenter struct {
	w io.Writer
}

func (p textPresenter) Render(u session.Update) {
	fmt.Fprintf(p.w, "[%d %s] %d points at threshold %.2f\n",
		u.Seq, u.Reason, len(u.Points), u.State.EffectiveThreshold())
	if u.Ranking != nil {
		formatRanking(p.w, u.Ranking)
	}
}

func (p textPresenter) Warn(w session.Warning) {
	fmt.Fprintf(p.w, "! %s\n", w.Message)
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactive session: click, search and adjust filters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query", envOptions{geocoder: true})
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		sess := session.New(env.Store, textPresenter{w: out},
			session.WithEngine(env.Engine),
			session.WithGeocoder(env.Geocoder),
			session.WithBounds(env.Bounds),
		)

		env.Store.LoadAsync(ctx, datasetLoader(cfg.Dataset))
		go func() {
			if err := env.Store.Wait(ctx); err != nil {
				zap.L().Error("explore: dataset unavailable", zap.Error(err))
				return
			}
			_ = sess.Refresh()
		}()

		fmt.Fprint(out, exploreHelp)
		return runExplore(ctx, os.Stdin, out, sess)
	},
}

// runExplore reads commands from in until EOF, quit or ctx ends.
func runExplore(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session) error {
	sc := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := dispatch(ctx, out, sess, fields); err != nil && !recoverable(err) {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
}

func dispatch(ctx context.Context, out io.Writer, sess *session.Session, fields []string) error {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "click":
		if len(args) != 2 {
			return usageErr("click <lat> <lng>")
		}
		lat, err1 := strconv.ParseFloat(args[0], 64)
		lng, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			return usageErr("click <lat> <lng>")
		}
		return sess.Click(geo.Point{Lat: lat, Lng: lng})
	case "search":
		if len(args) == 0 {
			return usageErr("search <address>")
		}
		res, err := sess.Search(ctx, strings.Join(args, " "))
		if err == nil && res != nil {
			fmt.Fprintf(out, "found %s via %s\n", res.Position, res.Source)
		}
		return err
	case "high":
		on, err := onOff(args)
		if err != nil {
			return err
		}
		return sess.SetHighScoreOnly(on)
	case "min":
		if len(args) != 1 {
			return usageErr("min <score>")
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return usageErr("min <score>")
		}
		return sess.SetMinScore(v)
	case "all":
		on, err := onOff(args)
		if err != nil {
			return err
		}
		return sess.ToggleAll(on)
	case "cat":
		if len(args) != 2 {
			return usageErr("cat <category> on|off")
		}
		c, err := model.ParseCategory(args[0])
		if err != nil {
			return err
		}
		on, err := onOff(args[1:])
		if err != nil {
			return err
		}
		return sess.ToggleCategory(c, on)
	case "refresh":
		return sess.Refresh()
	case "state":
		st := sess.State()
		fmt.Fprintf(out, "high-score-only=%t min=%.2f threshold=%.2f categories=%s\n",
			st.HighScoreOnly, st.MinScore, st.EffectiveThreshold(), st.Selection)
		return nil
	case "help":
		fmt.Fprint(out, exploreHelp)
		return nil
	default:
		return eris.Errorf("unknown command %q (try help)", cmd)
	}
}

func onOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, usageErr("on|off")
	}
	switch args[0] {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, usageErr("on|off")
	}
}

func usageErr(usage string) error {
	return eris.Errorf("usage: %s", usage)
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
