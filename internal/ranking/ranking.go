// Package ranking filters candidates by the effective score threshold and
// orders the survivors by great-circle distance from a query point.
package ranking

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
)

// DefaultTopN is the number of ranked entries returned by Rank.
const DefaultTopN = 3

// Source yields the committed candidate points. candidate.Store implements it.
type Source interface {
	Points() ([]model.ScoredPoint, error)
}

// Result is the output of one Rank call.
type Result struct {
	Query     geo.Point `json:"query" yaml:"query"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	// Candidates is the number of points that passed the threshold.
	Candidates int     `json:"candidates" yaml:"candidates"`
	Nearest    Entry   `json:"nearest" yaml:"nearest"`
	TopN       []Entry `json:"top_n" yaml:"top_n"`
}

// Engine ranks candidates. The zero value is not usable; call New.
type Engine struct {
	topN int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopN sets how many entries Rank returns. Values below 1 are ignored.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.topN = n
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{topN: DefaultTopN}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TopN returns the configured result length.
func (e *Engine) TopN() int { return e.topN }

// Filtered returns, in dataset order, the points whose score passes the
// state's effective threshold. Category selection does not filter.
func Filtered(src Source, st filter.State) ([]model.ScoredPoint, error) {
	points, err := src.Points()
	if err != nil {
		return nil, err
	}
	return admitted(points, st.EffectiveThreshold()), nil
}

func admitted(points []model.ScoredPoint, threshold float64) []model.ScoredPoint {
	out := make([]model.ScoredPoint, 0, len(points))
	for _, p := range points {
		if p.Score >= threshold {
			out = append(out, p)
		}
	}
	return out
}

type measured struct {
	point model.ScoredPoint
	km    float64
}

// Rank filters the store by st, measures the haversine distance from q to
// every survivor and returns the nearest plus the first TopN by ascending
// distance. Ties keep dataset order. Every call is a fresh scan.
//
// Rank returns model.ErrNoCandidates when no point passes the threshold and
// passes through the store's model.ErrNotReady.
func (e *Engine) Rank(src Source, st filter.State, q geo.Point) (*Result, error) {
	threshold := st.EffectiveThreshold()
	points, err := src.Points()
	if err != nil {
		return nil, err
	}

	candidates := admitted(points, threshold)
	if len(candidates) == 0 {
		return nil, eris.Wrapf(model.ErrNoCandidates, "ranking: threshold %.2f", threshold)
	}

	ms := make([]measured, len(candidates))
	for i, p := range candidates {
		ms[i] = measured{point: p, km: geo.HaversineKM(q, p.Position)}
	}
	slices.SortStableFunc(ms, func(a, b measured) int {
		switch {
		case a.km < b.km:
			return -1
		case a.km > b.km:
			return 1
		default:
			return 0
		}
	})

	n := min(e.topN, len(ms))
	res := &Result{
		Query:      q,
		Threshold:  threshold,
		Candidates: len(candidates),
		TopN:       make([]Entry, n),
	}
	for i := range n {
		res.TopN[i] = newEntry(ms[i].point, ms[i].km, i+1, st.Selection)
	}
	res.Nearest = newEntry(ms[0].point, ms[0].km, 0, filter.AllSelected())
	return res, nil
}
