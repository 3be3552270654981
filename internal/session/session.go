// Package session drives one user's interaction with the dataset: filter
// controls, map clicks and address searches, each followed by exactly one
// recomputation handed to a Presenter.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/filter"
	"github.com/sells-group/gridfinder/internal/geo"
	"github.com/sells-group/gridfinder/internal/model"
	"github.com/sells-group/gridfinder/internal/ranking"
	"github.com/sells-group/gridfinder/pkg/geocode"
)

// ErrSuperseded is returned by Search when a newer click or search finished
// first. The stale result is discarded without touching the presenter.
var ErrSuperseded = eris.New("session: superseded by a newer query")

// Reasons attached to updates and warnings.
const (
	ReasonClick   = "click"
	ReasonSearch  = "search"
	ReasonFilter  = "filter"
	ReasonRefresh = "refresh"
)

// Update is the outcome of one recomputation.
type Update struct {
	Seq    uint64       `json:"seq" yaml:"seq"`
	Reason string       `json:"reason" yaml:"reason"`
	State  filter.State `json:"state" yaml:"state"`
	// Points is the filtered candidate set in dataset order.
	Points []model.ScoredPoint `json:"points" yaml:"points"`
	// Query and Ranking are nil until a location is chosen.
	Query   *geo.Point      `json:"query,omitempty" yaml:"query,omitempty"`
	Ranking *ranking.Result `json:"ranking,omitempty" yaml:"ranking,omitempty"`
}

// Warning is a recoverable failure the user should see.
type Warning struct {
	Reason  string
	Message string
	Err     error
}

// Presenter renders session output. Render is called once per successful
// recomputation. When a filter change or refresh leaves no candidates while a
// query point is set, Render still receives the (empty) filtered points with
// a nil Ranking, followed by Warn, matching the redraw shown without a query
// point. Any other failure calls only Warn, so the presenter keeps whatever
// it showed before. Both run with the session locked and must not call back
// into it.
type Presenter interface {
	Render(Update)
	Warn(Warning)
}

// Source is the dataset a session reads. candidate.Store implements it.
type Source interface {
	ranking.Source
}

// Session holds the mutable interaction state. Methods are safe for
// concurrent use; a slow Search never blocks other calls.
type Session struct {
	id        string
	src       Source
	engine    *ranking.Engine
	geocoder  geocode.Client
	presenter Presenter
	bounds    filter.Bounds

	mu    sync.Mutex
	state filter.State
	query *geo.Point
	seq   uint64
	// gen increments on every interaction that sets the query point.
	gen uint64
}

// Option configures a Session.
type Option func(*Session)

// WithEngine sets the ranking engine.
func WithEngine(e *ranking.Engine) Option {
	return func(s *Session) { s.engine = e }
}

// WithGeocoder enables Search.
func WithGeocoder(c geocode.Client) Option {
	return func(s *Session) { s.geocoder = c }
}

// WithBounds sets the slider range SetMinScore clamps to.
func WithBounds(b filter.Bounds) Option {
	return func(s *Session) { s.bounds = b }
}

// WithState sets the initial filter state.
func WithState(st filter.State) Option {
	return func(s *Session) { s.state = st }
}

// New creates a Session. Nothing is rendered until the first call.
func New(src Source, p Presenter, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		src:       src,
		engine:    ranking.New(),
		presenter: p,
		bounds:    filter.DefaultBounds(),
		state:     filter.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// State returns a copy of the filter state.
func (s *Session) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query returns the current query point, if any.
func (s *Session) Query() (geo.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query == nil {
		return geo.Point{}, false
	}
	return *s.query, true
}

// Click sets the query point and ranks from it.
func (s *Session) Click(p geo.Point) error {
	if !p.Valid() {
		return eris.Errorf("session: invalid location %s", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(ReasonClick); err != nil {
		return err
	}
	s.gen++
	s.setQueryLocked(p)
	return s.recomputeLocked(ReasonClick)
}

// Search geocodes text and, on a match, ranks from the result. A lookup that
// returns after a newer Click or Search is discarded with ErrSuperseded. A
// blank query is ignored: Search returns nil, nil and the presenter is not
// called.
func (s *Session) Search(ctx context.Context, text string) (*geocode.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if s.geocoder == nil {
		return nil, eris.Wrap(model.ErrLookupFailed, "session: no geocoder configured")
	}

	s.mu.Lock()
	if err := s.readyLocked(ReasonSearch); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	res, err := s.geocoder.Lookup(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		zap.L().Debug("session: discarding stale search",
			zap.String("session", s.id),
			zap.String("query", text),
		)
		return nil, ErrSuperseded
	}
	if err != nil {
		s.warnLocked(ReasonSearch, err)
		return nil, err
	}

	s.setQueryLocked(res.Position)
	return res, s.recomputeLocked(ReasonSearch)
}

// SetHighScoreOnly sets the high-score toggle.
func (s *Session) SetHighScoreOnly(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.HighScoreOnly = on
	return s.recomputeLocked(ReasonFilter)
}

// SetMinScore sets the slider value, clamped to the configured bounds.
func (s *Session) SetMinScore(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MinScore = s.bounds.Clamp(v)
	return s.recomputeLocked(ReasonFilter)
}

// ToggleAll sets every category checkbox to checked.
func (s *Session) ToggleAll(checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selection.ToggleAll(checked)
	return s.recomputeLocked(ReasonFilter)
}

// ToggleCategory sets one category checkbox.
func (s *Session) ToggleCategory(c model.Category, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.Selection.ToggleCategory(c, checked); err != nil {
		return err
	}
	return s.recomputeLocked(ReasonFilter)
}

// Refresh recomputes without changing any input, for example once the
// dataset becomes ready.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ReasonRefresh)
}

func (s *Session) setQueryLocked(p geo.Point) {
	q := p
	s.query = &q
	if area := geo.ClassifyArea(p); area != geo.AreaInside {
		zap.L().Info("session: query point outside service area",
			zap.String("session", s.id),
			zap.String("point", p.String()),
			zap.String("area", area),
		)
	}
}

// readyLocked rejects queries while the dataset is unavailable, before any
// session state changes.
func (s *Session) readyLocked(reason string) error {
	if _, err := s.src.Points(); err != nil {
		s.warnLocked(reason, err)
		return err
	}
	return nil
}

// recomputeLocked runs the single recomputation for the current inputs: the
// filtered redraw, plus the ranking when a query point exists.
func (s *Session) recomputeLocked(reason string) error {
	points, err := ranking.Filtered(s.src, s.state)
	if err != nil {
		s.warnLocked(reason, err)
		return err
	}

	u := Update{Reason: reason, State: s.state, Points: points}
	if s.query != nil {
		q := *s.query
		u.Query = &q
		res, err := s.engine.Rank(s.src, s.state, q)
		if err != nil {
			if redraws(reason) && eris.Is(err, model.ErrNoCandidates) {
				s.renderLocked(u)
			}
			s.warnLocked(reason, err)
			return err
		}
		u.Ranking = res
	}

	s.renderLocked(u)
	return nil
}

// redraws reports whether a failed ranking still renders the filtered points.
// Filter changes always redraw; a click or search that ranks nothing leaves
// the presenter untouched.
func redraws(reason string) bool {
	return reason == ReasonFilter || reason == ReasonRefresh
}

func (s *Session) renderLocked(u Update) {
	s.seq++
	u.Seq = s.seq
	s.presenter.Render(u)
}

func (s *Session) warnLocked(reason string, err error) {
	zap.L().Warn("session: recoverable error",
		zap.String("session", s.id),
		zap.String("reason", reason),
		zap.Error(err),
	)
	s.presenter.Warn(Warning{Reason: reason, Message: Message(err), Err: err})
}

// Message returns the user-facing text for an error.
func Message(err error) string {
	return model.UserMessage(err)
}
