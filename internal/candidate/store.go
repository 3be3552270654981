package candidate

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridfinder/internal/model"
)

// State is the store's readiness state.
type State int32

// Readiness states. A store moves Unloaded → Loading → Ready, or to Failed
// when the dataset could not be fetched or parsed.
const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadResult summarizes one load.
type LoadResult struct {
	Read     int            `json:"read"`
	Loaded   int            `json:"loaded"`
	Dropped  map[string]int `json:"dropped"`
	Duration time.Duration  `json:"duration"`
}

// snapshot is published atomically so readers never observe a partial load.
type snapshot struct {
	state  State
	points []model.ScoredPoint
	err    error
}

// Store holds the committed dataset. Points are appended once per load and
// never mutated afterwards.
type Store struct {
	snap     atomic.Pointer[snapshot]
	done     chan struct{}
	doneOnce sync.Once
	// loadMu serializes writers; readers only touch snap.
	loadMu sync.Mutex
}

// NewStore returns an empty, unloaded store.
func NewStore() *Store {
	s := &Store{done: make(chan struct{})}
	s.snap.Store(&snapshot{state: StateUnloaded})
	return s
}

// Load admits features and commits them. It must be called once per store:
// a second call appends the new points after the existing ones. Points become
// visible only when Load returns.
func (s *Store) Load(features []Feature) LoadResult {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	prev := s.snap.Load()
	if prev.state != StateReady {
		s.snap.Store(&snapshot{state: StateLoading})
	}

	res := LoadResult{Read: len(features), Dropped: make(map[string]int)}
	points := slices.Clone(prev.points)
	seen := make(map[int]bool, len(points)+len(features))
	for _, p := range points {
		seen[p.ID] = true
	}

	for i, f := range features {
		p, reason := admit(i, f)
		if reason == "" && seen[p.ID] {
			reason = DropDuplicateID
		}
		if reason != "" {
			res.Dropped[reason]++
			zap.L().Debug("candidate: dropped feature",
				zap.Int("index", i),
				zap.String("reason", reason),
			)
			continue
		}
		seen[p.ID] = true
		points = append(points, p)
	}

	res.Loaded = len(points) - len(prev.points)
	res.Duration = time.Since(start)
	s.snap.Store(&snapshot{state: StateReady, points: slices.Clip(points)})
	s.markDone()

	zap.L().Info("candidate: dataset loaded",
		zap.Int("read", res.Read),
		zap.Int("loaded", res.Loaded),
		zap.Any("dropped", res.Dropped),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// LoadFrom runs loader and commits its features. A loader failure moves the
// store to StateFailed and returns an error matching model.ErrLookupFailed.
func (s *Store) LoadFrom(ctx context.Context, loader LoaderFunc) (LoadResult, error) {
	s.beginLoading()

	features, err := loader(ctx)
	if err != nil {
		wrapped := eris.Wrapf(model.ErrLookupFailed, "candidate: load dataset: %v", err)
		s.fail(wrapped)
		zap.L().Error("candidate: dataset load failed", zap.Error(err))
		return LoadResult{}, wrapped
	}

	return s.Load(features), nil
}

// LoadAsync starts LoadFrom in a goroutine. The store reports StateLoading
// before LoadAsync returns. Use Wait to block for the outcome.
func (s *Store) LoadAsync(ctx context.Context, loader LoaderFunc) {
	s.beginLoading()
	go func() {
		_, _ = s.LoadFrom(ctx, loader)
	}()
}

// Wait blocks until the store is Ready or Failed, or ctx ends.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "candidate: wait for dataset")
	}
}

// State returns the current readiness state.
func (s *Store) State() State {
	return s.snap.Load().state
}

// IsReady reports whether a load has completed, even with zero points.
func (s *Store) IsReady() bool {
	return s.State() == StateReady
}

// Err returns the load failure, if any.
func (s *Store) Err() error {
	return s.snap.Load().err
}

// All returns the committed points in insertion order. The slice is shared
// and must not be modified; before the store is ready it is empty.
func (s *Store) All() []model.ScoredPoint {
	return s.snap.Load().points
}

// Points returns All, or model.ErrNotReady when the store is not ready.
func (s *Store) Points() ([]model.ScoredPoint, error) {
	snap := s.snap.Load()
	if snap.state != StateReady {
		return nil, eris.Wrapf(model.ErrNotReady, "candidate: store is %s", snap.state)
	}
	return snap.points, nil
}

// Len returns the number of committed points.
func (s *Store) Len() int {
	return len(s.All())
}

func (s *Store) beginLoading() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.snap.Load().state == StateUnloaded {
		s.snap.Store(&snapshot{state: StateLoading})
	}
}

func (s *Store) fail(err error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	prev := s.snap.Load()
	if prev.state == StateReady {
		return
	}
	s.snap.Store(&snapshot{state: StateFailed, err: err})
	s.markDone()
}

func (s *Store) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
