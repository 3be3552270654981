package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a Breaker.
type BreakerState int

// Breaker states.
const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned without calling through while a breaker is open.
var ErrBreakerOpen = eris.New("resilience: circuit breaker is open")

// BreakerOptions configures a Breaker.
type BreakerOptions struct {
	// Threshold is the number of consecutive tripping failures that opens the
	// breaker. Default 5.
	Threshold int
	// Cooldown is how long the breaker stays open before one probe call is
	// let through. Default 30s.
	Cooldown time.Duration
	// Trips overrides which errors count as failures. Default IsTransient, so
	// a "no result" answer never opens the breaker.
	Trips func(error) bool
	// OnStateChange observes transitions; it runs with the breaker locked.
	OnStateChange func(name string, from, to BreakerState)
}

// Breaker is a consecutive-failure circuit breaker guarding one service.
type Breaker struct {
	name string
	opts BreakerOptions
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, opts BreakerOptions) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Trips == nil {
		opts.Trips = IsTransient
	}
	return &Breaker{name: name, opts: opts, now: time.Now}
}

// Name returns the guarded service name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Call runs fn through the breaker.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.opts.Cooldown {
			return eris.Wrapf(ErrBreakerOpen, "resilience: %s", b.name)
		}
		b.transition(BreakerHalfOpen)
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return eris.Wrapf(ErrBreakerOpen, "resilience: %s probe in flight", b.name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil || !b.opts.Trips(err) {
		b.failures = 0
		if b.state != BreakerClosed {
			b.transition(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.opts.Threshold {
		b.openedAt = b.now()
		if b.state != BreakerOpen {
			b.transition(BreakerOpen)
		}
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if b.opts.OnStateChange != nil {
		b.opts.OnStateChange(b.name, from, to)
	}
}
