package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls Retry.
type Policy struct {
	// Attempts counts the first call. Default 3.
	Attempts int
	// BaseDelay is the wait before the first retry. Default 500ms.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff. Default 10s.
	MaxDelay time.Duration
	// Jitter is the ± fraction of random spread applied to each delay.
	Jitter float64
	// Retryable overrides IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy returns the policy used for geocoder calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  10 * time.Second,
		Jitter:    0.2,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay returns the wait before retry number n (0-based).
func (p Policy) delay(n int) time.Duration {
	d := math.Min(float64(p.BaseDelay)*math.Pow(2, float64(n)), float64(p.MaxDelay))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends. The last error is returned unchanged.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts {
			return zero, err
		}

		wait := p.delay(attempt - 1)
		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
