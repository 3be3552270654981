// Package resilience wraps calls to external services with retry and a
// circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// TransientError marks a failure that is worth retrying.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. A nil err stays nil.
func Transient(op string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, StatusCode: statusCode, Err: err}
}

// IsTransient reports whether err is a TransientError, a network timeout or
// a refused/reset connection. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
