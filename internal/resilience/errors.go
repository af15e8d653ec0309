// Package resilience guards calls to unreliable dependencies: transient
// error classification, retry with exponential backoff, a circuit
// breaker, and a rolling token-budget window.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// TransientError marks an error as safe to retry (rate limit, 5xx,
// network timeout, connection reset).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable, recording the HTTP status when known.
func Transient(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// PermanentError marks an error that must never be retried (bad request,
// auth failure).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable.
func Permanent(err error) *PermanentError {
	return &PermanentError{Err: err}
}

// IsTransient reports whether err should be retried. Explicit markers
// win; otherwise network-level timeouts and resets count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *PermanentError
	if errors.As(err, &pe) {
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
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped HTTP client errors lose their type; fall back to message
	// heuristics the same way upstream clients surface them.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"no such host",
		"temporary failure in name resolution",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status is a transient
// server-side condition.
func RetryableStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyStatus wraps err as transient or permanent based on the HTTP
// status code.
func ClassifyStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	if RetryableStatus(status) {
		return Transient(err, status)
	}
	return Permanent(err)
}

// ErrBudgetExceeded is returned when the token budget window is spent.
var ErrBudgetExceeded = eris.New("resilience: token budget exceeded")
