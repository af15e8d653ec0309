package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total attempt count including the first call.
	// Default: 3.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry. Default: 2s.
	BaseBackoff time.Duration
	// MaxBackoff caps the computed delay. Default: 30s.
	MaxBackoff time.Duration
	// JitterFraction adds ±fraction random jitter. Default: 0.2.
	JitterFraction float64
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry policy used for model calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseBackoff:    2 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.2,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// Retry executes fn, retrying transient failures with exponential
// backoff. Permanent errors and context cancellation stop immediately.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !IsTransient(lastErr) {
			return zero, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(Backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// Backoff computes the capped, jittered exponential delay for attempt
// (0-based).
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	cfg = cfg.withDefaults()

	delay := float64(cfg.BaseBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		jitter := (rand.Float64()*2 - 1) * delay * cfg.JitterFraction
		delay += jitter
	}
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback logging each attempt.
func RetryLogger(service string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying call",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
