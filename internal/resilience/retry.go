package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls exponential backoff for a remote call.
type RetryConfig struct {
	// MaxAttempts counts the first try, so 1 disables retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. It doubles per
	// attempt up to MaxBackoff, with up to 25% jitter added on top.
	// Defaults: 500ms initial, 30s cap.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// ShouldRetry filters errors. Nil means IsTransient.
	ShouldRetry func(err error) bool
}

func (cfg RetryConfig) normalized() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}
	return cfg
}

// DoVal runs fn until it succeeds, the error is not retryable, the context
// ends, or MaxAttempts is exhausted. The last error is returned.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()

	var zero T
	var lastErr error
	backoff := cfg.InitialBackoff
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !cfg.ShouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}

		zap.L().Debug("resilience: retrying after failure",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(jitter(backoff)):
		}
		backoff = min(backoff*2, cfg.MaxBackoff)
	}
	return zero, lastErr
}

// Do is DoVal for calls without a return value.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// jitter spreads delays by up to 25% so parallel workers do not sync up.
func jitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int64N(int64(d)/4+1))
}
