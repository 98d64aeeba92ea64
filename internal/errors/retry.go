package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"bintly/internal/logging"
)

// RetryConfig configures retry behavior for transport calls.
type RetryConfig struct {
	MaxAttempts  int           // retry attempts after the first call
	BaseDelay    time.Duration // base delay for exponential backoff
	MaxDelay     time.Duration // cap on the backoff delay
	JitterFactor float64       // randomization factor (0.25 = ±25%)
}

// DefaultRetryConfig returns the defaults used for Moltbook calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// Retry executes fn with exponential backoff, retrying only transient
// failures. Fatal taxonomy errors are returned immediately.
func Retry(ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) error) error {
	logger = logging.OrNop(logger)

	var lastErr error
	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("retry succeeded on attempt %d", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			logger.Debug("error is not transient, stopping retries: %v", err)
			return err
		}
		if attempt == config.MaxAttempts {
			logger.Warn("max retries (%d) exhausted", config.MaxAttempts+1)
			break
		}

		delay := backoffDelay(attempt, config)
		logger.Debug("attempt %d failed (%v), waiting %v", attempt+1, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// RetryWithResult is Retry for functions returning a value.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Retry(ctx, config, logger, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}

func backoffDelay(attempt int, config RetryConfig) time.Duration {
	base := config.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := float64(base) * math.Pow(2, float64(attempt))
	if config.JitterFactor > 0 {
		jitter := delay * config.JitterFactor * (2*rand.Float64() - 1)
		delay += jitter
	}
	maxDelay := config.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
