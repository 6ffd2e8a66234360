package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
}

// Do executes fn with exponential back-off retry logic. It gives up early
// when ctx is done, returning the context error.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < attempts {
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
			if err := Sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
