package explorer

import (
	"context"
	"time"
)

// ShouldRetry decides whether a failed attempt is worth repeating.
// attempt is zero-based; maxRetries is the number of additional attempts
// allowed after the first, so a query costs at most maxRetries+1 requests.
// Only transient failures are retried.
func ShouldRetry(err error, attempt, maxRetries int) bool {
	if err == nil {
		return false
	}
	if attempt >= maxRetries {
		return false
	}
	return IsTransient(err)
}

// Sleeper waits between retry attempts. Injectable so retry behaviour can
// be tested without real delays.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production Sleeper: a fixed delay cancellable by ctx.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
