package orchestrate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"canopy/provider"
)

// retryAttempts is the total attempt budget for planner and accept-time
// generation calls. Only transient failures consume extra attempts.
const retryAttempts = 3

// retryDelay is the pause between sequential attempts.
const retryDelay = 500 * time.Millisecond

// withRetry runs fn up to retryAttempts times. A non-transient error or a
// context cancellation propagates immediately; the last transient error is
// returned verbatim once the budget is spent.
func withRetry[T any](ctx context.Context, log *zap.Logger, sleep func(time.Duration), fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !provider.IsTransient(err) {
			return zero, err
		}
		if attempt < retryAttempts {
			log.Debug("transient failure, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			sleep(retryDelay)
		}
	}
	return zero, lastErr
}
