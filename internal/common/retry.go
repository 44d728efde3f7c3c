package common

import (
	"context"
	"time"

	"kgay-travel/shoreline/internal/logging"
)

// RetryPolicy is the shared backoff policy for transient I/O failures.
// Delay doubles per attempt and is capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used by the pipeline: 3 attempts,
// 500ms base delay, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempt budget is spent. Permanent errors short-circuit immediately.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		logging.Warn("Transient failure, backing off",
			"op", op,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return err
}
