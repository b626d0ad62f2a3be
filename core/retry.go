package core

import (
	"context"
	"time"
)

// RetryPolicy bounds retries around a gateway call with exponential backoff.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the delay before the second try; it doubles each retry.
	BaseDelay time.Duration
}

// DefaultRetry matches the ingestion contract: 3 attempts, 200ms base delay.
var DefaultRetry = RetryPolicy{Attempts: 3, BaseDelay: 200 * time.Millisecond}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is done.
// The last error from fn is returned unchanged; a cancelled context wins.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
