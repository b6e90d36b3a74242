package utils

import (
	"context"
	"time"
)

// RetryPolicy parameterizes Retry.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff returns the delay before the given attempt (2 for the first retry).
	Backoff func(attempt int) time.Duration
	// Classify reports whether err is worth another attempt, and an optional
	// delay that overrides Backoff for the next attempt when positive.
	Classify func(err error) (retry bool, after time.Duration)
	// Sleep waits for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialBackoff doubles base for every retry: base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 2 {
			return 0
		}
		return base << (attempt - 2)
	}
}

// RetryAll retries every error.
func RetryAll(error) (bool, time.Duration) {
	return true, 0
}

// Retry calls op until it succeeds, the policy declines another attempt,
// the attempts run out, or ctx is done. It returns the number of attempts made
// and the last error.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	classify := policy.Classify
	if classify == nil {
		classify = RetryAll
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt == maxAttempts {
			break
		}

		retry, after := classify(err)
		if !retry {
			break
		}

		delay := after
		if delay <= 0 && policy.Backoff != nil {
			delay = policy.Backoff(attempt + 1)
		}
		if delay > 0 {
			if serr := sleep(ctx, delay); serr != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
	}
	return attempt, err
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
