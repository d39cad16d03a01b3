package llm

import (
	"context"
	"errors"
	"time"
)

// SleepFunc abstracts the retry sleep so tests can run without wall-clock
// delays. A nil SleepFunc uses a context-aware timer.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy controls transport-level retries of retryable unified errors
// (429, 5xx, timeouts). This is distinct from the recovery engine's
// diagnostic backoff: it only shields a single Complete call.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Retry invokes fn, retrying while the returned error is a retryable unified
// error and the policy's budget allows. A provider-supplied Retry-After
// overrides the computed delay. Context cancellation aborts immediately.
func Retry(ctx context.Context, policy RetryPolicy, sleep SleepFunc, onRetry func(attempt int, err error), fn func() (Response, error)) (Response, error) {
	if sleep == nil {
		sleep = defaultSleep
	}
	var last error
	for attempt := 1; ; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		var le Error
		if !errors.As(err, &le) || !le.Retryable() || attempt > policy.MaxRetries {
			return Response{}, err
		}

		d := policy.delay(attempt)
		if ra := le.RetryAfter(); ra != nil && *ra > d {
			d = *ra
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if serr := sleep(ctx, d); serr != nil {
			return Response{}, last
		}
	}
}
