package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(slept *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	var slept []time.Duration
	calls := 0
	resp, err := Retry(context.Background(), DefaultRetryPolicy(), noSleep(&slept), nil, func() (Response, error) {
		calls++
		return Response{Message: Message{Role: RoleAssistant, Content: "ok"}}, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if resp.Text() != "ok" || calls != 1 || len(slept) != 0 {
		t.Fatalf("calls=%d slept=%v text=%q", calls, slept, resp.Text())
	}
}

func TestRetry_RetriesRetryableThenSucceeds(t *testing.T) {
	var slept []time.Duration
	calls := 0
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	resp, err := Retry(context.Background(), policy, noSleep(&slept), nil, func() (Response, error) {
		calls++
		if calls < 3 {
			return Response{}, ErrorFromHTTPStatus("p", 503, "overloaded", nil)
		}
		return Response{Message: Message{Role: RoleAssistant, Content: "done"}}, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 || resp.Text() != "done" {
		t.Fatalf("calls=%d text=%q", calls, resp.Text())
	}
	// Exponential: 100ms then 200ms.
	if len(slept) != 2 || slept[0] != 100*time.Millisecond || slept[1] != 200*time.Millisecond {
		t.Fatalf("slept: %v", slept)
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	var slept []time.Duration
	calls := 0
	_, err := Retry(context.Background(), DefaultRetryPolicy(), noSleep(&slept), nil, func() (Response, error) {
		calls++
		return Response{}, ErrorFromHTTPStatus("p", 401, "bad key", nil)
	})
	if err == nil || calls != 1 || len(slept) != 0 {
		t.Fatalf("err=%v calls=%d slept=%v", err, calls, slept)
	}
}

func TestRetry_BudgetExhausted(t *testing.T) {
	var slept []time.Duration
	calls := 0
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	_, err := Retry(context.Background(), policy, noSleep(&slept), nil, func() (Response, error) {
		calls++
		return Response{}, ErrorFromHTTPStatus("p", 500, "boom", nil)
	})
	if err == nil {
		t.Fatalf("got nil error")
	}
	if calls != 3 {
		t.Fatalf("calls: got %d want 3", calls)
	}
}

func TestRetry_RetryAfterOverridesDelay(t *testing.T) {
	var slept []time.Duration
	ra := 5 * time.Second
	calls := 0
	policy := RetryPolicy{MaxRetries: 1, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Minute}
	_, _ = Retry(context.Background(), policy, noSleep(&slept), nil, func() (Response, error) {
		calls++
		if calls == 1 {
			return Response{}, ErrorFromHTTPStatus("p", 429, "", &ra)
		}
		return Response{}, nil
	})
	if len(slept) != 1 || slept[0] != ra {
		t.Fatalf("slept: %v", slept)
	}
}

func TestRetry_CancelledSleepReturnsLastError(t *testing.T) {
	cancelled := func(ctx context.Context, d time.Duration) error { return context.Canceled }
	serverErr := ErrorFromHTTPStatus("p", 500, "boom", nil)
	_, err := Retry(context.Background(), DefaultRetryPolicy(), cancelled, nil, func() (Response, error) {
		return Response{}, serverErr
	})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("got %v want the server error", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var slept []time.Duration
	var attempts []int
	calls := 0
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	_, _ = Retry(context.Background(), policy, noSleep(&slept), func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}, func() (Response, error) {
		calls++
		if calls < 3 {
			return Response{}, ErrorFromHTTPStatus("p", 503, "", nil)
		}
		return Response{}, nil
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("attempts: %v", attempts)
	}
}
