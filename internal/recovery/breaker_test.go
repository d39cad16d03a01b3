package recovery

import (
	"testing"
	"time"
)

func newTestBreaker(t *testing.T, cfg BreakerConfig) (*CircuitBreaker, *time.Time) {
	t.Helper()
	br, err := NewCircuitBreaker(cfg)
	if err != nil {
		t.Fatalf("NewCircuitBreaker: %v", err)
	}
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	br.now = func() time.Time { return now }
	return br, &now
}

func TestBreaker_InvalidConfig(t *testing.T) {
	cases := []BreakerConfig{
		{FailureThreshold: 0, SuccessThreshold: 1, OpenTimeout: time.Second},
		{FailureThreshold: 1, SuccessThreshold: 0, OpenTimeout: time.Second},
		{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: -time.Second},
	}
	for i, cfg := range cases {
		if _, err := NewCircuitBreaker(cfg); err == nil {
			t.Fatalf("case %d: got nil error", i)
		}
	}
}

func TestBreaker_OpensAtExactThreshold(t *testing.T) {
	br, _ := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})

	br.RecordFailure()
	br.RecordFailure()
	if st := br.Status(); st.State != BreakerClosed {
		t.Fatalf("after 2 failures: got %s want %s", st.State, BreakerClosed)
	}
	br.RecordFailure()
	if st := br.Status(); st.State != BreakerOpen {
		t.Fatalf("after 3 failures: got %s want %s", st.State, BreakerOpen)
	}
	if br.Allow() {
		t.Fatalf("Allow while open before timeout: got true")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	br, _ := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})
	br.RecordFailure()
	br.RecordFailure()
	br.RecordSuccess()
	br.RecordFailure()
	br.RecordFailure()
	if st := br.Status(); st.State != BreakerClosed {
		t.Fatalf("got %s want %s", st.State, BreakerClosed)
	}
	if st := br.Status(); st.FailureCount != 2 {
		t.Fatalf("failure count: got %d want 2", st.FailureCount)
	}
}

func TestBreaker_HalfOpenAfterTimeoutThenCloses(t *testing.T) {
	br, now := newTestBreaker(t, BreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: time.Minute})
	br.RecordFailure()
	br.RecordFailure()
	if br.Allow() {
		t.Fatalf("Allow while open: got true")
	}

	*now = now.Add(61 * time.Second)
	if !br.Allow() {
		t.Fatalf("Allow after timeout: got false")
	}
	if st := br.Status(); st.State != BreakerHalfOpen {
		t.Fatalf("got %s want %s", st.State, BreakerHalfOpen)
	}

	br.RecordSuccess()
	if st := br.Status(); st.State != BreakerHalfOpen {
		t.Fatalf("after 1 success: got %s want %s", st.State, BreakerHalfOpen)
	}
	br.RecordSuccess()
	st := br.Status()
	if st.State != BreakerClosed || st.FailureCount != 0 || st.SuccessCount != 0 {
		t.Fatalf("after 2 successes: got %+v want closed with zero counters", st)
	}
}

func TestBreaker_HalfOpenFailureReopensAndRestartsClock(t *testing.T) {
	br, now := newTestBreaker(t, BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})
	br.RecordFailure()
	br.RecordFailure()

	*now = now.Add(2 * time.Minute)
	if !br.Allow() {
		t.Fatalf("Allow after timeout: got false")
	}
	br.RecordFailure()
	if st := br.Status(); st.State != BreakerOpen {
		t.Fatalf("got %s want %s", st.State, BreakerOpen)
	}

	// Clock restarted: still rejecting until a fresh timeout elapses.
	*now = now.Add(30 * time.Second)
	if br.Allow() {
		t.Fatalf("Allow 30s after reopen: got true")
	}
	*now = now.Add(31 * time.Second)
	if !br.Allow() {
		t.Fatalf("Allow after full fresh timeout: got false")
	}
}

func TestBreaker_StatusFields(t *testing.T) {
	br, _ := newTestBreaker(t, BreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, OpenTimeout: time.Minute})
	br.RecordFailure()
	st := br.Status()
	if st.State != BreakerClosed || st.FailureCount != 1 || st.SuccessCount != 0 || st.FailureThreshold != 5 {
		t.Fatalf("got %+v", st)
	}
}
