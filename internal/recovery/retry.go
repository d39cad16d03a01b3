package recovery

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"time"
)

// RetryPolicy is the pure backoff/eligibility calculator used to throttle
// diagnostic round-trips. It never decides whether a diagnostic round-trip
// happens at all; that is the breaker's job.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter adds a deterministic uniform offset in [0, 10% of delay],
	// seeded by the caller, to avoid synchronized retry storms while keeping
	// runs reproducible.
	Jitter bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: 200 * time.Millisecond,
		MaxDelay:  60 * time.Second,
		Jitter:    false,
	}
}

// ShouldRetry reports whether a blind retry of the identical action is
// worthwhile: false once attempt >= maxAttempts, false for permanent
// categories.
func (p RetryPolicy) ShouldRetry(attempt, maxAttempts int, cat Category) bool {
	if attempt >= maxAttempts {
		return false
	}
	return !cat.Permanent()
}

// Delay returns baseDelay * 2^(attempt-1), capped by MaxDelay. Attempts are
// 1-indexed; values below 1 are clamped.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.DelaySeeded(attempt, "")
}

// DelaySeeded is Delay with an explicit jitter seed. With the same seed the
// result is stable across runs.
func (p RetryPolicy) DelaySeeded(attempt int, seed string) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	ms := float64(p.BaseDelay.Milliseconds()) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 {
		ms = math.Min(ms, float64(p.MaxDelay.Milliseconds()))
	}
	if p.Jitter {
		ms += ms * 0.10 * jitterUnit(seed)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// jitterUnit maps a seed to [0, 1] deterministically.
func jitterUnit(seed string) float64 {
	sum := sha256.Sum256([]byte(seed))
	u := binary.BigEndian.Uint64(sum[:8])
	return float64(u) / float64(^uint64(0))
}
