package recovery

import (
	"fmt"
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig holds the thresholds for one circuit breaker. Invalid
// thresholds are a construction-time error, never a recovery-time one.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

func (c BreakerConfig) validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("breaker failure threshold must be >= 1, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold < 1 {
		return fmt.Errorf("breaker success threshold must be >= 1, got %d", c.SuccessThreshold)
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("breaker open timeout must be >= 0, got %v", c.OpenTimeout)
	}
	return nil
}

// CircuitBreaker guards the diagnostic round-trip for one operation identity.
// Each breaker has its own mutex; breakers for different keys never serialize
// against each other.
type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time

	now func() time.Time
}

func NewCircuitBreaker(cfg BreakerConfig) (*CircuitBreaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &CircuitBreaker{cfg: cfg, state: BreakerClosed, now: time.Now}, nil
}

// Allow reports whether a recovery round-trip may proceed. While OPEN it
// rejects until the timeout elapses; the first check after that moves the
// breaker to HALF_OPEN and admits the probe.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return false
		}
		b.state = BreakerHalfOpen
		b.failures = 0
		b.successes = 0
		return true
	default:
		return true
	}
}

// RecordSuccess notes a successful round-trip. In CLOSED it clears the
// consecutive-failure count; in HALF_OPEN it counts toward reclosing.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure notes a failed round-trip. Reaching the failure threshold in
// CLOSED opens the breaker; any failure in HALF_OPEN reopens it and restarts
// the timeout clock.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	case BreakerHalfOpen:
		b.open()
	}
}

func (b *CircuitBreaker) open() {
	b.state = BreakerOpen
	b.failures = 0
	b.successes = 0
	b.openedAt = b.now()
}

type BreakerStatus struct {
	State            BreakerState
	FailureCount     int
	SuccessCount     int
	FailureThreshold int
}

func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStatus{
		State:            b.state,
		FailureCount:     b.failures,
		SuccessCount:     b.successes,
		FailureThreshold: b.cfg.FailureThreshold,
	}
}
