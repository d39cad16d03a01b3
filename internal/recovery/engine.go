package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ModelClient is the outbound diagnostic dependency. Any transport failure is
// treated as a failed recovery round-trip; the engine never lets it escape.
type ModelClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelClientFunc adapts a plain function to ModelClient.
type ModelClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ToolValidator checks a corrected action against a known tool surface before
// the engine hands it back to the caller. Optional.
type ToolValidator interface {
	Validate(name string, args map[string]any) error
}

// SleepFunc abstracts the backoff sleep. A nil SleepFunc uses a context-aware
// timer.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RecoveryContext is the immutable snapshot of one failed attempt, supplied
// by the tool executor. The engine never mutates it.
type RecoveryContext struct {
	Attempt     int
	MaxAttempts int
	RawError    string
	// Category may be left empty; the engine classifies RawError on demand.
	Category    Category
	Operation   string
	Arguments   map[string]any
	PriorResult string
	UserIntent  string
	// History is the ordered list of prior operations in the session,
	// oldest first. Only a bounded window reaches the prompt.
	History []string
}

type Outcome string

const (
	OutcomeCorrected   Outcome = "corrected"
	OutcomeEscalated   Outcome = "escalated"
	OutcomeCircuitOpen Outcome = "circuit_open"
)

// RecoveryResult is the outcome of one recovery round-trip. A corrected
// action and an escalation reason are mutually exclusive.
type RecoveryResult struct {
	Outcome          Outcome
	Action           *CorrectedAction
	Diagnosis        string
	Correction       string
	EscalationReason string
	RetryRecommended bool
	Category         Category
	AttemptID        string
}

type EngineConfig struct {
	Retry   RetryPolicy
	Breaker BreakerConfig
	// HistoryWindow bounds the prior-operation window in the diagnostic
	// prompt. Defaults to 10.
	HistoryWindow int
	// MaxPromptErrorChars truncates pathological error text before it
	// reaches the prompt. Defaults to 4096.
	MaxPromptErrorChars int

	Sleep   SleepFunc
	Tools   ToolValidator
	Metrics *Metrics
	Logger  *slog.Logger
}

func (c *EngineConfig) applyDefaults() {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 10
	}
	if c.MaxPromptErrorChars <= 0 {
		c.MaxPromptErrorChars = 4096
	}
	if c.Breaker == (BreakerConfig{}) {
		c.Breaker = DefaultBreakerConfig()
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine orchestrates classification, breaker consultation, backoff, the
// diagnostic model round-trip, and response parsing. One engine per process
// is typical but not required; engines are independent.
type Engine struct {
	id     string
	client ModelClient
	cfg    EngineConfig
	stats  *statsStore

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewEngine(client ModelClient, cfg EngineConfig) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("recovery engine requires a model client")
	}
	cfg.applyDefaults()
	// Fail fast on misconfiguration; nothing may fail during recovery.
	if err := cfg.Breaker.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		id:       ulid.Make().String(),
		client:   client,
		cfg:      cfg,
		stats:    newStatsStore(),
		breakers: map[string]*CircuitBreaker{},
	}, nil
}

// Attempt runs one recovery round-trip for a failed tool invocation. It never
// panics and never returns an error: every failure path is folded into an
// escalation result the CLI can display verbatim.
func (e *Engine) Attempt(ctx context.Context, rc RecoveryContext) RecoveryResult {
	attemptID := ulid.Make().String()
	if rc.Category == "" {
		rc.Category, _ = Classify(rc.RawError)
	}
	log := e.cfg.Logger.With(
		"operation", rc.Operation,
		"category", string(rc.Category),
		"attempt", rc.Attempt,
		"recovery_id", attemptID,
	)

	br := e.breakerFor(rc.Operation)
	if !br.Allow() {
		e.cfg.Metrics.circuitOpen(rc.Operation)
		log.Warn("recovery short-circuited: circuit open")
		return RecoveryResult{
			Outcome:          OutcomeCircuitOpen,
			EscalationReason: fmt.Sprintf("circuit open for %s: repeated recovery failures", rc.Operation),
			Category:         rc.Category,
			AttemptID:        attemptID,
		}
	}

	if rc.Attempt > 1 {
		seed := fmt.Sprintf("%s:%s:%d", e.id, rc.Operation, rc.Attempt)
		delay := e.cfg.Retry.DelaySeeded(rc.Attempt-1, seed)
		if err := e.cfg.Sleep(ctx, delay); err != nil {
			// Abandoned before the round-trip started: leave the breaker
			// untouched.
			return e.escalate(rc, attemptID, "", fmt.Sprintf("recovery for %s cancelled during backoff: %v", rc.Operation, err))
		}
	}

	prompt := buildDiagnosticPrompt(e.boundContext(rc), e.cfg.HistoryWindow)
	text, err := e.generate(ctx, prompt)
	if err != nil {
		br.RecordFailure()
		e.cfg.Metrics.roundTrip(rc.Operation, "failure")
		log.Warn("diagnostic round-trip failed", "error", err)
		return e.escalate(rc, attemptID, "", fmt.Sprintf("recovery failed for %s: %v", rc.Operation, err))
	}

	parsed := ParseDiagnostic(text)
	if parsed.ActionErr != nil {
		br.RecordFailure()
		e.cfg.Metrics.roundTrip(rc.Operation, "failure")
		log.Warn("diagnostic response malformed", "error", parsed.ActionErr)
		return e.escalate(rc, attemptID, parsed.Diagnosis,
			fmt.Sprintf("no correction available for %s: %v", rc.Operation, parsed.ActionErr))
	}
	if parsed.Action == nil {
		// Pure diagnosis. The round-trip neither failed nor produced a
		// correction; the breaker is left untouched.
		e.cfg.Metrics.roundTrip(rc.Operation, "diagnosis")
		log.Info("model returned diagnosis without corrected action")
		return e.escalate(rc, attemptID, parsed.Diagnosis,
			fmt.Sprintf("no corrected action proposed for %s", rc.Operation))
	}

	if e.cfg.Tools != nil {
		if verr := e.cfg.Tools.Validate(parsed.Action.Tool, parsed.Action.Args); verr != nil {
			br.RecordFailure()
			e.cfg.Metrics.roundTrip(rc.Operation, "failure")
			log.Warn("corrected action rejected by tool validation", "error", verr)
			return e.escalate(rc, attemptID, parsed.Diagnosis,
				fmt.Sprintf("corrected action for %s failed validation: %v", rc.Operation, verr))
		}
	}

	br.RecordSuccess()
	e.cfg.Metrics.roundTrip(rc.Operation, "success")
	log.Info("corrected action proposed", "tool", parsed.Action.Tool)
	return RecoveryResult{
		Outcome:          OutcomeCorrected,
		Action:           parsed.Action,
		Diagnosis:        parsed.Diagnosis,
		Correction:       parsed.Correction,
		RetryRecommended: true,
		Category:         rc.Category,
		AttemptID:        attemptID,
	}
}

// RecordOutcome is called by the tool executor once it has re-run a corrected
// action and knows the real-world result. It feeds the rolling statistics
// only; breaker state reflects diagnostic round-trip health, not downstream
// outcomes.
func (e *Engine) RecordOutcome(rc RecoveryContext, res RecoveryResult, finalSuccess bool) {
	cat := res.Category
	if cat == "" {
		cat = rc.Category
	}
	if cat == "" {
		cat, _ = Classify(rc.RawError)
	}
	e.stats.record(cat, rc.Operation, finalSuccess)
	e.cfg.Metrics.outcome(cat, finalSuccess)
}

func (e *Engine) Statistics() StatsSnapshot {
	return e.stats.snapshot()
}

// BreakerStatus reports the breaker guarding the given operation, if one has
// been created.
func (e *Engine) BreakerStatus(operation string) (BreakerStatus, bool) {
	e.mu.Lock()
	br, ok := e.breakers[operation]
	e.mu.Unlock()
	if !ok {
		return BreakerStatus{}, false
	}
	return br.Status(), true
}

func (e *Engine) breakerFor(operation string) *CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if br, ok := e.breakers[operation]; ok {
		return br
	}
	// Config was validated at construction; creation cannot fail here.
	br, err := NewCircuitBreaker(e.cfg.Breaker)
	if err != nil {
		panic(fmt.Sprintf("recovery: breaker config invalidated after construction: %v", err))
	}
	e.breakers[operation] = br
	return br
}

func (e *Engine) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model client panic: %v", r)
		}
	}()
	return e.client.Generate(ctx, prompt)
}

func (e *Engine) boundContext(rc RecoveryContext) RecoveryContext {
	if len(rc.RawError) > e.cfg.MaxPromptErrorChars {
		rc.RawError = rc.RawError[:e.cfg.MaxPromptErrorChars] + "\n[truncated]"
	}
	return rc
}

func (e *Engine) escalate(rc RecoveryContext, attemptID, diagnosis, reason string) RecoveryResult {
	if strings.TrimSpace(diagnosis) != "" {
		reason = reason + "; diagnosis: " + strings.TrimSpace(diagnosis)
	}
	return RecoveryResult{
		Outcome:          OutcomeEscalated,
		Diagnosis:        diagnosis,
		EscalationReason: reason,
		Category:         rc.Category,
		AttemptID:        attemptID,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
