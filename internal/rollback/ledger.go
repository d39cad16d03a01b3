// Package rollback keeps a LIFO ledger of individually reversible session
// steps, independent of version control. It is the fine-grained counterpart
// to the whole-workspace git checkpoint.
package rollback

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// UndoFunc is the inverse action of one recorded operation.
type UndoFunc func(ctx context.Context) error

// Operation is one undoable step. Never mutated after Add.
type Operation struct {
	ID          uint64
	Label       string
	Payload     []byte
	PayloadHash string
	Reversible  bool
	CreatedAt   time.Time

	undo UndoFunc
}

// Summary describes the ledger without exposing its entries. Oldest and
// Newest are nil on an empty ledger.
type Summary struct {
	TotalOperations int
	Oldest          *time.Time
	Newest          *time.Time
}

// UndoError records a failed inverse action during rollback.
type UndoError struct {
	ID    uint64
	Label string
	Err   error
}

func (e UndoError) Error() string {
	return fmt.Sprintf("undo %d (%s): %v", e.ID, e.Label, e.Err)
}

// Report is the outcome of one rollback walk. Skipped lists non-reversible
// entries that could not be undone, so the caller knows full consistency was
// not achieved.
type Report struct {
	RolledBack []uint64
	Skipped    []uint64
	Failed     []UndoError
}

// Complete reports whether every walked entry was undone cleanly.
func (r Report) Complete() bool {
	return len(r.Skipped) == 0 && len(r.Failed) == 0
}

type Ledger struct {
	mu      sync.Mutex
	nextID  uint64
	ops     []Operation
	journal *Journal
	now     func() time.Time
}

type Option func(*Ledger)

// WithJournal attaches an append-only journal that records adds and rollback
// events for post-mortem inspection.
func WithJournal(j *Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add appends an entry and returns its id. Ids increase monotonically;
// appends are O(1) amortized regardless of ledger size. The payload is
// content-hashed so journals can be cross-checked against what was actually
// recorded.
func (l *Ledger) Add(label string, payload []byte, reversible bool, undo UndoFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	op := Operation{
		ID:          l.nextID,
		Label:       label,
		Payload:     append([]byte(nil), payload...),
		PayloadHash: hashPayload(payload),
		Reversible:  reversible && undo != nil,
		CreatedAt:   l.now(),
		undo:        undo,
	}
	l.nextID++
	l.ops = append(l.ops, op)
	l.journalAppend(entryAdd, op)
	return op.ID
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{TotalOperations: len(l.ops)}
	if len(l.ops) > 0 {
		oldest := l.ops[0].CreatedAt
		newest := l.ops[len(l.ops)-1].CreatedAt
		s.Oldest = &oldest
		s.Newest = &newest
	}
	return s
}

// Rollback walks the ledger from the most recent entry down to and including
// targetID, invoking each reversible entry's inverse action. Non-reversible
// entries are skipped and reported. Walked entries are consumed even when
// their undo fails; a failed undo cannot be retried with stale state.
func (l *Ledger) Rollback(ctx context.Context, targetID uint64) (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if targetID < 1 {
		targetID = 1
	}
	if len(l.ops) == 0 {
		return Report{}, nil
	}
	if targetID > l.ops[len(l.ops)-1].ID {
		return Report{}, fmt.Errorf("rollback target %d is newer than the ledger head", targetID)
	}

	var report Report
	cut := len(l.ops)
	for i := len(l.ops) - 1; i >= 0; i-- {
		op := l.ops[i]
		if op.ID < targetID {
			break
		}
		cut = i
		if !op.Reversible {
			report.Skipped = append(report.Skipped, op.ID)
			l.journalAppend(entrySkip, op)
			continue
		}
		if err := op.undo(ctx); err != nil {
			report.Failed = append(report.Failed, UndoError{ID: op.ID, Label: op.Label, Err: err})
			l.journalAppend(entryFail, op)
			continue
		}
		report.RolledBack = append(report.RolledBack, op.ID)
		l.journalAppend(entryUndo, op)
	}
	l.ops = l.ops[:cut]
	return report, nil
}

// RollbackAll unwinds the entire ledger.
func (l *Ledger) RollbackAll(ctx context.Context) (Report, error) {
	return l.Rollback(ctx, 1)
}

func (l *Ledger) journalAppend(event entryEvent, op Operation) {
	if l.journal == nil {
		return
	}
	// Journal write failures must not break the session; the journal is a
	// post-mortem aid, not a source of truth.
	_ = l.journal.append(event, op)
}

func hashPayload(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
