package rollback

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type entryEvent string

const (
	entryAdd  entryEvent = "add"
	entryUndo entryEvent = "undo"
	entrySkip entryEvent = "skip"
	entryFail entryEvent = "fail"
)

// JournalEntry is one persisted ledger event. Payloads themselves are not
// journaled, only their hashes; snapshots can be large and may hold secrets.
type JournalEntry struct {
	Event       string    `msgpack:"event"`
	ID          uint64    `msgpack:"id"`
	Label       string    `msgpack:"label"`
	PayloadHash string    `msgpack:"payload_hash"`
	Reversible  bool      `msgpack:"reversible"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// Journal is an append-only msgpack stream of ledger events.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *msgpack.Encoder
}

func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rollback journal: %w", err)
	}
	return &Journal{f: f, enc: msgpack.NewEncoder(f)}, nil
}

func (j *Journal) append(event entryEvent, op Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(JournalEntry{
		Event:       string(event),
		ID:          op.ID,
		Label:       op.Label,
		PayloadHash: op.PayloadHash,
		Reversible:  op.Reversible,
		CreatedAt:   op.CreatedAt,
	})
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

// ReadJournal decodes all entries from a journal file, oldest first.
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec := msgpack.NewDecoder(f)
	var entries []JournalEntry
	for {
		var e JournalEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, fmt.Errorf("decode rollback journal %s: %w", path, err)
		}
		entries = append(entries, e)
	}
}
