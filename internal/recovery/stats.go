package recovery

import "sync"

// OutcomeStats counts real-world outcomes of recoveries, as reported back by
// the caller after re-running corrected actions.
type OutcomeStats struct {
	Attempts  int
	Successes int
}

// StatsSnapshot is a point-in-time copy of the rolling statistics store.
type StatsSnapshot struct {
	ByCategory  map[Category]OutcomeStats
	ByOperation map[string]OutcomeStats
}

type statsStore struct {
	mu          sync.RWMutex
	byCategory  map[Category]OutcomeStats
	byOperation map[string]OutcomeStats
}

func newStatsStore() *statsStore {
	return &statsStore{
		byCategory:  map[Category]OutcomeStats{},
		byOperation: map[string]OutcomeStats{},
	}
}

func (s *statsStore) record(cat Category, operation string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byCategory[cat]
	c.Attempts++
	if success {
		c.Successes++
	}
	s.byCategory[cat] = c

	o := s.byOperation[operation]
	o.Attempts++
	if success {
		o.Successes++
	}
	s.byOperation[operation] = o
}

func (s *statsStore) snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := StatsSnapshot{
		ByCategory:  make(map[Category]OutcomeStats, len(s.byCategory)),
		ByOperation: make(map[string]OutcomeStats, len(s.byOperation)),
	}
	for k, v := range s.byCategory {
		out.ByCategory[k] = v
	}
	for k, v := range s.byOperation {
		out.ByOperation[k] = v
	}
	return out
}
