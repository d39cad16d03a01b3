// Package checkpoint implements whole-workspace save points on top of git:
// the coarse undo used when per-operation rollback is insufficient or the
// failure is systemic.
package checkpoint

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Checkpoint is one recorded save point.
type Checkpoint struct {
	SHA       string
	Message   string
	CreatedAt time.Time
}

// Manager creates and reverts checkpoints for one working directory.
type Manager struct {
	Dir string
	// Exclude lists doublestar globs for paths that must never be swept into
	// a checkpoint commit (run artifacts, caches).
	Exclude []string
	Logger  *slog.Logger

	created []Checkpoint
	now     func() time.Time
}

func NewManager(dir string, exclude []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Dir: dir, Exclude: exclude, Logger: logger, now: time.Now}
}

// CreateCheckpoint stages all pending non-excluded changes and commits them.
// ok is false, with no error and no side effects, when the directory is not
// version-controlled or there is nothing to commit.
func (m *Manager) CreateCheckpoint(message string) (sha string, ok bool, err error) {
	if !IsRepo(m.Dir) {
		m.Logger.Debug("checkpoint skipped: not a git repository", "dir", m.Dir)
		return "", false, nil
	}
	porcelain, err := StatusPorcelain(m.Dir)
	if err != nil {
		return "", false, err
	}
	paths := m.filterExcluded(dirtyPaths(porcelain))
	if len(paths) == 0 {
		m.Logger.Debug("checkpoint skipped: nothing to commit", "dir", m.Dir)
		return "", false, nil
	}

	if err := addPaths(m.Dir, paths); err != nil {
		return "", false, err
	}
	if strings.TrimSpace(message) == "" {
		message = "checkpoint"
	}
	sha, err = commit(m.Dir, message)
	if err != nil {
		return "", false, err
	}
	cp := Checkpoint{SHA: sha, Message: message, CreatedAt: m.now()}
	m.created = append(m.created, cp)
	m.Logger.Info("checkpoint created", "sha", sha, "files", len(paths))
	return sha, true, nil
}

// RevertToCheckpoint hard-resets the working tree to the given checkpoint,
// discarding everything after it.
func (m *Manager) RevertToCheckpoint(sha string) error {
	if !IsRepo(m.Dir) {
		return fmt.Errorf("revert checkpoint: %s is not a git repository", m.Dir)
	}
	if err := verifyCommit(m.Dir, sha); err != nil {
		return fmt.Errorf("revert checkpoint: unknown commit %s: %w", sha, err)
	}
	if err := resetHard(m.Dir, sha); err != nil {
		return err
	}
	m.Logger.Info("workspace reverted", "sha", sha)
	return nil
}

// Checkpoints returns the save points created through this manager, oldest
// first.
func (m *Manager) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(m.created))
	copy(out, m.created)
	return out
}

func (m *Manager) filterExcluded(paths []string) []string {
	if len(m.Exclude) == 0 {
		return paths
	}
	var kept []string
	for _, p := range paths {
		// Untracked directories show up with a trailing slash in porcelain
		// output; normalize before glob matching.
		name := strings.TrimSuffix(p, "/")
		excluded := false
		for _, pattern := range m.Exclude {
			if match, err := doublestar.Match(pattern, name); err == nil && match {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, p)
		}
	}
	return kept
}
