package app

import (
	"fmt"
	"sync"

	"github.com/yourusername/sonic-extract-go/internal/domain"
)

// Store is the authoritative in-memory registry of tasks, keyed by id and
// ordered by creation. The scheduler is the only writer; every task handed
// out by Get and List is a snapshot, so readers never observe a mutation
// in flight.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	order []string
}

// NewStore creates an empty task store
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*domain.Task),
	}
}

// Create registers a new task. The id must be unused.
func (s *Store) Create(t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task id %s already registered", t.ID)
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return nil
}

// Get returns a snapshot of the task with the given id
func (s *Store) Get(id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return t.Clone(), nil
}

// List returns snapshots of all tasks in creation order
func (s *Store) List() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

// UpdateProgress applies a progress report. Reports for terminal tasks and
// regressive reports fail with ErrInvalidTransition so the caller can
// discard them; progress never moves backwards. Values are capped at 99 —
// only completion sets 100, keeping progress=100 equivalent to completed.
func (s *Store) UpdateProgress(id string, value int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if t.IsTerminal() {
		return t.Progress, fmt.Errorf("%w: task is %s", domain.ErrInvalidTransition, t.Status)
	}
	if value > 99 {
		value = 99
	}
	if value < t.Progress {
		return t.Progress, fmt.Errorf("%w: progress %d behind current %d", domain.ErrInvalidTransition, value, t.Progress)
	}
	t.Progress = value
	return value, nil
}

// SetStatus applies a status transition, returning the previous status for
// event reporting. Transitions not permitted by the task state machine fail
// with ErrInvalidTransition. The cause is recorded for failed transitions.
func (s *Store) SetStatus(id string, to domain.TaskStatus, cause error) (domain.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	from := t.Status
	if !domain.CanTransition(t.Kind, from, to) {
		return from, fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidTransition, t.Kind, from, to)
	}

	switch to {
	case domain.StatusActive:
		t.MarkActive()
	case domain.StatusPaused:
		t.MarkPaused(t.ResumeOffset)
	case domain.StatusCompleted:
		t.MarkCompleted()
	case domain.StatusFailed:
		if cause == nil {
			cause = domain.ErrTransfer
		}
		t.MarkFailed(cause)
	case domain.StatusCancelled:
		t.MarkCancelled()
	default:
		return from, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return from, nil
}

// SetResolved attaches resolver output to a download task
func (s *Store) SetResolved(id string, meta *domain.MediaMetadata, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: task is %s", domain.ErrInvalidTransition, t.Status)
	}
	t.Metadata = meta
	t.Output = output
	return nil
}

// SetResumeState records the byte offset a paused download reached and
// whether a later resume had to restart from the beginning
func (s *Store) SetResumeState(id string, offset int64, restartFallback bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	t.ResumeOffset = offset
	if restartFallback {
		t.RestartFallback = true
	}
	return nil
}

// OutputClaimed reports whether a live task already writes to the path.
// Terminal tasks release their claim.
func (s *Store) OutputClaimed(path string) bool {
	if path == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if !t.IsTerminal() && t.Output == path {
			return true
		}
	}
	return false
}
