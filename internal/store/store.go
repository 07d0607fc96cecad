package store

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban/internal/task"
)

// Store serializes transitions: each Dispatch runs to completion before the
// next one starts, whichever goroutine calls it.
type Store struct {
	mu    sync.Mutex
	state State
	log   *log.Entry
}

func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		state: State{pending: map[string]task.Task{}},
		log:   logger.WithField("component", "store"),
	}
}

func (s *Store) Dispatch(a Action) State {
	_, after := s.Apply(a)
	return after
}

// Apply dispatches a and returns the states on either side of it.
func (s *Store) Apply(a Action) (before, after State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before = s.state
	s.state = Reduce(before, a)
	s.log.WithFields(log.Fields{
		"action":  fmt.Sprintf("%T", a),
		"tasks":   len(s.state.tasks),
		"pending": len(s.state.pending),
	}).Debug("transition")
	return before, s.state
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
