package runtime

import (
	"dot-catcher/contract"
	"dot-catcher/domain"
	"sync/atomic"
)

var _ contract.StateWriter = (*StateStore)(nil)

// StateStore holds the aggregate game state as an immutable snapshot.
// Apply must only be called from a single goroutine (the actions consumer);
// Snapshot is safe from anywhere.
type StateStore struct {
	current atomic.Pointer[domain.GameState]
	rules   domain.Rules
}

func NewStateStore(rules domain.Rules) *StateStore {
	s := &StateStore{rules: rules}
	s.current.Store(&domain.GameState{})
	return s
}

func (s *StateStore) Snapshot() domain.GameState {
	return *s.current.Load()
}

// Apply folds evt into the current state and publishes the new snapshot.
// On an unknown event type the state is left as is and returned with the error.
func (s *StateStore) Apply(evt domain.ActionEvent) (domain.GameState, error) {
	prev := s.current.Load()
	next, err := prev.Apply(evt, s.rules)
	if err != nil {
		return *prev, err
	}
	s.current.Store(&next)
	return next, nil
}
