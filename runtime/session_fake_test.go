package runtime

import (
	"context"
	"dot-catcher/domain/event"
	"dot-catcher/errors"
	"sync"
)

// recordingSession keeps every event it was handed, in order.
type recordingSession struct {
	id     string
	mu     sync.Mutex
	closed bool
	events []event.DomainEvent
}

func newRecordingSession(id string) *recordingSession {
	return &recordingSession{id: id}
}

func (s *recordingSession) ID() string { return s.id }

func (s *recordingSession) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSession) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func (s *recordingSession) states() []int {
	var scores []int
	for _, e := range s.received() {
		if update, ok := e.(event.GameStateUpdated); ok {
			scores = append(scores, update.State.Score)
		}
	}
	return scores
}
