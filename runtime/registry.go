package runtime

import (
	"dot-catcher/contract"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry tracks the sessions currently connected to the bridge.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Session // map session id -> Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.Session),
	}
}

// Subscribe registers a session and runs onJoin while still holding the write lock.
// A broadcast cannot snapshot the sessions in between, so whatever onJoin sends
// reaches the session before any later broadcast does.
func (r *Registry) Subscribe(session contract.Session, onJoin func(contract.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID()] = session
	if onJoin != nil {
		onJoin(session)
	}
}

// Unsubscribe removes a session. It reports whether the session was registered.
func (r *Registry) Unsubscribe(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

// Sinks returns a copy of the registered sessions.
// Callers iterate the copy without holding the lock.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.sessions, func(_ string, s contract.Session) contract.EventSink {
		return s
	})
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
