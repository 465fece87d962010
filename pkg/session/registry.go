package session

import "sync"

// Registry is the server's live gameId -> Session map, the "currently
// hosted games" half of the process's in-memory state (as opposed to
// pkg/registry, which maps a game *type* to its rules factory).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put registers s under its own GameID, replacing any prior entry.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.GameID()] = s
}

// Get returns the session for gameID, if live in this process.
func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// Delete drops gameID from the registry, e.g. after a session finishes and
// is persisted.
func (r *Registry) Delete(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, gameID)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns every live session's GameID.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// All returns every live Session, for fan-out operations like graceful
// shutdown (persist everything) or periodic liveness sweeps.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
