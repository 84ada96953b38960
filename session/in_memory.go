package session

import (
	"sync"
)

// InMemoryStore is a volatile session registry keyed by identifier. It is
// safe for concurrent access and best suited for CLI processes, tests or
// ephemeral demo servers. Sessions are shared by reference: a single routing
// session mutates a *Session at a time.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get returns an existing session or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	return s.createLocked(sessionID)
}

// Create forces the creation (or overwriting) of a session with the given id.
func (s *InMemoryStore) Create(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(sessionID)
}

// Delete removes a session from the store.
func (s *InMemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// createLocked allocates and stores a new session; caller must already hold
// the write lock.
func (s *InMemoryStore) createLocked(sessionID string) *Session {
	sess := NewWithID(sessionID)
	s.sessions[sessionID] = sess
	return sess
}
