package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Entry is a single tagged conversation turn. AgentID is empty for user turns.
type Entry struct {
	AgentID string
	Text    string
}

// UserTurn constructs a user entry.
func UserTurn(text string) Entry { return Entry{Text: text} }

// AgentTurn constructs an agent entry.
func AgentTurn(agentID, text string) Entry { return Entry{AgentID: agentID, Text: text} }

// IsUser reports whether the entry is a user turn.
func (e Entry) IsUser() bool { return e.AgentID == "" }

// Session is the conversation state one routing session at a time mutates.
// Entries are append-only; they are never reordered or edited, only cleared
// wholesale by Reset. The pending-authorization slot is deliberately a field
// here (not a package global) so it stays visible both to tool invocations
// nested inside an agent call and to the top-level loop, while keeping
// sessions isolated and testable.
type Session struct {
	mu          sync.RWMutex
	id          string
	entries     []Entry
	pendingAuth string // authorization URL, empty when clear
}

// New creates an empty session with a generated identifier.
func New() *Session {
	return &Session{id: uuid.NewString()}
}

// NewWithID creates an empty session with the given identifier.
func NewWithID(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Append adds an entry to the end of the transcript.
func (s *Session) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// AppendUser appends a user turn.
func (s *Session) AppendUser(text string) { s.Append(UserTurn(text)) }

// AppendAgent appends an agent turn.
func (s *Session) AppendAgent(agentID, text string) { s.Append(AgentTurn(agentID, text)) }

// Entries returns a copy of the transcript.
func (s *Session) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Render produces the single text block every agent sees. User turns render
// bare; agent turns are wrapped in an explicit [Previous Agent Output] frame.
// The framing disambiguates the user's request from data already fetched by
// a previous agent, so downstream agents can satisfy data dependencies from
// the transcript instead of re-fetching.
func (s *Session) Render() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	formatted := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		if e.IsUser() {
			formatted = append(formatted, fmt.Sprintf("User: %s", e.Text))
			continue
		}
		formatted = append(formatted, fmt.Sprintf(
			"\n[Previous Agent Output]\n%s: %s\n[End of Previous Agent Output]", e.AgentID, e.Text))
	}
	return strings.Join(formatted, "\n")
}

// LastUserInput returns the text of the most recent user turn, scanning
// backwards. Supports the operator "continue" replay after authorization.
func (s *Session) LastUserInput() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].IsUser() {
			return s.entries[i].Text, true
		}
	}
	return "", false
}

// Reset clears the transcript and any pending authorization. Idempotent.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.pendingAuth = ""
}

// SetPendingAuth records an authorization URL. A new value overwrites an
// unresolved old one (last writer wins).
func (s *Session) SetPendingAuth(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAuth = url
}

// PendingAuth returns the pending authorization URL, if any.
func (s *Session) PendingAuth() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingAuth, s.pendingAuth != ""
}

// ClearPendingAuth clears the pending authorization slot.
func (s *Session) ClearPendingAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAuth = ""
}
