package session

import (
	"sync"
	"time"
)

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleEngine    Role = "engine"
)

// Turn is one entry in a session's chat history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the unit of conversation state for one live interview.
// It lives only in process memory; the registry owns it exclusively and
// connections hold just its id.
type Session struct {
	ID      string
	OwnerID string

	mu         sync.Mutex
	history    []Turn
	inFlight   bool
	lastActive time.Time
}

func newSession(id, ownerID string) *Session {
	return &Session{
		ID:         id,
		OwnerID:    ownerID,
		lastActive: time.Now(),
	}
}

// Append adds a turn to the history, preserving insertion order.
func (s *Session) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, t)
	s.lastActive = time.Now()
}

// History returns a copy of the transcript so callers can replay it
// without racing later appends.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// TryAcquire marks an engine call in flight. It returns false when one is
// already pending, which is the session-busy signal: at most one candidate
// message may be awaiting the engine per session.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.lastActive = time.Now()
	return true
}

// Release returns the session to idle after the engine call resolves.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.lastActive = time.Now()
}

// Touch records activity without mutating the history, e.g. on join or on
// audio tunnel traffic.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && s.lastActive.Before(cutoff)
}
