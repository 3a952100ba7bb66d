package domain

import (
	"sync"
	"time"
)

// Identity is the authenticated claim a connection or request acts under.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// ConnState is the chat state of a single connection.
type ConnState int

const (
	StateAnonymous ConnState = iota
	StateJoined
	StateLeft
)

func (s ConnState) String() string {
	switch s {
	case StateJoined:
		return "joined"
	case StateLeft:
		return "left"
	default:
		return "anonymous"
	}
}

// Session tracks one connection's identity and chat state.
type Session struct {
	ID           string
	Identity     Identity
	DisplayName  string
	CreatedAt    time.Time
	LastActiveAt time.Time

	state ConnState
	room  string
	mu    sync.RWMutex
}

func NewSession(id string, identity Identity) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Identity:     identity,
		DisplayName:  identity.Username,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Join moves the session from anonymous to joined.
func (s *Session) Join(room, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAnonymous {
		return ErrInvalidState.Withf("cannot join from state %s", s.state)
	}
	s.state = StateJoined
	s.room = room
	s.DisplayName = displayName
	s.LastActiveAt = time.Now()
	return nil
}

// Leave moves a joined session to left and returns the room it was in.
func (s *Session) Leave() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateJoined {
		return "", false
	}
	room := s.room
	s.state = StateLeft
	s.room = ""
	s.LastActiveAt = time.Now()
	return room, true
}

// Close marks a session that never joined as left.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAnonymous {
		s.state = StateLeft
	}
}

func (s *Session) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentRoom returns the joined room, if any.
func (s *Session) CurrentRoom() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, s.state == StateJoined
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DisplayName
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
