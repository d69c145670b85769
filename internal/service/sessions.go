package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuraestate/property-matcher/internal/model"
)

var (
	// ErrSessionNotFound is returned for an unknown session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnInProgress is returned when a session already runs a turn
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
)

// Session is one conversation. At most one turn runs against it at a time.
type Session struct {
	ID string

	turn    sync.Mutex
	mu      sync.RWMutex
	state   model.ConversationState
	updated time.Time
}

// State returns a copy of the stored conversation state
func (s *Session) State() model.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Store replaces the stored state wholesale
func (s *Session) Store(state model.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.updated = time.Now()
}

// UpdatedAt returns the time of the last stored state
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// SessionStore keeps conversations in memory keyed by session id
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	context  string
}

// NewSessionStore creates a store whose new sessions are seeded with the
// business context.
func NewSessionStore(businessContext string) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		context:  businessContext,
	}
}

// Acquire returns the session for id, creating it when id is empty or
// unknown, and locks it for one turn. The returned release func must be
// called when the turn is done.
func (s *SessionStore) Acquire(id string) (*Session, func(), error) {
	session := s.getOrCreate(id)
	if !session.turn.TryLock() {
		return nil, nil, ErrTurnInProgress
	}
	return session, session.turn.Unlock, nil
}

// Get returns the stored state of an existing session
func (s *SessionStore) Get(id string) (model.ConversationState, error) {
	session, ok := s.lookup(id)
	if !ok {
		return model.ConversationState{}, ErrSessionNotFound
	}
	return session.State(), nil
}

// Reset replaces the session state with a fresh conversation
func (s *SessionStore) Reset(id string) (model.ConversationState, error) {
	session, ok := s.lookup(id)
	if !ok {
		return model.ConversationState{}, ErrSessionNotFound
	}
	if !session.turn.TryLock() {
		return model.ConversationState{}, ErrTurnInProgress
	}
	defer session.turn.Unlock()

	state := model.NewConversationState(s.context)
	session.Store(state)
	return state, nil
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) getOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if session, ok := s.sessions[id]; ok {
			return session
		}
	} else {
		id = uuid.NewString()
	}

	session := &Session{
		ID:      id,
		state:   model.NewConversationState(s.context),
		updated: time.Now(),
	}
	s.sessions[id] = session
	return session
}
