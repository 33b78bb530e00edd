package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
)

// SessionStore keeps session histories in process memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]message.Message
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]message.Message)}
}

// Load returns a copy of the session's messages.
func (s *SessionStore) Load(ctx context.Context, sessionID string) ([]message.Message, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[sessionID]
	out := make([]message.Message, len(stored))
	for i, m := range stored {
		out[i] = m.Clone()
	}
	return out, nil
}

// Append adds messages to the session.
func (s *SessionStore) Append(ctx context.Context, sessionID string, msgs ...message.Message) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		s.sessions[sessionID] = append(s.sessions[sessionID], m.Clone())
	}
	return nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
