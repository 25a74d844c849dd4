package memory

import (
	"context"
	"sync"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/session"
)

// SessionStore implements session.Store with an in-process variable.
// For development and testing; production uses the file store.
type SessionStore struct {
	mu   sync.RWMutex
	sess *session.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Load returns the stored session.
func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess == nil {
		return nil, session.ErrNotFound
	}
	cp := *s.sess
	return &cp, nil
}

// Save stores the session.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sess = &cp
	return nil
}

// Delete removes the stored session.
func (s *SessionStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}

// Compile-time interface verification.
var _ session.Store = (*SessionStore)(nil)
