package memory

import (
	"context"
	"sync"

	"github.com/granalabs/parada/pkg/domain"
)

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// NewSessions creates a new in-memory session store.
func NewSessions() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Save persists a copy of the session, so later caller mutations don't
// leak into the store.
func (s *SessionStore) Save(ctx context.Context, userID string, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = sess.Clone()
	return nil
}

// Load retrieves a copy of the stored session.
func (s *SessionStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// List returns the user IDs with a stored session.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
