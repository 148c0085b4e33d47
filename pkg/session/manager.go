package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
)

// DefaultIdleTimeout is how long a session may rest before its dialog
// position is discarded. Expiry is lazy: it is applied when the next
// event arrives, there is no background sweeper.
const DefaultIdleTimeout = 30 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes session access per user: events for one user run
// strictly one at a time, different users in parallel. It uses
// reference counting to garbage collect unused locks, loads or creates
// the session around every unit of work, and applies idle expiry.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithIdleTimeout sets the inactivity window after which a session is
// reset to idle. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		idleTimeout: DefaultIdleTimeout,
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithSession runs fn while holding the user's lock, with the loaded
// (or freshly created) session. A session idle past the timeout is
// reset to the main menu before fn sees it. When fn returns nil the
// session is persisted with a bumped LastSeen; when fn fails nothing
// is saved. fn must not call back into the Manager for the same user.
func (m *Manager) WithSession(ctx context.Context, userID string, fn func(ctx context.Context, s *domain.Session) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	now := m.now().UTC()

	s, err := m.store.Load(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s = domain.NewSession(userID)
		s.LastSeen = now
	case err != nil:
		return fmt.Errorf("load session %q: %w", userID, err)
	default:
		if m.idleTimeout > 0 && now.Sub(s.LastSeen) > m.idleTimeout {
			m.logger.Debug("session idled out, resetting",
				"user_id", userID,
				"idle", now.Sub(s.LastSeen),
			)
			s.ResetTransient()
		}
	}

	if err := fn(ctx, s); err != nil {
		return err
	}

	s.LastSeen = now
	if err := m.store.Save(ctx, userID, s); err != nil {
		return fmt.Errorf("save session %q: %w", userID, err)
	}
	return nil
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()
	return m.store.Load(ctx, userID)
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()
	return m.store.Delete(ctx, userID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
