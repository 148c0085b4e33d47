package ports

import (
	"context"

	"github.com/granalabs/parada/pkg/domain"
)

// SessionStore defines the interface for persisting dialog sessions.
// Implementations must return independent copies: mutating a loaded
// session must not change the stored one until Save.
type SessionStore interface {
	// Save persists the session under the user ID.
	Save(ctx context.Context, userID string, s *domain.Session) error

	// Load retrieves the session for a user.
	// Returns domain.ErrSessionNotFound if none exists.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a user. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the user IDs with a stored session.
	List(ctx context.Context) ([]string, error)
}
