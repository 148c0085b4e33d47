package ports

import (
	"context"

	"github.com/granalabs/parada/pkg/domain"
)

// FavoritesStore defines the interface for the per-user favorites set:
// an ordered set of stop IDs, capped at a per-user capacity fixed at
// store construction.
//
// All three operations are atomic with respect to each other, and a
// nil error from Add or Remove means the change is durably applied:
// a List issued afterwards observes it.
type FavoritesStore interface {
	// List returns the user's favorites in insertion order. A user
	// without favorites yields an empty slice, not an error.
	List(ctx context.Context, userID string) ([]domain.Favorite, error)

	// Add appends the stop to the user's favorites. Returns
	// domain.ErrAlreadyFavorite if it is already present and
	// domain.ErrCapacityExceeded if the user is at capacity; in both
	// cases the stored list is unchanged.
	Add(ctx context.Context, userID string, stopID domain.StopID) error

	// Remove deletes the stop from the user's favorites, preserving
	// the order of the remaining entries. Returns
	// domain.ErrFavoriteNotFound if it was not present.
	Remove(ctx context.Context, userID string, stopID domain.StopID) error
}
