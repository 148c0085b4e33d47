package memory

import (
	"context"
	"sync"

	"github.com/granalabs/parada/pkg/domain"
)

// FavoritesStore implements ports.FavoritesStore in memory.
// Safe for concurrent use; the mutex makes the capacity check and the
// append one atomic step, so two racing Adds can never push a user past
// capacity.
type FavoritesStore struct {
	capacity int
	mu       sync.Mutex
	data     map[string][]domain.StopID
}

// FavoritesOption configures the store.
type FavoritesOption func(*FavoritesStore)

// WithCapacity overrides the per-user favorites bound.
func WithCapacity(n int) FavoritesOption {
	return func(s *FavoritesStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewFavorites creates a new in-memory favorites store with the default
// capacity of domain.DefaultFavoritesCapacity per user.
func NewFavorites(opts ...FavoritesOption) *FavoritesStore {
	s := &FavoritesStore{
		capacity: domain.DefaultFavoritesCapacity,
		data:     make(map[string][]domain.StopID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's favorites in insertion order.
func (s *FavoritesStore) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.data[userID]
	favs := make([]domain.Favorite, 0, len(ids))
	for _, id := range ids {
		favs = append(favs, domain.Favorite{UserID: userID, StopID: id})
	}
	return favs, nil
}

// Add appends the stop to the user's favorites.
func (s *FavoritesStore) Add(ctx context.Context, userID string, stopID domain.StopID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.data[userID]
	for _, id := range ids {
		if id == stopID {
			return domain.ErrAlreadyFavorite
		}
	}
	if len(ids) >= s.capacity {
		return domain.ErrCapacityExceeded
	}
	s.data[userID] = append(ids, stopID)
	return nil
}

// Remove deletes the stop from the user's favorites, keeping the order
// of the remaining entries.
func (s *FavoritesStore) Remove(ctx context.Context, userID string, stopID domain.StopID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.data[userID]
	for i, id := range ids {
		if id == stopID {
			s.data[userID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return domain.ErrFavoriteNotFound
}
