package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/granalabs/parada/pkg/domain"
)

// FavoritesStore implements ports.FavoritesStore on the local
// filesystem. The whole mapping (userID -> ordered stop IDs) lives in
// one JSON file, loaded at construction and rewritten atomically on
// every mutation, so a successful Add or Remove is durable before it
// returns.
type FavoritesStore struct {
	path     string
	capacity int

	mu   sync.Mutex
	data map[string][]domain.StopID
}

// Option configures the store.
type Option func(*FavoritesStore)

// WithCapacity overrides the per-user favorites bound.
func WithCapacity(n int) Option {
	return func(s *FavoritesStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewFavorites opens (or prepares to create) the favorites file at
// path. A missing file means no favorites yet; a present but
// undecodable file is an error, not silent data loss.
func NewFavorites(path string, opts ...Option) (*FavoritesStore, error) {
	if path == "" {
		path = filepath.Join(".parada", "favorites.json")
	}
	s := &FavoritesStore{
		path:     path,
		capacity: domain.DefaultFavoritesCapacity,
		data:     make(map[string][]domain.StopID),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read favorites file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse favorites file %s: %w", path, err)
	}
	return s, nil
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

// Add appends the stop to the user's favorites and persists before
// returning. On a write failure the in-memory state is left untouched.
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

	next := append(append([]domain.StopID(nil), ids...), stopID)
	if err := s.persist(userID, next); err != nil {
		return err
	}
	s.data[userID] = next
	return nil
}

// Remove deletes the stop from the user's favorites and persists before
// returning.
func (s *FavoritesStore) Remove(ctx context.Context, userID string, stopID domain.StopID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.data[userID]
	for i, id := range ids {
		if id != stopID {
			continue
		}
		next := append(append([]domain.StopID(nil), ids[:i]...), ids[i+1:]...)
		if err := s.persist(userID, next); err != nil {
			return err
		}
		if len(next) == 0 {
			delete(s.data, userID)
		} else {
			s.data[userID] = next
		}
		return nil
	}
	return domain.ErrFavoriteNotFound
}

// persist writes the full mapping, with the user's entries replaced by
// next, to a temp file which is fsynced and renamed over the
// destination. Callers hold s.mu.
func (s *FavoritesStore) persist(userID string, next []domain.StopID) error {
	snapshot := make(map[string][]domain.StopID, len(s.data)+1)
	for id, ids := range s.data {
		snapshot[id] = ids
	}
	if len(next) == 0 {
		delete(snapshot, userID)
	} else {
		snapshot[userID] = next
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure favorites directory: %w", err)
	}

	// Same directory as the destination so the rename stays on one
	// filesystem and therefore atomic.
	tmp, err := os.CreateTemp(dir, "favorites-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace favorites file: %w", err)
	}
	return nil
}
