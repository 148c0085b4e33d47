package redis

import (
	"context"
	"fmt"

	"github.com/granalabs/parada/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Each user's favorites live in one Redis list, appended on Add so the
// list keeps insertion order. The uniqueness and capacity checks run
// inside a Lua script: Redis executes it atomically, so two racing Adds
// cannot both pass the count check.
var addScript = backend.NewScript(`
local items = redis.call("LRANGE", KEYS[1], 0, -1)
for _, v in ipairs(items) do
	if v == ARGV[1] then
		return "exists"
	end
end
if #items >= tonumber(ARGV[2]) then
	return "full"
end
redis.call("RPUSH", KEYS[1], ARGV[1])
return "ok"
`)

// FavoritesStore implements ports.FavoritesStore using Redis.
type FavoritesStore struct {
	client   *backend.Client
	prefix   string
	capacity int
}

// FavoritesOption configures the store.
type FavoritesOption func(*FavoritesStore)

// WithFavoritesPrefix sets the key prefix for favorites lists.
func WithFavoritesPrefix(prefix string) FavoritesOption {
	return func(s *FavoritesStore) {
		s.prefix = prefix
	}
}

// WithCapacity overrides the per-user favorites bound.
func WithCapacity(n int) FavoritesOption {
	return func(s *FavoritesStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewFavorites creates a new Redis favorites store with options.
func NewFavorites(address, password string, db int, opts ...FavoritesOption) *FavoritesStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFavoritesFromClient(client, opts...)
}

// NewFavoritesFromClient creates a new Redis favorites store from an
// existing client.
func NewFavoritesFromClient(client *backend.Client, opts ...FavoritesOption) *FavoritesStore {
	s := &FavoritesStore{
		client:   client,
		prefix:   "parada:favorites:",
		capacity: domain.DefaultFavoritesCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FavoritesStore) key(userID string) string {
	return s.prefix + userID
}

// List returns the user's favorites in insertion order.
func (s *FavoritesStore) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	ids, err := s.client.LRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	favs := make([]domain.Favorite, 0, len(ids))
	for _, id := range ids {
		favs = append(favs, domain.Favorite{UserID: userID, StopID: domain.StopID(id)})
	}
	return favs, nil
}

// Add appends the stop to the user's favorites atomically.
func (s *FavoritesStore) Add(ctx context.Context, userID string, stopID domain.StopID) error {
	res, err := addScript.Run(ctx, s.client, []string{s.key(userID)}, string(stopID), s.capacity).Text()
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	switch res {
	case "ok":
		return nil
	case "exists":
		return domain.ErrAlreadyFavorite
	case "full":
		return domain.ErrCapacityExceeded
	default:
		return fmt.Errorf("unexpected add script result %q", res)
	}
}

// Remove deletes the stop from the user's favorites. LREM is atomic and
// removes at most one occurrence, which Add's uniqueness check already
// guarantees is all there can be.
func (s *FavoritesStore) Remove(ctx context.Context, userID string, stopID domain.StopID) error {
	removed, err := s.client.LRem(ctx, s.key(userID), 1, string(stopID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if removed == 0 {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

// Close closes the redis client.
func (s *FavoritesStore) Close() error {
	return s.client.Close()
}
