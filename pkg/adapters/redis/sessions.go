package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/granalabs/parada/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// SessionStore implements ports.SessionStore using Redis. Sessions are
// stored as JSON values plus a ZSET index for List. The optional TTL is
// typically set to the dialog idle window, so Redis expires what the
// lazy idle reset would discard anyway.
type SessionStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// SessionOption configures the store.
type SessionOption func(*SessionStore)

// WithTTL sets the expiration for stored sessions.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) {
		s.ttl = ttl
	}
}

// WithSessionPrefix sets the key prefix for sessions.
func WithSessionPrefix(prefix string) SessionOption {
	return func(s *SessionStore) {
		s.prefix = prefix
	}
}

// NewSessions creates a new Redis session store with options.
func NewSessions(address, password string, db int, opts ...SessionOption) *SessionStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewSessionsFromClient(client, opts...)
}

// NewSessionsFromClient creates a new Redis session store from an
// existing client.
func NewSessionsFromClient(client *backend.Client, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		client: client,
		prefix: "parada:session:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(userID string) string {
	return s.prefix + userID
}

func (s *SessionStore) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session to Redis.
func (s *SessionStore) Save(ctx context.Context, userID string, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Index score mirrors the key expiry so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, far enough to mean "never"
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(userID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: userID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves the session from Redis.
func (s *SessionStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(userID))
	pipe.ZRem(ctx, s.indexKey(), userID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the user IDs with a stored session, pruning index
// entries whose keys have expired.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
