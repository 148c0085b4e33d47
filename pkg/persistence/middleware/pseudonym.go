package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
)

// Pseudonym derives the stable store key for a user ID under the given
// secret: hex-encoded HMAC-SHA256. The mapping is one-way; handy for
// locating a user's keys in Redis or on disk.
func Pseudonym(secret []byte, userID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewSessionPseudonymizer returns middleware that replaces user IDs
// with pseudonyms before they reach the wrapped store, so chat IDs
// never land in Redis or on disk in the clear. Load restores the raw
// ID on the way out; List reports pseudonyms, since the mapping back
// is one-way.
func NewSessionPseudonymizer(secret []byte) SessionMiddleware {
	if len(secret) == 0 {
		panic("pseudonymizer secret cannot be empty")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &sessionPseudonymizer{next: next, secret: secret}
	}
}

type sessionPseudonymizer struct {
	next   ports.SessionStore
	secret []byte
}

func (m *sessionPseudonymizer) Save(ctx context.Context, userID string, sess *domain.Session) error {
	// The ID also sits inside the session payload; scrub both.
	masked := sess.Clone()
	masked.UserID = Pseudonym(m.secret, userID)
	return m.next.Save(ctx, masked.UserID, masked)
}

func (m *sessionPseudonymizer) Load(ctx context.Context, userID string) (*domain.Session, error) {
	sess, err := m.next.Load(ctx, Pseudonym(m.secret, userID))
	if err != nil {
		return nil, err
	}
	sess.UserID = userID
	return sess, nil
}

func (m *sessionPseudonymizer) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, Pseudonym(m.secret, userID))
}

func (m *sessionPseudonymizer) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// NewFavoritesPseudonymizer is the favorites-side counterpart of
// NewSessionPseudonymizer. List restores the raw user ID on the
// returned entries, so callers never see the pseudonyms.
func NewFavoritesPseudonymizer(secret []byte) FavoritesMiddleware {
	if len(secret) == 0 {
		panic("pseudonymizer secret cannot be empty")
	}
	return func(next ports.FavoritesStore) ports.FavoritesStore {
		return &favoritesPseudonymizer{next: next, secret: secret}
	}
}

type favoritesPseudonymizer struct {
	next   ports.FavoritesStore
	secret []byte
}

func (m *favoritesPseudonymizer) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	favs, err := m.next.List(ctx, Pseudonym(m.secret, userID))
	if err != nil {
		return nil, err
	}
	for i := range favs {
		favs[i].UserID = userID
	}
	return favs, nil
}

func (m *favoritesPseudonymizer) Add(ctx context.Context, userID string, stopID domain.StopID) error {
	return m.next.Add(ctx, Pseudonym(m.secret, userID), stopID)
}

func (m *favoritesPseudonymizer) Remove(ctx context.Context, userID string, stopID domain.StopID) error {
	return m.next.Remove(ctx, Pseudonym(m.secret, userID), stopID)
}
