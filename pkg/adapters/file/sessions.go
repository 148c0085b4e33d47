package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/granalabs/parada/pkg/domain"
)

// SessionStore implements ports.SessionStore on the local filesystem,
// one JSON file per user under a base directory. Unlike the favorites
// store, writes are not fsynced: a crash can lose the most recent
// dialog step, which the engine recovers from by treating the user as
// idle.
type SessionStore struct {
	dir string
}

// NewSessions creates a session store rooted at dir. An empty dir
// defaults to ".parada/sessions". The directory is created lazily on
// the first Save.
func NewSessions(dir string) *SessionStore {
	if dir == "" {
		dir = filepath.Join(".parada", "sessions")
	}
	return &SessionStore{dir: dir}
}

// sessionPath maps a user ID to its file, rejecting IDs that would
// escape the base directory.
func (s *SessionStore) sessionPath(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	if userID != filepath.Base(userID) || userID == "." || userID == ".." {
		return "", fmt.Errorf("invalid user ID %q", userID)
	}
	return filepath.Join(s.dir, userID+".json"), nil
}

// Save persists the session as a JSON file.
func (s *SessionStore) Save(ctx context.Context, userID string, sess *domain.Session) error {
	path, err := s.sessionPath(userID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves the session from its JSON file.
func (s *SessionStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	path, err := s.sessionPath(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes the session file. A missing file is not an error.
func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	path, err := s.sessionPath(userID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the user IDs with a stored session.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var users []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return users, nil
}
