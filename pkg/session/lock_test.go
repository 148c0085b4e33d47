package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/granalabs/parada/pkg/adapters/memory"
	"github.com/granalabs/parada/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewSessions())
	ctx := context.Background()
	count := 10000

	// 1. Touch and delete many sessions
	for i := 0; i < count; i++ {
		uid := fmt.Sprintf("user-%d", i)
		_ = mgr.WithSession(ctx, uid, func(ctx context.Context, s *domain.Session) error {
			return nil
		})
		_ = mgr.Delete(ctx, uid)
	}

	// 2. Count locks remaining in map
	lockCount := len(mgr.locks)

	// 3. Assert Leak
	// If cleaned up properly, count should be near 0.
	t.Logf("Sessions Touched: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
