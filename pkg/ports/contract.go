package ports

import (
	"context"
	"testing"
	"time"

	"github.com/granalabs/parada/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFavoritesStoreContract verifies that a FavoritesStore implementation
// adheres to the interface contract: insertion order, uniqueness, the
// capacity bound, and read-your-writes after every mutation. The store
// must have been built with the given capacity.
func RunFavoritesStoreContract(t *testing.T, store FavoritesStore, capacity int) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405.000")

	stopIDs := func(favs []domain.Favorite) []domain.StopID {
		ids := make([]domain.StopID, 0, len(favs))
		for _, f := range favs {
			ids = append(ids, f.StopID)
		}
		return ids
	}

	t.Run("List Empty", func(t *testing.T) {
		favs, err := store.List(ctx, userID+"-nobody")
		require.NoError(t, err, "listing an unknown user must not fail")
		assert.Empty(t, favs)
	})

	t.Run("Add Preserves Insertion Order", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, userID, "LC-03"))
		require.NoError(t, store.Add(ctx, userID, "LC-01"))
		require.NoError(t, store.Add(ctx, userID, "LC-02"))

		favs, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []domain.StopID{"LC-03", "LC-01", "LC-02"}, stopIDs(favs))
		for _, f := range favs {
			assert.Equal(t, userID, f.UserID)
		}
	})

	t.Run("Add Duplicate", func(t *testing.T) {
		err := store.Add(ctx, userID, "LC-01")
		require.ErrorIs(t, err, domain.ErrAlreadyFavorite)

		favs, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []domain.StopID{"LC-03", "LC-01", "LC-02"}, stopIDs(favs), "failed Add must not change the list")
	})

	t.Run("Capacity Bound", func(t *testing.T) {
		full := userID + "-full"
		want := make([]domain.StopID, 0, capacity)
		for i := 0; i < capacity; i++ {
			id := domain.StopID(rune('A'+i)) + "-stop"
			require.NoError(t, store.Add(ctx, full, id))
			want = append(want, id)
		}

		err := store.Add(ctx, full, "one-too-many")
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)

		favs, err := store.List(ctx, full)
		require.NoError(t, err)
		assert.Equal(t, want, stopIDs(favs), "rejected Add must leave the original entries in order")
	})

	t.Run("Remove Preserves Remaining Order", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, userID, "LC-01"))

		favs, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []domain.StopID{"LC-03", "LC-02"}, stopIDs(favs))
	})

	t.Run("Remove Twice", func(t *testing.T) {
		err := store.Remove(ctx, userID, "LC-01")
		require.ErrorIs(t, err, domain.ErrFavoriteNotFound)
		err = store.Remove(ctx, userID, "LC-01")
		require.ErrorIs(t, err, domain.ErrFavoriteNotFound, "removing twice must keep failing the same way")

		favs, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []domain.StopID{"LC-03", "LC-02"}, stopIDs(favs), "failed Remove must have no side effects")
	})

	t.Run("Add Then Remove Restores Prior Set", func(t *testing.T) {
		before, err := store.List(ctx, userID)
		require.NoError(t, err)

		require.NoError(t, store.Add(ctx, userID, "LC-99"))
		require.NoError(t, store.Remove(ctx, userID, "LC-99"))

		after, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Users Are Isolated", func(t *testing.T) {
		other := userID + "-other"
		require.NoError(t, store.Add(ctx, other, "LC-03"))
		require.NoError(t, store.Remove(ctx, other, "LC-03"))

		favs, err := store.List(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []domain.StopID{"LC-03", "LC-02"}, stopIDs(favs))
	})
}

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract, including copy isolation between
// the stored session and what callers hold.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-session-" + time.Now().Format("20060102150405.000")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(userID)
		sess.State = domain.StateShowingSchedule
		sess.CurrentStop = "LC-12"

		require.NoError(t, store.Save(ctx, userID, sess))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, domain.StateShowingSchedule, loaded.State)
		assert.Equal(t, domain.StopID("LC-12"), loaded.CurrentStop)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Copies Are Isolated", func(t *testing.T) {
		sess := domain.NewSession(userID)
		require.NoError(t, store.Save(ctx, userID, sess))

		// Mutating what we saved or loaded must not leak into the store.
		sess.State = domain.StateManagingFavorites
		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateIdle, loaded.State)

		loaded.CurrentStop = "LC-01"
		again, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, again.CurrentStop)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID)))
		require.NoError(t, store.Delete(ctx, userID))

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		assert.NoError(t, store.Delete(ctx, userID), "deleting a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
