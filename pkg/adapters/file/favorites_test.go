package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/granalabs/parada/pkg/adapters/file"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFavorites_Contract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	store, err := file.NewFavorites(path)
	require.NoError(t, err)
	ports.RunFavoritesStoreContract(t, store, domain.DefaultFavoritesCapacity)
}

func TestFileFavorites_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "favorites.json")

	store, err := file.NewFavorites(path)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, "42", "LC-12"))
	require.NoError(t, store.Add(ctx, "42", "LC-01"))
	require.NoError(t, store.Add(ctx, "7", "LC-20"))
	require.NoError(t, store.Remove(ctx, "7", "LC-20"))

	reopened, err := file.NewFavorites(path)
	require.NoError(t, err)

	favs, err := reopened.List(ctx, "42")
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, domain.StopID("LC-12"), favs[0].StopID)
	assert.Equal(t, domain.StopID("LC-01"), favs[1].StopID)

	empty, err := reopened.List(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileFavorites_MissingFileIsEmpty(t *testing.T) {
	store, err := file.NewFavorites(filepath.Join(t.TempDir(), "nope", "favorites.json"))
	require.NoError(t, err)

	favs, err := store.List(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestFileFavorites_CorruptFileFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := file.NewFavorites(path)
	assert.Error(t, err)
}
