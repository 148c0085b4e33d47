package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granalabs/parada/pkg/domain"
)

func TestBuild_MainMenu(t *testing.T) {
	menu := Build(ModeMain, Input{HasFavorites: true})

	require.Len(t, menu.Rows, 2)
	require.Len(t, menu.Rows[0], 2)
	assert.Equal(t, "🔍 Ver paradas", menu.Rows[0][0].Label)
	assert.Equal(t, "search", menu.Rows[0][0].Data)
	assert.Equal(t, "⭐ Favoritas", menu.Rows[0][1].Label)
	assert.Equal(t, "🚆 Ver toda la línea", menu.Rows[1][0].Label)
	assert.Equal(t, "📄 Información", menu.Rows[1][1].Label)
}

func TestBuild_MainMenuEmptyFavoritesLabel(t *testing.T) {
	menu := Build(ModeMain, Input{HasFavorites: false})
	assert.Equal(t, "⭐ Favoritas (vacío)", menu.Rows[0][1].Label)
	assert.Equal(t, "favs", menu.Rows[0][1].Data, "label changes, callback does not")
}

func TestBuild_FavoritesRows(t *testing.T) {
	menu := Build(ModeFavorites, Input{Favorites: []domain.Stop{
		{ID: "EST", Name: "Estación de Autobuses"},
		{ID: "ALB", Name: "Albolote"},
	}})

	require.Len(t, menu.Rows, 2)
	assert.Equal(t, "🚉 Estación de Autobuses", menu.Rows[0][0].Label)
	assert.Equal(t, "view:EST", menu.Rows[0][0].Data)
	assert.Equal(t, "❌ Eliminar", menu.Rows[0][1].Label)
	assert.Equal(t, "del:EST", menu.Rows[0][1].Data)
	assert.Equal(t, "view:ALB", menu.Rows[1][0].Data)
}

func TestBuild_FavoritesEmptyFallsBackToSearch(t *testing.T) {
	menu := Build(ModeFavorites, Input{})
	require.Len(t, menu.Rows, 1)
	require.Len(t, menu.Rows[0], 1)
	assert.Equal(t, "search", menu.Rows[0][0].Data)
}

func TestBuild_PickerPairsStops(t *testing.T) {
	menu := Build(ModeStopPicker, Input{Stops: []domain.Stop{
		{ID: "A", Name: "Alfa"},
		{ID: "B", Name: "Beta"},
		{ID: "C", Name: "Gamma"},
	}})

	require.Len(t, menu.Rows, 2)
	require.Len(t, menu.Rows[0], 2)
	require.Len(t, menu.Rows[1], 1, "odd stop ends up alone on the last row")
	assert.Equal(t, "view:A", menu.Rows[0][0].Data)
	assert.Equal(t, "view:B", menu.Rows[0][1].Data)
	assert.Equal(t, "Gamma", menu.Rows[1][0].Label)
}

func TestBuild_ScheduleToggle(t *testing.T) {
	current := domain.Stop{ID: "EST", Name: "Estación de Autobuses"}

	menu := Build(ModeSchedule, Input{Current: current})
	require.Len(t, menu.Rows, 3)
	assert.Equal(t, "➕ Añadir favorita", menu.Rows[0][0].Label)
	assert.Equal(t, "add:EST", menu.Rows[0][0].Data)
	assert.Equal(t, "🔄 Actualizar", menu.Rows[1][0].Label)
	assert.Equal(t, "view:EST", menu.Rows[1][0].Data)
	assert.Equal(t, "⬅️ Menú", menu.Rows[2][0].Label)
	assert.Equal(t, "menu", menu.Rows[2][0].Data)

	menu = Build(ModeSchedule, Input{Current: current, IsFavorite: true})
	assert.Equal(t, "⭐ Quitar favorita", menu.Rows[0][0].Label)
	assert.Equal(t, "del:EST", menu.Rows[0][0].Data)
}

func TestBuild_LineBoardColumns(t *testing.T) {
	board := []domain.StopArrivals{
		{
			Stop: domain.Stop{ID: "ALB", Name: "Albolote"},
			Departures: []domain.Departure{
				{Destination: domain.TerminusArmilla, Minutes: 2},
				{Destination: domain.TerminusAlbolote, Minutes: 6},
			},
		},
		{
			Stop:       domain.Stop{ID: "MID", Name: "Recogidas"},
			Departures: nil,
		},
		{
			Stop: domain.Stop{ID: "ARM", Name: "Armilla"},
			Departures: []domain.Departure{
				{Destination: domain.TerminusAlbolote, Minutes: 4},
			},
		},
	}

	menu := Build(ModeLineBoard, Input{Board: board})
	require.Len(t, menu.Rows, 3)

	// Left column walks the line towards Armilla, right column is the
	// same line reversed.
	assert.Equal(t, "🚇 Albolote (2m)", menu.Rows[0][0].Label)
	assert.Equal(t, "view:ALB", menu.Rows[0][0].Data)
	assert.Equal(t, "Armilla (4m)", menu.Rows[0][1].Label)
	assert.Equal(t, "view:ARM", menu.Rows[0][1].Data)

	assert.Equal(t, "Recogidas (—)", menu.Rows[1][0].Label, "no train towards Armilla")
	assert.Equal(t, "Recogidas (—)", menu.Rows[1][1].Label)

	assert.Equal(t, "Armilla (—)", menu.Rows[2][0].Label)
	assert.Equal(t, "Albolote (6m)", menu.Rows[2][1].Label)
}

func TestBuild_IsDeterministic(t *testing.T) {
	in := Input{
		HasFavorites: true,
		Current:      domain.Stop{ID: "EST", Name: "Estación de Autobuses"},
		Favorites: []domain.Stop{
			{ID: "EST", Name: "Estación de Autobuses"},
			{ID: "REC", Name: "Recogidas"},
		},
		Stops: []domain.Stop{
			{ID: "ALB", Name: "Albolote"},
			{ID: "ARM", Name: "Armilla"},
		},
	}

	for _, mode := range []Mode{ModeMain, ModeFavorites, ModeStopPicker, ModeSchedule} {
		assert.Equal(t, Build(mode, in), Build(mode, in), "mode %s", mode)
	}
}

func TestBuild_UnknownModeIsEmpty(t *testing.T) {
	menu := Build(Mode("bogus"), Input{})
	assert.Empty(t, menu.Rows)
}
