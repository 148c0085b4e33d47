// Package keyboard builds the inline menus of the bot. Builders are
// pure: same input, same menu, no I/O. Labels are Spanish, matching
// the bot's voice; callbacks use the domain payload encoding.
package keyboard

import (
	"fmt"

	"github.com/granalabs/parada/pkg/domain"
)

// Mode selects which menu to build.
type Mode string

const (
	// ModeMain is the persistent entry menu.
	ModeMain Mode = "main"
	// ModeFavorites lists the user's favorites with open and remove.
	ModeFavorites Mode = "favorites"
	// ModeStopPicker offers matched stops, two per row.
	ModeStopPicker Mode = "stop_picker"
	// ModeSchedule accompanies a departures view: favorite toggle,
	// refresh, back to menu.
	ModeSchedule Mode = "schedule"
	// ModeLineBoard renders the whole line in two direction columns.
	ModeLineBoard Mode = "line_board"
)

// imminentMinutes marks board entries with a train about to arrive.
const imminentMinutes = 3

// Input carries the data a mode may need. Only the fields the chosen
// mode reads are consulted.
type Input struct {
	// HasFavorites switches the main menu favorites label.
	HasFavorites bool
	// Favorites, resolved to names, populate ModeFavorites rows.
	Favorites []domain.Stop
	// Stops populate ModeStopPicker.
	Stops []domain.Stop
	// Current and IsFavorite drive the ModeSchedule toggle.
	Current    domain.Stop
	IsFavorite bool
	// Board populates ModeLineBoard, in line order.
	Board []domain.StopArrivals
}

// Build constructs the menu for the given mode.
func Build(mode Mode, in Input) domain.Menu {
	switch mode {
	case ModeMain:
		return mainMenu(in)
	case ModeFavorites:
		return favoritesMenu(in)
	case ModeStopPicker:
		return pickerMenu(in)
	case ModeSchedule:
		return scheduleMenu(in)
	case ModeLineBoard:
		return boardMenu(in)
	default:
		return domain.Menu{}
	}
}

func mainMenu(in Input) domain.Menu {
	favLabel := "⭐ Favoritas"
	if !in.HasFavorites {
		favLabel = "⭐ Favoritas (vacío)"
	}
	return domain.Menu{Rows: []domain.MenuRow{
		{
			domain.Btn("🔍 Ver paradas", domain.Button{Op: domain.OpSearch}),
			domain.Btn(favLabel, domain.Button{Op: domain.OpFavorites}),
		},
		{
			domain.Btn("🚆 Ver toda la línea", domain.Button{Op: domain.OpLine}),
			domain.Btn("📄 Información", domain.Button{Op: domain.OpInfo}),
		},
	}}
}

func favoritesMenu(in Input) domain.Menu {
	if len(in.Favorites) == 0 {
		return domain.Menu{Rows: []domain.MenuRow{{
			domain.Btn("🔍 Ver paradas", domain.Button{Op: domain.OpSearch}),
		}}}
	}
	rows := make([]domain.MenuRow, 0, len(in.Favorites))
	for _, stop := range in.Favorites {
		rows = append(rows, domain.MenuRow{
			domain.Btn("🚉 "+stop.Name, domain.Button{Op: domain.OpView, StopID: stop.ID}),
			domain.Btn("❌ Eliminar", domain.Button{Op: domain.OpRemove, StopID: stop.ID}),
		})
	}
	return domain.Menu{Rows: rows}
}

func pickerMenu(in Input) domain.Menu {
	rows := make([]domain.MenuRow, 0, (len(in.Stops)+1)/2)
	for i := 0; i < len(in.Stops); i += 2 {
		row := domain.MenuRow{
			domain.Btn(in.Stops[i].Name, domain.Button{Op: domain.OpView, StopID: in.Stops[i].ID}),
		}
		if i+1 < len(in.Stops) {
			row = append(row, domain.Btn(in.Stops[i+1].Name, domain.Button{Op: domain.OpView, StopID: in.Stops[i+1].ID}))
		}
		rows = append(rows, row)
	}
	return domain.Menu{Rows: rows}
}

func scheduleMenu(in Input) domain.Menu {
	toggle := domain.Btn("➕ Añadir favorita", domain.Button{Op: domain.OpAdd, StopID: in.Current.ID})
	if in.IsFavorite {
		toggle = domain.Btn("⭐ Quitar favorita", domain.Button{Op: domain.OpRemove, StopID: in.Current.ID})
	}
	return domain.Menu{Rows: []domain.MenuRow{
		{toggle},
		{domain.Btn("🔄 Actualizar", domain.Button{Op: domain.OpView, StopID: in.Current.ID})},
		{domain.Btn("⬅️ Menú", domain.Button{Op: domain.OpMenu})},
	}}
}

// boardMenu pairs the line with itself reversed: the left column reads
// towards Armilla top-down, the right towards Albolote. Each label
// shows the next departure in that direction.
func boardMenu(in Input) domain.Menu {
	n := len(in.Board)
	rows := make([]domain.MenuRow, 0, n)
	for i := 0; i < n; i++ {
		left := in.Board[i]
		right := in.Board[n-1-i]
		rows = append(rows, domain.MenuRow{
			domain.Btn(boardLabel(left, domain.TerminusArmilla), domain.Button{Op: domain.OpView, StopID: left.Stop.ID}),
			domain.Btn(boardLabel(right, domain.TerminusAlbolote), domain.Button{Op: domain.OpView, StopID: right.Stop.ID}),
		})
	}
	return domain.Menu{Rows: rows}
}

func boardLabel(sa domain.StopArrivals, terminus string) string {
	next, ok := domain.NextTowards(sa.Departures, terminus)
	if !ok {
		return fmt.Sprintf("%s (—)", sa.Stop.Name)
	}
	marker := ""
	if next.Minutes < imminentMinutes {
		marker = "🚇 "
	}
	return fmt.Sprintf("%s%s (%dm)", marker, sa.Stop.Name, next.Minutes)
}
