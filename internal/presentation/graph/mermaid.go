// Package graph renders the conversation state machine as a Mermaid
// flowchart, for docs and for inspecting where a user currently sits.
package graph

import (
	"fmt"
	"strings"

	"github.com/granalabs/parada/pkg/domain"
)

// Transition is one labeled edge of the dialog map.
type Transition struct {
	From    domain.DialogState
	To      domain.DialogState
	Trigger string
}

// Overlay contains dynamic state to visualize on the graph.
type Overlay struct {
	Current domain.DialogState
}

// dialogStates lists every state in rendering order.
var dialogStates = []domain.DialogState{
	domain.StateIdle,
	domain.StateAwaitingStopQuery,
	domain.StateShowingSchedule,
	domain.StateManagingFavorites,
}

// DialogTransitions returns the edges of the dialog as the engine
// drives it. Edge labels name the tap or outcome that causes them.
func DialogTransitions() []Transition {
	return []Transition{
		{domain.StateIdle, domain.StateAwaitingStopQuery, "🔍 Ver paradas"},
		{domain.StateIdle, domain.StateManagingFavorites, "⭐ Favoritas"},
		{domain.StateIdle, domain.StateIdle, "🚆 Línea / 📄 Información"},
		{domain.StateAwaitingStopQuery, domain.StateShowingSchedule, "parada elegida"},
		{domain.StateAwaitingStopQuery, domain.StateAwaitingStopQuery, "varias coincidencias"},
		{domain.StateShowingSchedule, domain.StateShowingSchedule, "🔄 Actualizar / ➕ Añadir"},
		{domain.StateShowingSchedule, domain.StateIdle, "⬅️ Menú"},
		{domain.StateManagingFavorites, domain.StateShowingSchedule, "tap en favorita"},
		{domain.StateManagingFavorites, domain.StateManagingFavorites, "❌ Eliminar"},
		{domain.StateManagingFavorites, domain.StateIdle, "última favorita quitada"},
		{domain.StateManagingFavorites, domain.StateIdle, "⬅️ Menú"},
	}
}

// GenerateMermaid produces a Mermaid flowchart (graph TD) from the
// transitions. It applies semantic styling:
// - Idle (entry point): ((Circle))
// - Awaiting input: [/Parallelogram/]
// - Default: [Rectangle]
// The overlay, if provided, highlights the current state.
func GenerateMermaid(transitions []Transition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, state := range dialogStates {
		opener, closer := "[", "]"
		switch state {
		case domain.StateIdle:
			opener, closer = "((", "))"
		case domain.StateAwaitingStopQuery:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", state, opener, state, closer))
	}

	sb.WriteString("\n    %% /start resets to idle from any state\n")
	for _, t := range transitions {
		// Escape double quotes in trigger labels for Mermaid.
		trigger := strings.ReplaceAll(t.Trigger, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", t.From, trigger, t.To))
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of theme.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", overlay.Current))
	}

	return sb.String()
}
