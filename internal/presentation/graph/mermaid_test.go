package graph

import (
	"strings"
	"testing"

	"github.com/granalabs/parada/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid_RendersAllStates(t *testing.T) {
	out := GenerateMermaid(DialogTransitions(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `idle(("idle"))`, "idle is the entry circle")
	assert.Contains(t, out, `awaiting_stop_query[/"awaiting_stop_query"/]`, "input state is a parallelogram")
	assert.Contains(t, out, `showing_schedule["showing_schedule"]`)
	assert.Contains(t, out, `managing_favorites["managing_favorites"]`)
}

func TestGenerateMermaid_RendersLabeledEdges(t *testing.T) {
	out := GenerateMermaid(DialogTransitions(), nil)

	assert.Contains(t, out, `idle -- "🔍 Ver paradas" --> awaiting_stop_query`)
	assert.Contains(t, out, `awaiting_stop_query -- "parada elegida" --> showing_schedule`)
	assert.Contains(t, out, `managing_favorites -- "última favorita quitada" --> idle`)
	assert.Contains(t, out, "%% /start resets to idle from any state")
}

func TestGenerateMermaid_EscapesQuotesInTriggers(t *testing.T) {
	out := GenerateMermaid([]Transition{
		{domain.StateIdle, domain.StateIdle, `say "hola"`},
	}, nil)

	assert.Contains(t, out, `idle -- "say 'hola'" --> idle`)
	assert.NotContains(t, out, `"say "hola""`)
}

func TestGenerateMermaid_OverlayHighlightsCurrent(t *testing.T) {
	out := GenerateMermaid(DialogTransitions(), &Overlay{Current: domain.StateShowingSchedule})

	assert.Contains(t, out, "classDef current")
	assert.Contains(t, out, "class showing_schedule current;")

	bare := GenerateMermaid(DialogTransitions(), nil)
	assert.NotContains(t, bare, "classDef current")
}
