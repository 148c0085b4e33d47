package engine

import (
	"fmt"

	"github.com/granalabs/parada/pkg/domain"
)

// User-facing copy. The bot speaks Spanish; text uses Telegram-style
// markdown emphasis, which the REPL renderer also understands.
const (
	msgMainMenu = "¿Qué deseas hacer?"
	msgWelcome  = "🚇 ¡Hola! Te cuento cuándo llega el próximo metro de Granada.\n\n¿Qué deseas hacer?"

	msgAskStop      = "Selecciona una parada para ver los próximos trenes, o escríbeme su nombre:"
	msgAskStopAgain = "Escríbeme el nombre de una parada, o elige una del listado."
	msgNoMatches    = "🤷 No encuentro paradas con ese nombre. Prueba con otro."
	msgManyMatches  = "He encontrado varias paradas:"

	msgFavoritesHeader = "⭐ *Tus paradas favoritas:*"
	msgNoFavorites     = "No tienes favoritas aún."
	msgFavAdded        = "✅ Añadida a favoritas."
	msgFavRemoved      = "❌ Eliminada de favoritas."
	msgFavDeleted      = "❌ Favorita eliminada."
	msgFavAlready      = "⭐ Ya estaba en tus favoritas."
	msgFavGone         = "❌ Esa parada ya no estaba en tus favoritas."
	msgFavLimitFmt     = "⚠️ Límite de %d favoritas alcanzado."

	msgFetchError  = "❌ Error al consultar datos."
	msgUnknownStop = "⚠️ No conozco esa parada."
	msgBusy        = "⏳ Un momento, sigo consultando..."
	msgLost        = "No te he entendido. Usa el menú 👇"

	msgInfo = "📄 *Información del bot*\n\n" +
		"🚇 Próximas llegadas del Metro de Granada en tiempo real.\n" +
		"🙏 Gracias a MovGR por la API de datos.\n" +
		"💻 https://github.com/granalabs/parada"

	msgBoardHeader = "🚆 *Estado de la línea*\n\n" +
		"_Izquierda: Hacia Armilla_\n" +
		"_Derecha:  Hacia Albolote_\n" +
		"🚇  antes del nombre si < 3 min | (—) sin tren próximo\n\n" +
		"Pulsa una parada para ver detalles:"

	// unknownStopName labels a schedule whose stop the catalog no
	// longer carries.
	unknownStopName = "Desconocida"
)

// maxDeparturesShown caps the schedule view; the feed can publish more
// but only the next few are actionable.
const maxDeparturesShown = 4

// scheduleText renders the departures view for one stop.
func scheduleText(name string, deps []domain.Departure, isFavorite bool) string {
	var text string
	if len(deps) == 0 {
		text = fmt.Sprintf("🚉 *%s*\n_No hay trenes próximos._", name)
	} else {
		text = fmt.Sprintf("🚉 *%s*", name)
		shown := deps
		if len(shown) > maxDeparturesShown {
			shown = shown[:maxDeparturesShown]
		}
		for _, d := range shown {
			text += fmt.Sprintf("\n• En %d min → %s", d.Minutes, d.Destination)
		}
	}
	if isFavorite {
		text += "\n⭐ Favorita"
	}
	return text
}
