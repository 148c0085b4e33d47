package parada_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granalabs/parada"
	"github.com/granalabs/parada/pkg/adapters/memory"
	"github.com/granalabs/parada/pkg/domain"
)

func TestNew_RequiresBaseURLOrFeed(t *testing.T) {
	_, err := parada.New("")
	require.Error(t, err)

	bot, err := parada.New("", parada.WithFeed(stubFeed{}))
	require.NoError(t, err)
	require.NotNil(t, bot)
}

// End to end over the wire: default movgr client against a fake feed
// server, through the gateway and engine, out as a reply.
func TestBot_Integration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/metro/paradas":
			w.Write([]byte(`[{"id":"LC-01","nombre":"Albolote"},{"id":"LC-12","nombre":"Recogidas"}]`))
		case "/metro/llegadas/LC-12":
			w.Write([]byte(`{"proximos":[{"minutos":3,"direccion":"Armilla"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	bot, err := parada.New(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "u1"

	reply, err := bot.Handle(ctx, domain.CommandEvent(userID, domain.CommandStart))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "¡Hola!")
	require.NotNil(t, reply.Keyboard)

	_, err = bot.Handle(ctx, domain.CommandEvent(userID, domain.CommandSearch))
	require.NoError(t, err)

	reply, err = bot.Handle(ctx, domain.TextEvent(userID, "recogidas"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Recogidas")
	assert.Contains(t, reply.Text, "En 3 min → Armilla")
}

func TestBot_InjectedStoresAreUsed(t *testing.T) {
	favorites := memory.NewFavorites(memory.WithCapacity(2))
	bot, err := parada.New("",
		parada.WithFeed(stubFeed{}),
		parada.WithFavorites(favorites),
		parada.WithCapacity(2),
	)
	require.NoError(t, err)
	assert.Same(t, favorites, bot.Favorites())

	ctx := context.Background()
	reply, err := bot.Handle(ctx, domain.ButtonEvent("u1", "add:LC-12"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Añadida")

	favs, err := favorites.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, domain.StopID("LC-12"), favs[0].StopID)
}

func TestRunner_Conversation(t *testing.T) {
	bot, err := parada.New("", parada.WithFeed(stubFeed{}))
	require.NoError(t, err)

	// Option 4 of the main menu is the info entry; then quit.
	input := strings.NewReader("4\nexit\n")
	var output strings.Builder

	runner := parada.NewRunner()
	runner.Input = input
	runner.Output = &output
	runner.UserID = "repl"

	require.NoError(t, runner.Run(bot))

	got := output.String()
	assert.Contains(t, got, "¡Hola!")
	assert.Contains(t, got, "1) 🔍 Ver paradas")
	assert.Contains(t, got, "4) 📄 Información")
	assert.Contains(t, got, "Información del bot")
	assert.Contains(t, got, "¡Hasta pronto!")
}

func TestRunner_RendererAndCommands(t *testing.T) {
	bot, err := parada.New("", parada.WithFeed(stubFeed{}))
	require.NoError(t, err)

	input := strings.NewReader("/buscar\nrecog\nquit\n")
	var output strings.Builder

	runner := parada.NewRunner()
	runner.Input = input
	runner.Output = &output
	runner.Renderer = func(s string) (string, error) {
		return strings.ToUpper(s), nil
	}

	require.NoError(t, runner.Run(bot))

	got := output.String()
	// Rendered text is transformed; button labels are not.
	assert.Contains(t, got, "RECOGIDAS")
	assert.Contains(t, got, "EN 2 MIN")
	assert.Contains(t, got, "🔄 Actualizar")
}

func TestRunner_RequiresIO(t *testing.T) {
	bot, err := parada.New("", parada.WithFeed(stubFeed{}))
	require.NoError(t, err)

	runner := parada.NewRunner()
	require.Error(t, runner.Run(bot))

	runner.Input = strings.NewReader("")
	require.Error(t, runner.Run(bot))

	runner.Output = &strings.Builder{}
	require.NoError(t, runner.Run(bot), "EOF exits cleanly")
}
