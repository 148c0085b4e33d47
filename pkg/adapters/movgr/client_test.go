package movgr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granalabs/parada/pkg/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func TestClient_Stops(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metro/paradas", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "ALB", "nombre": "Albolote"},
			{"id": "JDO", "nombre": "Juncaril"},
			{"id": "ARM", "nombre": "Armilla"}
		]`))
	})

	stops, err := client.Stops(context.Background())
	require.NoError(t, err)
	require.Len(t, stops, 3)
	assert.Equal(t, domain.Stop{ID: "ALB", Name: "Albolote"}, stops[0])
	assert.Equal(t, domain.Stop{ID: "ARM", Name: "Armilla"}, stops[2])
}

func TestClient_Arrivals(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metro/llegadas/EST", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"proximos": [
			{"minutos": 2, "direccion": "Armilla"},
			{"minutos": 7, "direccion": "Albolote"}
		]}`))
	})

	deps, err := client.Arrivals(context.Background(), "EST")
	require.NoError(t, err)
	require.Len(t, deps, 2)

	assert.Equal(t, domain.StopID("EST"), deps[0].StopID)
	assert.Equal(t, "1", deps[0].Line)
	assert.Equal(t, "Armilla", deps[0].Destination)
	assert.Equal(t, 2, deps[0].Minutes)
	assert.False(t, deps[0].FetchedAt.IsZero())
	assert.Equal(t, 7, deps[1].Minutes)
}

func TestClient_Arrivals_NoUpcoming(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"proximos": []}`))
	})

	deps, err := client.Arrivals(context.Background(), "EST")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestClient_AllArrivals(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metro/llegadas", r.URL.Path)
		w.Write([]byte(`[
			{"parada": {"id": "ALB", "nombre": "Albolote"}, "proximos": [{"minutos": 1, "direccion": "Armilla"}]},
			{"parada": {"id": "ARM", "nombre": "Armilla"}, "proximos": []}
		]`))
	})

	all, err := client.AllArrivals(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, domain.Stop{ID: "ALB", Name: "Albolote"}, all[0].Stop)
	require.Len(t, all[0].Departures, 1)
	assert.Equal(t, domain.StopID("ALB"), all[0].Departures[0].StopID)
	assert.Empty(t, all[1].Departures)
}

func TestClient_UnknownStopIs404(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.Arrivals(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownStop)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Arrivals(context.Background(), "EST")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_UndecodableBodyIsMalformed(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.Arrivals(context.Background(), "EST")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(url)
	_, err := client.Stops(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Stops(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestClient_DefaultBaseURL(t *testing.T) {
	client := New("")
	assert.Equal(t, DefaultBaseURL, client.baseURL)

	client = New("http://example.test/")
	assert.Equal(t, "http://example.test", client.baseURL)
}
