package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granalabs/parada/pkg/adapters/memory"
	"github.com/granalabs/parada/pkg/domain"
)

type fakeGateway struct {
	stops   []domain.Stop
	deps    map[domain.StopID][]domain.Departure
	depsErr error
}

func (f *fakeGateway) Departures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
	if f.depsErr != nil {
		return nil, f.depsErr
	}
	deps, ok := f.deps[stopID]
	if !ok {
		return nil, domain.ErrUnknownStop
	}
	return deps, nil
}

func (f *fakeGateway) SearchStops(ctx context.Context, query string) ([]domain.Stop, error) {
	if query == "" {
		return f.stops, nil
	}
	var out []domain.Stop
	for _, s := range f.stops {
		if domain.Fold(s.Name) == domain.Fold(query) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeGateway) Stops(ctx context.Context) ([]domain.Stop, error) {
	return f.stops, nil
}

func (f *fakeGateway) Stop(ctx context.Context, stopID domain.StopID) (domain.Stop, error) {
	for _, s := range f.stops {
		if s.ID == stopID {
			return s, nil
		}
	}
	return domain.Stop{}, domain.ErrUnknownStop
}

func (f *fakeGateway) LineBoard(ctx context.Context) ([]domain.StopArrivals, error) {
	out := make([]domain.StopArrivals, 0, len(f.stops))
	for _, s := range f.stops {
		out = append(out, domain.StopArrivals{Stop: s, Departures: f.deps[s.ID]})
	}
	return out, nil
}

func newTestServer() (*Server, *fakeGateway) {
	gw := &fakeGateway{
		stops: []domain.Stop{
			{ID: "LC-01", Name: "Albolote"},
			{ID: "LC-12", Name: "Recogidas"},
		},
		deps: map[domain.StopID][]domain.Departure{
			"LC-12": {{StopID: "LC-12", Line: "1", Destination: "Armilla", Minutes: 4}},
		},
	}
	return NewServer(gw, memory.NewFavorites()), gw
}

func TestHandleNextDepartures(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	resp, err := s.handleNextDepartures(ctx, mcp.CallToolRequest{}, map[string]interface{}{"stop_id": "LC-12"})
	require.NoError(t, err)
	assert.Equal(t, "Recogidas", resp.Stop.Name)
	require.Len(t, resp.Departures, 1)
	assert.Equal(t, 4, resp.Departures[0].Minutes)

	_, err = s.handleNextDepartures(ctx, mcp.CallToolRequest{}, map[string]interface{}{"stop_id": "NOPE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stop")

	_, err = s.handleNextDepartures(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	require.Error(t, err)
}

func TestHandleSearchStops(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	resp, err := s.handleSearchStops(ctx, mcp.CallToolRequest{}, map[string]interface{}{"query": "RECOGIDAS"})
	require.NoError(t, err)
	require.Len(t, resp.Stops, 1)
	assert.Equal(t, domain.StopID("LC-12"), resp.Stops[0].ID)

	resp, err = s.handleSearchStops(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, resp.Stops, 2, "empty query lists the catalog")
}

func TestHandleLineBoard(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.handleLineBoard(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Stops, 2)
	assert.Equal(t, "Albolote", resp.Stops[0].Stop.Name)
}

func TestFavoriteTools(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()
	args := map[string]interface{}{"user_id": "u1", "stop_id": "LC-12"}

	add, err := s.handleAddFavorite(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, "added", add.Status)

	add, err = s.handleAddFavorite(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, "already_favorite", add.Status)

	list, err := s.handleListFavorites(ctx, mcp.CallToolRequest{}, map[string]interface{}{"user_id": "u1"})
	require.NoError(t, err)
	require.Len(t, list.Stops, 1)
	assert.Equal(t, "Recogidas", list.Stops[0].Name, "IDs resolve to catalog names")

	rm, err := s.handleRemoveFavorite(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, "removed", rm.Status)

	rm, err = s.handleRemoveFavorite(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.Equal(t, "not_found", rm.Status)
}

func TestFavoriteTools_RequireArgs(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	_, err := s.handleAddFavorite(ctx, mcp.CallToolRequest{}, map[string]interface{}{"user_id": "u1"})
	require.Error(t, err)

	_, err = s.handleListFavorites(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	require.Error(t, err)
}
