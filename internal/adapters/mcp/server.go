// Package mcp exposes the bot's transit lookups and favorites as MCP
// tools, so agent hosts can query departures without driving the
// dialog. Conversation state stays out of this surface on purpose.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/granalabs/parada"
	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
)

// Gateway is the read surface the tools consume. *schedule.Gateway
// implements it.
type Gateway interface {
	Departures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error)
	SearchStops(ctx context.Context, query string) ([]domain.Stop, error)
	Stops(ctx context.Context) ([]domain.Stop, error)
	Stop(ctx context.Context, stopID domain.StopID) (domain.Stop, error)
	LineBoard(ctx context.Context) ([]domain.StopArrivals, error)
}

// DeparturesResponse is the structured output of next_departures.
type DeparturesResponse struct {
	Stop       domain.Stop        `json:"stop" jsonschema_description:"The resolved stop"`
	Departures []domain.Departure `json:"departures" jsonschema_description:"Upcoming departures, soonest first"`
}

// StopsResponse is the structured output of search_stops.
type StopsResponse struct {
	Stops []domain.Stop `json:"stops" jsonschema_description:"Matching stops in line order"`
}

// BoardResponse is the structured output of line_board.
type BoardResponse struct {
	Stops []domain.StopArrivals `json:"stops" jsonschema_description:"Every stop on the line with its upcoming departures"`
}

// FavoritesResponse is the structured output of list_favorites.
type FavoritesResponse struct {
	Stops []domain.Stop `json:"stops" jsonschema_description:"The user's saved stops in insertion order"`
}

// MutationResponse is the structured output of add/remove_favorite.
type MutationResponse struct {
	Status  string `json:"status" jsonschema_description:"added | removed | already_favorite | capacity_exceeded | not_found"`
	Message string `json:"message"`
}

// Server wraps the gateway and favorites store as an MCP Server.
type Server struct {
	gateway   Gateway
	favorites ports.FavoritesStore
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(gateway Gateway, favorites ports.FavoritesStore, opts ...Option) *Server {
	s := &Server{
		gateway:   gateway,
		favorites: favorites,
		mcpServer: server.NewMCPServer("parada-mcp", strings.TrimSpace(parada.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: next_departures
	departuresTool := mcp.NewTool("next_departures",
		mcp.WithDescription("Get the upcoming metro departures at one stop, soonest first."),
		mcp.WithString("stop_id", mcp.Required(), mcp.Description("Stop identifier, e.g. LC-12. Use search_stops to find it.")),
		mcp.WithOutputSchema[DeparturesResponse](),
	)
	s.mcpServer.AddTool(departuresTool, mcp.NewStructuredToolHandler(s.handleNextDepartures))

	// TOOL: search_stops
	searchTool := mcp.NewTool("search_stops",
		mcp.WithDescription("Search metro stops by name, accent- and case-insensitive. Empty query lists the whole line."),
		mcp.WithString("query", mcp.Description("Partial stop name (optional)")),
		mcp.WithOutputSchema[StopsResponse](),
	)
	s.mcpServer.AddTool(searchTool, mcp.NewStructuredToolHandler(s.handleSearchStops))

	// TOOL: line_board
	boardTool := mcp.NewTool("line_board",
		mcp.WithDescription("Get the whole-line arrivals board: every stop with its upcoming departures."),
		mcp.WithOutputSchema[BoardResponse](),
	)
	s.mcpServer.AddTool(boardTool, mcp.NewStructuredToolHandler(s.handleLineBoard))

	// TOOL: list_favorites
	listTool := mcp.NewTool("list_favorites",
		mcp.WithDescription("List a user's favorite stops in insertion order."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identity the favorites belong to")),
		mcp.WithOutputSchema[FavoritesResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListFavorites))

	// TOOL: add_favorite
	addTool := mcp.NewTool("add_favorite",
		mcp.WithDescription("Save a stop to a user's favorites."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identity")),
		mcp.WithString("stop_id", mcp.Required(), mcp.Description("Stop identifier")),
		mcp.WithOutputSchema[MutationResponse](),
	)
	s.mcpServer.AddTool(addTool, mcp.NewStructuredToolHandler(s.handleAddFavorite))

	// TOOL: remove_favorite
	removeTool := mcp.NewTool("remove_favorite",
		mcp.WithDescription("Remove a stop from a user's favorites."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identity")),
		mcp.WithString("stop_id", mcp.Required(), mcp.Description("Stop identifier")),
		mcp.WithOutputSchema[MutationResponse](),
	)
	s.mcpServer.AddTool(removeTool, mcp.NewStructuredToolHandler(s.handleRemoveFavorite))
}

func (s *Server) handleNextDepartures(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DeparturesResponse, error) {
	stopID, _ := args["stop_id"].(string)
	if stopID == "" {
		return DeparturesResponse{}, fmt.Errorf("stop_id is required")
	}

	deps, err := s.gateway.Departures(ctx, domain.StopID(stopID))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStop) {
			return DeparturesResponse{}, fmt.Errorf("unknown stop %q", stopID)
		}
		return DeparturesResponse{}, fmt.Errorf("transit feed unavailable: %w", err)
	}

	stop, err := s.gateway.Stop(ctx, domain.StopID(stopID))
	if err != nil {
		// The departures answered, only the label is missing.
		stop = domain.Stop{ID: domain.StopID(stopID), Name: stopID}
	}

	return DeparturesResponse{Stop: stop, Departures: deps}, nil
}

func (s *Server) handleSearchStops(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StopsResponse, error) {
	query, _ := args["query"].(string)

	stops, err := s.gateway.SearchStops(ctx, query)
	if err != nil {
		return StopsResponse{}, fmt.Errorf("transit feed unavailable: %w", err)
	}
	return StopsResponse{Stops: stops}, nil
}

func (s *Server) handleLineBoard(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (BoardResponse, error) {
	board, err := s.gateway.LineBoard(ctx)
	if err != nil {
		return BoardResponse{}, fmt.Errorf("transit feed unavailable: %w", err)
	}
	return BoardResponse{Stops: board}, nil
}

func (s *Server) handleListFavorites(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FavoritesResponse, error) {
	userID, _ := args["user_id"].(string)
	if userID == "" {
		return FavoritesResponse{}, fmt.Errorf("user_id is required")
	}

	favs, err := s.favorites.List(ctx, userID)
	if err != nil {
		return FavoritesResponse{}, fmt.Errorf("list favorites: %w", err)
	}

	stops := make([]domain.Stop, 0, len(favs))
	for _, f := range favs {
		stop, err := s.gateway.Stop(ctx, f.StopID)
		if err != nil {
			stop = domain.Stop{ID: f.StopID, Name: string(f.StopID)}
		}
		stops = append(stops, stop)
	}
	return FavoritesResponse{Stops: stops}, nil
}

func (s *Server) handleAddFavorite(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	userID, _ := args["user_id"].(string)
	stopID, _ := args["stop_id"].(string)
	if userID == "" || stopID == "" {
		return MutationResponse{}, fmt.Errorf("user_id and stop_id are required")
	}

	err := s.favorites.Add(ctx, userID, domain.StopID(stopID))
	switch {
	case err == nil:
		return MutationResponse{Status: "added", Message: fmt.Sprintf("%s saved for %s", stopID, userID)}, nil
	case errors.Is(err, domain.ErrAlreadyFavorite):
		return MutationResponse{Status: "already_favorite", Message: fmt.Sprintf("%s was already saved", stopID)}, nil
	case errors.Is(err, domain.ErrCapacityExceeded):
		return MutationResponse{Status: "capacity_exceeded", Message: "favorites limit reached"}, nil
	default:
		return MutationResponse{}, fmt.Errorf("add favorite: %w", err)
	}
}

func (s *Server) handleRemoveFavorite(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MutationResponse, error) {
	userID, _ := args["user_id"].(string)
	stopID, _ := args["stop_id"].(string)
	if userID == "" || stopID == "" {
		return MutationResponse{}, fmt.Errorf("user_id and stop_id are required")
	}

	err := s.favorites.Remove(ctx, userID, domain.StopID(stopID))
	switch {
	case err == nil:
		return MutationResponse{Status: "removed", Message: fmt.Sprintf("%s removed for %s", stopID, userID)}, nil
	case errors.Is(err, domain.ErrFavoriteNotFound):
		return MutationResponse{Status: "not_found", Message: fmt.Sprintf("%s was not saved", stopID)}, nil
	default:
		return MutationResponse{}, fmt.Errorf("remove favorite: %w", err)
	}
}

func (s *Server) registerResources() {
	// EXPOSE: parada://stops
	s.mcpServer.AddResource(mcp.NewResource("parada://stops", "Stop Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stops, err := s.gateway.Stops(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stop catalog: %w", err)
		}
		jsonBytes, _ := json.Marshal(stops)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "parada://stops",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
