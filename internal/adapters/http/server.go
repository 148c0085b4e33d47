// Package http exposes the bot over a small JSON API: transports that
// cannot embed the Go library post normalized events and render the
// reply descriptors themselves. Read-only stop and departure lookups
// are offered directly so dashboards skip the dialog entirely.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/granalabs/parada"
	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
)

// Engine is the conversational surface the adapter drives.
type Engine interface {
	Handle(ctx context.Context, ev domain.Event) (domain.Reply, error)
}

// Directory is the read-only lookup surface. *schedule.Gateway
// implements it.
type Directory interface {
	SearchStops(ctx context.Context, query string) ([]domain.Stop, error)
	Departures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	engine    Engine
	directory Directory
	metrics   http.Handler
	logger    *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts the given handler on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the bot.
func NewHandler(engine Engine, directory Directory, opts ...Option) http.Handler {
	s := &Server{
		engine:    engine,
		directory: directory,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.postEvent)
		r.Get("/stops", s.getStops)
		r.Get("/stops/{stopID}/departures", s.getDepartures)
		r.Get("/info", s.getInfo)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// postEvent handles POST /v1/events: one inbound event in, one reply
// descriptor out.
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := decodeEvent(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("event decode failed", "err", err)
		return
	}
	if err := ev.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.engine.Handle(r.Context(), ev)
	if err != nil {
		http.Error(w, "Event handling failed", http.StatusInternalServerError)
		s.logger.Error("event handling failed", "user_id", ev.UserID, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// decodeEvent reads the JSON body through mapstructure so hosts with
// numeric chat identifiers (Telegram) can post user_id as a number.
func decodeEvent(r *http.Request) (domain.Event, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return domain.Event{}, err
	}

	var ev domain.Event
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ev,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.Event{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// getStops handles GET /v1/stops?q=: accent-insensitive catalog search,
// the full catalog when q is empty.
func (s *Server) getStops(w http.ResponseWriter, r *http.Request) {
	stops, err := s.directory.SearchStops(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "Stop catalog unavailable", http.StatusServiceUnavailable)
		s.logger.Warn("stop search failed", "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stops)
}

// getDepartures handles GET /v1/stops/{stopID}/departures.
func (s *Server) getDepartures(w http.ResponseWriter, r *http.Request) {
	stopID := domain.StopID(chi.URLParam(r, "stopID"))

	deps, err := s.directory.Departures(r.Context(), stopID)
	switch {
	case errors.Is(err, domain.ErrUnknownStop):
		http.Error(w, "Unknown stop", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "Departures unavailable", http.StatusServiceUnavailable)
		s.logger.Warn("departures fetch failed", "stop_id", stopID, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, deps)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "parada",
		"version": parada.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
