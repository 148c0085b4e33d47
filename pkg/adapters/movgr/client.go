// Package movgr implements ports.TransitFeed against the MovGR public
// API, the community service publishing Metro de Granada real-time
// data. It owns the wire format and maps every failure onto the domain
// error taxonomy; nothing above this package knows HTTP.
package movgr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
)

// DefaultBaseURL points at the public MovGR deployment.
const DefaultBaseURL = "https://movgr.apis.mianfg.me"

// lineName labels departures; the network is a single line.
const lineName = "1"

// maxBodyBytes bounds response reads. The whole-line payload is a few
// KB; anything near this limit is garbage.
const maxBodyBytes = 1 << 20

// Client talks to the MovGR API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to inject a
// recording transport in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds each request. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http == defaultClient {
			c.http = newHTTPClient(d)
		}
	}
}

// WithLogger configures a logger for wire-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

var defaultClient = newHTTPClient(5 * time.Second)

// newHTTPClient builds a client tuned for small, frequent API calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// New creates a MovGR client. An empty baseURL selects the public
// deployment.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    defaultClient,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire shapes, as published by MovGR. Field names are the API's own.
type paradaDTO struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
}

type proximoDTO struct {
	Minutos   int    `json:"minutos"`
	Direccion string `json:"direccion"`
}

type llegadasDTO struct {
	Proximos []proximoDTO `json:"proximos"`
}

type lineaEntryDTO struct {
	Parada   paradaDTO    `json:"parada"`
	Proximos []proximoDTO `json:"proximos"`
}

// Stops returns the stop catalog in line order.
func (c *Client) Stops(ctx context.Context) ([]domain.Stop, error) {
	var dto []paradaDTO
	if err := c.get(ctx, "/metro/paradas", &dto); err != nil {
		return nil, err
	}

	stops := make([]domain.Stop, 0, len(dto))
	for _, p := range dto {
		stops = append(stops, domain.Stop{ID: domain.StopID(p.ID), Name: p.Nombre})
	}
	return stops, nil
}

// Arrivals returns the upcoming departures at one stop.
func (c *Client) Arrivals(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
	var dto llegadasDTO
	path := "/metro/llegadas/" + url.PathEscape(string(stopID))
	if err := c.get(ctx, path, &dto); err != nil {
		return nil, err
	}
	return c.departures(stopID, dto.Proximos), nil
}

// AllArrivals returns the upcoming departures of every stop on the line.
func (c *Client) AllArrivals(ctx context.Context) ([]domain.StopArrivals, error) {
	var dto []lineaEntryDTO
	if err := c.get(ctx, "/metro/llegadas", &dto); err != nil {
		return nil, err
	}

	all := make([]domain.StopArrivals, 0, len(dto))
	for _, e := range dto {
		id := domain.StopID(e.Parada.ID)
		all = append(all, domain.StopArrivals{
			Stop:       domain.Stop{ID: id, Name: e.Parada.Nombre},
			Departures: c.departures(id, e.Proximos),
		})
	}
	return all, nil
}

func (c *Client) departures(stopID domain.StopID, proximos []proximoDTO) []domain.Departure {
	fetched := c.now().UTC()
	ds := make([]domain.Departure, 0, len(proximos))
	for _, p := range proximos {
		ds = append(ds, domain.Departure{
			StopID:      stopID,
			Line:        lineName,
			Destination: p.Direccion,
			Minutes:     p.Minutos,
			FetchedAt:   fetched,
		})
	}
	return ds
}

// get issues one GET and decodes the body into out, classifying every
// failure: 404 means the feed does not know the identifier, transport
// errors and non-200 statuses are transient, an undecodable body is
// malformed.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("movgr: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("movgr: GET %s: %w: %v", path, domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("movgr: GET %s: %w", path, domain.ErrUnknownStop)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("movgr: GET %s: %w: status %d", path, domain.ErrRemoteUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("movgr: GET %s: %w: reading body: %v", path, domain.ErrRemoteUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Debug("undecodable feed payload", "path", path, "size", len(body), "err", err)
		return fmt.Errorf("movgr: GET %s: %w: %v", path, domain.ErrMalformedResponse, err)
	}
	return nil
}
