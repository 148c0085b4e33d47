// Package schedule fronts the transit feed with short-lived caches so
// the dialog layer can re-render freely without hammering the remote
// API. Departures age out in seconds, the stop catalog in hours, and
// concurrent misses for the same key coalesce into one remote call.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
)

// Cache defaults. Departures are countdowns and stale within half a
// minute; the catalog is the physical line and changes on the order of
// months.
const (
	DefaultScheduleTTL  = 25 * time.Second
	DefaultCatalogTTL   = 6 * time.Hour
	DefaultFetchTimeout = 5 * time.Second
	DefaultRetries      = 2
	DefaultBackoff      = 200 * time.Millisecond
)

type scheduleEntry struct {
	departures []domain.Departure
	expires    time.Time
}

type catalogEntry struct {
	stops   []domain.Stop
	folded  []string // Fold(name), aligned with stops
	byID    map[domain.StopID]domain.Stop
	expires time.Time
}

type boardEntry struct {
	rows    []domain.StopArrivals
	expires time.Time
}

// Gateway is the read side of the bot: every schedule, search and
// board request flows through here. It is safe for concurrent use.
type Gateway struct {
	feed   ports.TransitFeed
	logger *slog.Logger
	hooks  domain.Hooks

	scheduleTTL time.Duration
	catalogTTL  time.Duration
	timeout     time.Duration
	retries     int
	backoff     time.Duration

	// Injected in tests to step TTLs and skip backoff sleeps.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	flight singleflight.Group

	mu        sync.RWMutex
	schedules map[domain.StopID]scheduleEntry
	catalog   *catalogEntry
	board     *boardEntry
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithScheduleTTL sets how long per-stop departures stay fresh.
func WithScheduleTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.scheduleTTL = ttl
	}
}

// WithCatalogTTL sets how long the stop catalog stays fresh.
func WithCatalogTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.catalogTTL = ttl
	}
}

// WithFetchTimeout bounds each remote attempt.
func WithFetchTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.retries = n
		}
	}
}

// WithBackoff sets the first retry delay; later delays triple it.
func WithBackoff(d time.Duration) Option {
	return func(g *Gateway) {
		g.backoff = d
	}
}

// WithLogger configures a logger for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithHooks wires observability callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(g *Gateway) {
		g.hooks = hooks
	}
}

// NewGateway creates a Gateway over the given feed.
func NewGateway(feed ports.TransitFeed, opts ...Option) *Gateway {
	g := &Gateway{
		feed:        feed,
		logger:      logging.NewNop(),
		scheduleTTL: DefaultScheduleTTL,
		catalogTTL:  DefaultCatalogTTL,
		timeout:     DefaultFetchTimeout,
		retries:     DefaultRetries,
		backoff:     DefaultBackoff,
		now:         time.Now,
		sleep:       sleepCtx,
		schedules:   make(map[domain.StopID]scheduleEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Departures returns the upcoming departures at one stop, soonest
// first. Served from cache while fresh; concurrent misses for the same
// stop share a single remote call.
func (g *Gateway) Departures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
	if ds, ok := g.cachedSchedule(stopID); ok {
		g.hooks.EmitCache(ctx, "schedule", domain.CacheHit)
		return ds, nil
	}

	ran := false
	v, err, _ := g.flight.Do("stop:"+string(stopID), func() (any, error) {
		ran = true
		// A previous flight may have landed between our miss and here.
		if ds, ok := g.cachedSchedule(stopID); ok {
			return ds, nil
		}
		ds, err := g.fetchDepartures(ctx, stopID)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.schedules[stopID] = scheduleEntry{departures: ds, expires: g.now().Add(g.scheduleTTL)}
		g.mu.Unlock()
		return ds, nil
	})
	if ran {
		g.hooks.EmitCache(ctx, "schedule", domain.CacheMiss)
	} else {
		g.hooks.EmitCache(ctx, "schedule", domain.CacheCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return cloneDepartures(v.([]domain.Departure)), nil
}

// SearchStops matches the query against stop names, case- and
// accent-insensitive, substring semantics. An empty query returns the
// full catalog in line order.
func (g *Gateway) SearchStops(ctx context.Context, query string) ([]domain.Stop, error) {
	cat, err := g.ensureCatalog(ctx)
	if err != nil {
		return nil, err
	}

	q := domain.Fold(query)
	if q == "" {
		return cloneStops(cat.stops), nil
	}

	var matched []domain.Stop
	for i, folded := range cat.folded {
		if strings.Contains(folded, q) {
			matched = append(matched, cat.stops[i])
		}
	}
	return matched, nil
}

// Stops returns the full stop catalog in line order.
func (g *Gateway) Stops(ctx context.Context) ([]domain.Stop, error) {
	cat, err := g.ensureCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cloneStops(cat.stops), nil
}

// Stop resolves one stop by ID against the catalog.
func (g *Gateway) Stop(ctx context.Context, stopID domain.StopID) (domain.Stop, error) {
	cat, err := g.ensureCatalog(ctx)
	if err != nil {
		return domain.Stop{}, err
	}
	stop, ok := cat.byID[stopID]
	if !ok {
		return domain.Stop{}, fmt.Errorf("stop %q: %w", stopID, domain.ErrUnknownStop)
	}
	return stop, nil
}

// LineBoard returns the whole-line arrivals snapshot, one row per
// catalog stop in line order. Stops the feed reported nothing for get
// an empty departure list.
func (g *Gateway) LineBoard(ctx context.Context) ([]domain.StopArrivals, error) {
	if rows, ok := g.cachedBoard(); ok {
		g.hooks.EmitCache(ctx, "board", domain.CacheHit)
		return rows, nil
	}

	ran := false
	v, err, _ := g.flight.Do("board", func() (any, error) {
		ran = true
		if rows, ok := g.cachedBoard(); ok {
			return rows, nil
		}
		rows, err := g.fetchBoard(ctx)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.board = &boardEntry{rows: rows, expires: g.now().Add(g.scheduleTTL)}
		g.mu.Unlock()
		return rows, nil
	})
	if ran {
		g.hooks.EmitCache(ctx, "board", domain.CacheMiss)
	} else {
		g.hooks.EmitCache(ctx, "board", domain.CacheCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return cloneBoard(v.([]domain.StopArrivals)), nil
}

func (g *Gateway) cachedSchedule(stopID domain.StopID) ([]domain.Departure, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.schedules[stopID]
	if !ok || g.now().After(entry.expires) {
		return nil, false
	}
	return cloneDepartures(entry.departures), true
}

func (g *Gateway) cachedBoard() ([]domain.StopArrivals, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.board == nil || g.now().After(g.board.expires) {
		return nil, false
	}
	return cloneBoard(g.board.rows), true
}

// ensureCatalog returns a fresh catalog, fetching it at most once
// across concurrent callers.
func (g *Gateway) ensureCatalog(ctx context.Context) (*catalogEntry, error) {
	g.mu.RLock()
	cat := g.catalog
	g.mu.RUnlock()
	if cat != nil && g.now().Before(cat.expires) {
		g.hooks.EmitCache(ctx, "catalog", domain.CacheHit)
		return cat, nil
	}

	ran := false
	v, err, _ := g.flight.Do("catalog", func() (any, error) {
		ran = true
		g.mu.RLock()
		cat := g.catalog
		g.mu.RUnlock()
		if cat != nil && g.now().Before(cat.expires) {
			return cat, nil
		}

		var stops []domain.Stop
		err := g.withRetry(ctx, "paradas", func(ctx context.Context) error {
			var err error
			stops, err = g.feed.Stops(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}

		next := &catalogEntry{
			stops:   stops,
			folded:  make([]string, len(stops)),
			byID:    make(map[domain.StopID]domain.Stop, len(stops)),
			expires: g.now().Add(g.catalogTTL),
		}
		for i, s := range stops {
			next.folded[i] = domain.Fold(s.Name)
			next.byID[s.ID] = s
		}
		g.mu.Lock()
		g.catalog = next
		g.mu.Unlock()
		return next, nil
	})
	if ran {
		g.hooks.EmitCache(ctx, "catalog", domain.CacheMiss)
	} else {
		g.hooks.EmitCache(ctx, "catalog", domain.CacheCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return v.(*catalogEntry), nil
}

func (g *Gateway) fetchDepartures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
	var ds []domain.Departure
	err := g.withRetry(ctx, "llegadas", func(ctx context.Context) error {
		var err error
		ds, err = g.feed.Arrivals(ctx, stopID)
		return err
	})
	if err != nil {
		return nil, err
	}
	domain.SortDepartures(ds)
	return ds, nil
}

// fetchBoard joins the whole-line arrivals with the catalog so rows
// come out named and in line order regardless of feed ordering.
func (g *Gateway) fetchBoard(ctx context.Context) ([]domain.StopArrivals, error) {
	cat, err := g.ensureCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var all []domain.StopArrivals
	err = g.withRetry(ctx, "llegadas_linea", func(ctx context.Context) error {
		var err error
		all, err = g.feed.AllArrivals(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[domain.StopID][]domain.Departure, len(all))
	for _, sa := range all {
		byID[sa.Stop.ID] = sa.Departures
	}

	rows := make([]domain.StopArrivals, 0, len(cat.stops))
	for _, stop := range cat.stops {
		ds := byID[stop.ID]
		domain.SortDepartures(ds)
		rows = append(rows, domain.StopArrivals{Stop: stop, Departures: ds})
	}
	return rows, nil
}

// withRetry runs fn with a bounded timeout per attempt, retrying only
// transient failures. Unknown stops and malformed payloads are
// terminal: another attempt cannot change what the feed knows or
// publishes. Malformed payloads are logged here and surfaced to
// callers as unavailability.
func (g *Gateway) withRetry(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			delay := g.backoff
			for i := 1; i < attempt; i++ {
				delay *= 3
			}
			if serr := g.sleep(ctx, delay); serr != nil {
				return fmt.Errorf("%s: %w: %v", endpoint, domain.ErrRemoteUnavailable, serr)
			}
		}

		err = g.attempt(ctx, endpoint, fn)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrUnknownStop):
			return err
		case errors.Is(err, domain.ErrMalformedResponse):
			g.logger.Warn("feed payload malformed", "endpoint", endpoint, "err", err)
			return fmt.Errorf("%s: %w: malformed payload", endpoint, domain.ErrRemoteUnavailable)
		}
		if ctx.Err() != nil {
			break
		}
		g.logger.Debug("feed attempt failed", "endpoint", endpoint, "attempt", attempt+1, "err", err)
	}
	return err
}

// attempt performs one bounded call and reports its outcome to hooks.
func (g *Gateway) attempt(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(actx)
	elapsed := time.Since(start)

	if err != nil && !isDomainErr(err) {
		// Feeds usually classify; a raw deadline or transport error from
		// a bare feed still counts as unavailability.
		err = fmt.Errorf("%s: %w: %v", endpoint, domain.ErrRemoteUnavailable, err)
	}
	g.hooks.EmitFetch(ctx, endpoint, fetchOutcome(err), elapsed)
	return err
}

func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrRemoteUnavailable) ||
		errors.Is(err, domain.ErrUnknownStop) ||
		errors.Is(err, domain.ErrMalformedResponse)
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownStop):
		return "unknown_stop"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneDepartures(ds []domain.Departure) []domain.Departure {
	out := make([]domain.Departure, len(ds))
	copy(out, ds)
	return out
}

func cloneStops(stops []domain.Stop) []domain.Stop {
	out := make([]domain.Stop, len(stops))
	copy(out, stops)
	return out
}

func cloneBoard(rows []domain.StopArrivals) []domain.StopArrivals {
	out := make([]domain.StopArrivals, len(rows))
	for i, row := range rows {
		out[i] = domain.StopArrivals{Stop: row.Stop, Departures: cloneDepartures(row.Departures)}
	}
	return out
}
