package parada

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/granalabs/parada/internal/engine"
	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/adapters/memory"
	"github.com/granalabs/parada/pkg/adapters/movgr"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/ports"
	"github.com/granalabs/parada/pkg/schedule"
	"github.com/granalabs/parada/pkg/session"
)

// Version is stamped by the release build.
var Version = "dev"

// Bot is the high-level entry point for the parada library. It wires
// the feed client, the schedule gateway, the stores, the session
// manager and the conversation engine behind a single Handle call.
type Bot struct {
	engine    *engine.Engine
	gateway   *schedule.Gateway
	sessions  *session.Manager
	favorites ports.FavoritesStore

	feed         ports.TransitFeed
	sessionStore ports.SessionStore
	logger       *slog.Logger
	hooks        domain.Hooks
	httpClient   *http.Client
	capacity     int
	idleTimeout  time.Duration
	fetchTimeout time.Duration
	scheduleTTL  time.Duration
	catalogTTL   time.Duration
	retries      int
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithLogger sets a custom structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithHooks registers observability hooks, fed by both the engine and
// the gateway.
func WithHooks(hooks domain.Hooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithFeed injects a custom transit feed, bypassing the default movgr
// client. apiBaseURL may then be empty.
func WithFeed(feed ports.TransitFeed) Option {
	return func(b *Bot) {
		b.feed = feed
	}
}

// WithFavorites injects a favorites store (file, Redis). Defaults to
// the in-memory store.
func WithFavorites(store ports.FavoritesStore) Option {
	return func(b *Bot) {
		b.favorites = store
	}
}

// WithSessions injects a session store. Defaults to the in-memory
// store; session state is cheap to recompute.
func WithSessions(store ports.SessionStore) Option {
	return func(b *Bot) {
		b.sessionStore = store
	}
}

// WithHTTPClient sets the HTTP client used by the default feed client.
// Ignored when WithFeed is given.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = hc
	}
}

// WithCapacity bounds favorites per user. It applies to the default
// in-memory store and to the limit notice; injected stores enforce
// their own bound and should be configured to match.
func WithCapacity(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithIdleTimeout sets the inactivity window after which a session
// reverts to the main menu.
func WithIdleTimeout(d time.Duration) Option {
	return func(b *Bot) {
		b.idleTimeout = d
	}
}

// WithFetchTimeout bounds each feed call.
func WithFetchTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.fetchTimeout = d
		}
	}
}

// WithScheduleTTL sets how long per-stop departures stay cached.
func WithScheduleTTL(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.scheduleTTL = d
		}
	}
}

// WithCatalogTTL sets how long the stop catalog stays cached.
func WithCatalogTTL(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.catalogTTL = d
		}
	}
}

// WithRetries sets how many times a transient feed failure is retried.
func WithRetries(n int) Option {
	return func(b *Bot) {
		if n >= 0 {
			b.retries = n
		}
	}
}

// New initializes a Bot against the given transit API base URL.
// If the WithFeed option is provided, apiBaseURL can be empty and the
// default movgr client is skipped.
func New(apiBaseURL string, opts ...Option) (*Bot, error) {
	b := &Bot{
		capacity:     domain.DefaultFavoritesCapacity,
		idleTimeout:  session.DefaultIdleTimeout,
		fetchTimeout: schedule.DefaultFetchTimeout,
		scheduleTTL:  schedule.DefaultScheduleTTL,
		catalogTTL:   schedule.DefaultCatalogTTL,
		retries:      schedule.DefaultRetries,
	}

	// Apply options first to check whether a feed is provided.
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}

	if b.feed == nil {
		if apiBaseURL == "" {
			return nil, fmt.Errorf("apiBaseURL is required when no custom feed is provided")
		}
		mopts := []movgr.Option{movgr.WithLogger(b.logger)}
		if b.httpClient != nil {
			mopts = append(mopts, movgr.WithHTTPClient(b.httpClient))
		} else {
			mopts = append(mopts, movgr.WithTimeout(b.fetchTimeout))
		}
		b.feed = movgr.New(apiBaseURL, mopts...)
	}

	if b.favorites == nil {
		b.favorites = memory.NewFavorites(memory.WithCapacity(b.capacity))
	}
	if b.sessionStore == nil {
		b.sessionStore = memory.NewSessions()
	}

	b.gateway = schedule.NewGateway(b.feed,
		schedule.WithLogger(b.logger),
		schedule.WithHooks(b.hooks),
		schedule.WithScheduleTTL(b.scheduleTTL),
		schedule.WithCatalogTTL(b.catalogTTL),
		schedule.WithFetchTimeout(b.fetchTimeout),
		schedule.WithRetries(b.retries),
	)
	b.sessions = session.NewManager(b.sessionStore,
		session.WithIdleTimeout(b.idleTimeout),
		session.WithLogger(b.logger),
	)
	b.engine = engine.New(b.sessions, b.favorites, b.gateway,
		engine.WithLogger(b.logger),
		engine.WithHooks(b.hooks),
		engine.WithCapacity(b.capacity),
	)

	return b, nil
}

// Handle processes one inbound event and returns the reply descriptor.
// Events for one user are serialized; different users run concurrently.
func (b *Bot) Handle(ctx context.Context, ev domain.Event) (domain.Reply, error) {
	return b.engine.Handle(ctx, ev)
}

// Gateway returns the schedule gateway, for transports that expose
// read-only stop and departure lookups directly.
func (b *Bot) Gateway() *schedule.Gateway {
	return b.gateway
}

// Favorites returns the favorites store backing this bot.
func (b *Bot) Favorites() ports.FavoritesStore {
	return b.favorites
}

// Sessions returns the session manager, for admin surfaces.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}
