package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/granalabs/parada"
	"github.com/granalabs/parada/internal/config"
	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/adapters/file"
	"github.com/granalabs/parada/pkg/adapters/memory"
	"github.com/granalabs/parada/pkg/adapters/redis"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/persistence/middleware"
	"github.com/granalabs/parada/pkg/ports"
)

// loadConfig resolves the layered configuration for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Level())
}

// newFavorites builds the favorites store the config names.
func newFavorites(cfg *config.Config) (ports.FavoritesStore, error) {
	var store ports.FavoritesStore
	switch cfg.Store.Backend {
	case config.BackendFile:
		fs, err := file.NewFavorites(cfg.Store.Path, file.WithCapacity(cfg.Store.Capacity))
		if err != nil {
			return nil, err
		}
		store = fs
	case config.BackendRedis:
		store = redis.NewFavorites(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redis.WithCapacity(cfg.Store.Capacity))
	default:
		store = memory.NewFavorites(memory.WithCapacity(cfg.Store.Capacity))
	}
	if cfg.Store.Secret != "" {
		store = middleware.NewFavoritesPseudonymizer([]byte(cfg.Store.Secret))(store)
	}
	return store, nil
}

// newSessions builds the session store for the configured backend.
// The file backend keeps sessions in a directory next to the
// favorites file.
func newSessions(cfg *config.Config) ports.SessionStore {
	var store ports.SessionStore
	switch cfg.Store.Backend {
	case config.BackendFile:
		store = file.NewSessions(filepath.Join(filepath.Dir(cfg.Store.Path), "sessions"))
	case config.BackendRedis:
		store = redis.NewSessions(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redis.WithTTL(cfg.Session.TTL))
	default:
		store = memory.NewSessions()
	}
	if cfg.Store.Secret != "" {
		store = middleware.NewSessionPseudonymizer([]byte(cfg.Store.Secret))(store)
	}
	return store
}

// newBot assembles the bot from the resolved configuration.
func newBot(cfg *config.Config, logger *slog.Logger, hooks domain.Hooks) (*parada.Bot, error) {
	favorites, err := newFavorites(cfg)
	if err != nil {
		return nil, fmt.Errorf("favorites store: %w", err)
	}

	return parada.New(cfg.APIBaseURL,
		parada.WithLogger(logger),
		parada.WithHooks(hooks),
		parada.WithFavorites(favorites),
		parada.WithSessions(newSessions(cfg)),
		parada.WithCapacity(cfg.Store.Capacity),
		parada.WithIdleTimeout(cfg.Session.IdleTimeout),
		parada.WithFetchTimeout(cfg.Schedule.FetchTimeout),
		parada.WithScheduleTTL(cfg.Schedule.TTL),
		parada.WithCatalogTTL(cfg.Schedule.CatalogTTL),
		parada.WithRetries(cfg.Schedule.Retries),
	)
}
