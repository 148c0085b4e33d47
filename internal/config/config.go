// Package config resolves the runtime configuration from layered
// sources. Later sources win: built-in defaults, then the YAML file,
// then .env, then PARADA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/adapters/movgr"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/schedule"
	"github.com/granalabs/parada/pkg/session"
)

// DefaultPath is where Load looks when no file is named. A missing
// default file is fine; a missing named file is an error.
const DefaultPath = "parada.yaml"

// Favorites store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the resolved runtime configuration.
type Config struct {
	APIBaseURL string `yaml:"api_base_url" mapstructure:"api_base_url"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`

	Store    Store    `yaml:"store" mapstructure:"store"`
	Schedule Schedule `yaml:"schedule" mapstructure:"schedule"`
	Session  Session  `yaml:"session" mapstructure:"session"`
	HTTP     HTTP     `yaml:"http" mapstructure:"http"`
}

// Store selects and parameterizes the persistence backend, shared by
// favorites and sessions.
type Store struct {
	Backend       string `yaml:"backend" mapstructure:"backend"`
	Path          string `yaml:"path" mapstructure:"path"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	Capacity      int    `yaml:"capacity" mapstructure:"capacity"`

	// Secret, when set, turns on pseudonymization: stores key their
	// data by HMAC of the user ID instead of the raw chat ID.
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// Schedule tunes the gateway caches and fetch policy. Durations read
// Go syntax ("25s", "6h") in both YAML and environment variables.
type Schedule struct {
	TTL          time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CatalogTTL   time.Duration `yaml:"catalog_ttl" mapstructure:"catalog_ttl"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	Retries      int           `yaml:"retries" mapstructure:"retries"`
}

// Session tunes the dialog session lifecycle.
type Session struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// HTTP configures the optional HTTP transport.
type HTTP struct {
	Addr    string `yaml:"addr" mapstructure:"addr"`
	Metrics bool   `yaml:"metrics" mapstructure:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIBaseURL: movgr.DefaultBaseURL,
		LogLevel:   "info",
		Store: Store{
			Backend:   BackendMemory,
			Path:      ".parada/favorites.json",
			RedisAddr: "localhost:6379",
			Capacity:  domain.DefaultFavoritesCapacity,
		},
		Schedule: Schedule{
			TTL:          schedule.DefaultScheduleTTL,
			CatalogTTL:   schedule.DefaultCatalogTTL,
			FetchTimeout: schedule.DefaultFetchTimeout,
			Retries:      schedule.DefaultRetries,
		},
		Session: Session{
			IdleTimeout: session.DefaultIdleTimeout,
			TTL:         session.DefaultIdleTimeout,
		},
		HTTP: HTTP{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// envBindings maps PARADA_* variables onto config paths.
var envBindings = map[string]string{
	"PARADA_API_BASE_URL":         "api_base_url",
	"PARADA_LOG_LEVEL":            "log_level",
	"PARADA_STORE_BACKEND":        "store.backend",
	"PARADA_STORE_PATH":           "store.path",
	"PARADA_REDIS_ADDR":           "store.redis_addr",
	"PARADA_REDIS_PASSWORD":       "store.redis_password",
	"PARADA_REDIS_DB":             "store.redis_db",
	"PARADA_FAVORITES_CAPACITY":   "store.capacity",
	"PARADA_STORE_SECRET":         "store.secret",
	"PARADA_SCHEDULE_TTL":         "schedule.ttl",
	"PARADA_CATALOG_TTL":          "schedule.catalog_ttl",
	"PARADA_FETCH_TIMEOUT":        "schedule.fetch_timeout",
	"PARADA_FETCH_RETRIES":        "schedule.retries",
	"PARADA_SESSION_IDLE_TIMEOUT": "session.idle_timeout",
	"PARADA_SESSION_TTL":          "session.ttl",
	"PARADA_HTTP_ADDR":            "http.addr",
}

// Load resolves the configuration. path names the YAML file; empty
// falls back to DefaultPath, tolerated missing. A .env file in the
// working directory is loaded first but never overrides variables the
// process already carries.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := applyFile(cfg, path, explicit); err != nil {
		return nil, err
	}
	if err := decode(envOverrides(), cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q (want %s, %s or %s)",
			c.Store.Backend, BackendMemory, BackendFile, BackendRedis)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Store.Capacity <= 0 {
		return fmt.Errorf("favorites capacity must be positive, got %d", c.Store.Capacity)
	}
	if c.Schedule.TTL <= 0 || c.Schedule.CatalogTTL <= 0 {
		return errors.New("schedule TTLs must be positive")
	}
	if c.Schedule.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.Schedule.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	return nil
}

// Level parses the configured log level. Validate guarantees it
// parses, so the error is dropped here.
func (c *Config) Level() slog.Level {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return lvl
}

func applyFile(cfg *Config, path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := decode(raw, cfg); err != nil {
		return fmt.Errorf("apply config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads environment variables from path. Missing files are
// ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// decode merges a raw map over cfg. Weak typing plus the duration hook
// lets YAML scalars and environment strings fill typed fields alike.
func decode(src map[string]any, cfg *Config) error {
	if len(src) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

func envOverrides() map[string]any {
	out := map[string]any{}
	for env, path := range envBindings {
		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		node := out
		parts := strings.Split(path, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}
