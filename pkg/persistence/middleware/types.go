// Package middleware provides wrappers that add behavior to the
// persistence ports without the stores knowing.
package middleware

import "github.com/granalabs/parada/pkg/ports"

// SessionMiddleware wraps a SessionStore to add behavior.
type SessionMiddleware func(ports.SessionStore) ports.SessionStore

// FavoritesMiddleware wraps a FavoritesStore to add behavior.
type FavoritesMiddleware func(ports.FavoritesStore) ports.FavoritesStore
