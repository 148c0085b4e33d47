package domain

import "errors"

// ErrSessionNotFound is returned when a user ID cannot be found in the
// session store.
var ErrSessionNotFound = errors.New("session not found")

// ErrAlreadyFavorite is returned by FavoritesStore.Add when the stop is
// already saved for the user. The stored list is left untouched.
var ErrAlreadyFavorite = errors.New("stop is already a favorite")

// ErrCapacityExceeded is returned by FavoritesStore.Add when the user
// already holds the maximum number of favorites.
var ErrCapacityExceeded = errors.New("favorites capacity exceeded")

// ErrFavoriteNotFound is returned by FavoritesStore.Remove when the
// stop is not among the user's favorites.
var ErrFavoriteNotFound = errors.New("favorite not found")

// ErrUnknownStop is returned when the upstream feed does not recognize
// the requested stop ID. Not retryable.
var ErrUnknownStop = errors.New("unknown stop")

// ErrRemoteUnavailable is returned when the upstream feed cannot be
// reached, times out, or answers with a server error. Transient.
var ErrRemoteUnavailable = errors.New("transit feed unavailable")

// ErrMalformedResponse is returned when the upstream feed answers with
// a payload that cannot be decoded. Not retryable; callers surface it
// to users as an availability problem.
var ErrMalformedResponse = errors.New("malformed feed response")
