package domain

import (
	"context"
	"time"
)

// CacheResult classifies the outcome of a gateway cache lookup.
type CacheResult string

const (
	CacheHit       CacheResult = "hit"
	CacheMiss      CacheResult = "miss"
	CacheCoalesced CacheResult = "coalesced"
)

// Hooks lets hosts observe the dialog without coupling the core to a
// metrics or tracing library. Every field is optional; nil hooks cost
// a nil check and nothing else.
type Hooks struct {
	// OnEvent fires once per handled inbound event, with the dialog
	// state the event found the session in.
	OnEvent func(ctx context.Context, userID string, kind EventKind, state DialogState)

	// OnTransition fires when handling an event moved the session to a
	// different dialog state.
	OnTransition func(ctx context.Context, from, to DialogState)

	// OnFetch fires after each upstream feed call, with the logical
	// endpoint name, an outcome label ("ok", "unavailable",
	// "unknown_stop", "malformed") and the elapsed time.
	OnFetch func(ctx context.Context, endpoint, outcome string, elapsed time.Duration)

	// OnCache fires per gateway lookup with hit/miss/coalesced.
	OnCache func(ctx context.Context, cache string, result CacheResult)
}

// EmitEvent invokes OnEvent when set.
func (h Hooks) EmitEvent(ctx context.Context, userID string, kind EventKind, state DialogState) {
	if h.OnEvent != nil {
		h.OnEvent(ctx, userID, kind, state)
	}
}

// EmitTransition invokes OnTransition when set and the state changed.
func (h Hooks) EmitTransition(ctx context.Context, from, to DialogState) {
	if h.OnTransition != nil && from != to {
		h.OnTransition(ctx, from, to)
	}
}

// EmitFetch invokes OnFetch when set.
func (h Hooks) EmitFetch(ctx context.Context, endpoint, outcome string, elapsed time.Duration) {
	if h.OnFetch != nil {
		h.OnFetch(ctx, endpoint, outcome, elapsed)
	}
}

// EmitCache invokes OnCache when set.
func (h Hooks) EmitCache(ctx context.Context, cache string, result CacheResult) {
	if h.OnCache != nil {
		h.OnCache(ctx, cache, result)
	}
}
