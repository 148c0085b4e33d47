package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/granalabs/parada/pkg/domain"
)

// Combine merges several hook sets into one that fans each signal out
// to all of them, in registration order. Nil callbacks inside any set
// are skipped.
func Combine(hooks ...domain.Hooks) domain.Hooks {
	return domain.Hooks{
		OnEvent: func(ctx context.Context, userID string, kind domain.EventKind, state domain.DialogState) {
			for _, h := range hooks {
				h.EmitEvent(ctx, userID, kind, state)
			}
		},
		OnTransition: func(ctx context.Context, from, to domain.DialogState) {
			for _, h := range hooks {
				h.EmitTransition(ctx, from, to)
			}
		},
		OnFetch: func(ctx context.Context, endpoint, outcome string, elapsed time.Duration) {
			for _, h := range hooks {
				h.EmitFetch(ctx, endpoint, outcome, elapsed)
			}
		},
		OnCache: func(ctx context.Context, cache string, result domain.CacheResult) {
			for _, h := range hooks {
				h.EmitCache(ctx, cache, result)
			}
		},
	}
}

// LoggingHooks returns hooks that trace every signal at debug level.
// Useful while developing a dialog change or chasing a stuck session.
func LoggingHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnEvent: func(ctx context.Context, userID string, kind domain.EventKind, state domain.DialogState) {
			logger.DebugContext(ctx, "dialog event", "user_id", userID, "kind", kind, "state", state)
		},
		OnTransition: func(ctx context.Context, from, to domain.DialogState) {
			logger.DebugContext(ctx, "state transition", "from", from, "to", to)
		},
		OnFetch: func(ctx context.Context, endpoint, outcome string, elapsed time.Duration) {
			logger.DebugContext(ctx, "feed fetch", "endpoint", endpoint, "outcome", outcome, "elapsed", elapsed)
		},
		OnCache: func(ctx context.Context, cache string, result domain.CacheResult) {
			logger.DebugContext(ctx, "cache lookup", "cache", cache, "result", result)
		},
	}
}
