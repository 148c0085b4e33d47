package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func countingHooks(events, transitions, fetches, caches *int) domain.Hooks {
	return domain.Hooks{
		OnEvent: func(context.Context, string, domain.EventKind, domain.DialogState) {
			*events++
		},
		OnTransition: func(context.Context, domain.DialogState, domain.DialogState) {
			*transitions++
		},
		OnFetch: func(context.Context, string, string, time.Duration) {
			*fetches++
		},
		OnCache: func(context.Context, string, domain.CacheResult) {
			*caches++
		},
	}
}

func TestCombine_FansOutToAll(t *testing.T) {
	ctx := context.Background()
	var e1, t1, f1, c1, e2, t2, f2, c2 int

	combined := observability.Combine(
		countingHooks(&e1, &t1, &f1, &c1),
		countingHooks(&e2, &t2, &f2, &c2),
	)

	combined.EmitEvent(ctx, "42", domain.EventText, domain.StateIdle)
	combined.EmitTransition(ctx, domain.StateIdle, domain.StateAwaitingStopQuery)
	combined.EmitFetch(ctx, "arrivals", "ok", 10*time.Millisecond)
	combined.EmitCache(ctx, "schedule", domain.CacheHit)

	for _, n := range []int{e1, t1, f1, c1, e2, t2, f2, c2} {
		assert.Equal(t, 1, n)
	}
}

func TestCombine_ToleratesPartialHookSets(t *testing.T) {
	ctx := context.Background()
	var events int

	combined := observability.Combine(
		domain.Hooks{}, // nothing set
		domain.Hooks{OnEvent: func(context.Context, string, domain.EventKind, domain.DialogState) {
			events++
		}},
	)

	assert.NotPanics(t, func() {
		combined.EmitEvent(ctx, "42", domain.EventCommand, domain.StateIdle)
		combined.EmitTransition(ctx, domain.StateIdle, domain.StateShowingSchedule)
		combined.EmitFetch(ctx, "stops", "unavailable", time.Millisecond)
		combined.EmitCache(ctx, "catalog", domain.CacheMiss)
	})
	assert.Equal(t, 1, events)
}

func TestLoggingHooks_TracesSignals(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	ctx := context.Background()
	hooks.EmitEvent(ctx, "42", domain.EventButton, domain.StateShowingSchedule)
	hooks.EmitTransition(ctx, domain.StateShowingSchedule, domain.StateIdle)
	hooks.EmitFetch(ctx, "arrivals", "ok", 42*time.Millisecond)
	hooks.EmitCache(ctx, "schedule", domain.CacheCoalesced)

	out := buf.String()
	assert.Contains(t, out, "dialog event")
	assert.Contains(t, out, "user_id=42")
	assert.Contains(t, out, "state transition")
	assert.Contains(t, out, "from=showing_schedule")
	assert.Contains(t, out, "feed fetch")
	assert.Contains(t, out, "outcome=ok")
	assert.Contains(t, out, "cache lookup")
	assert.Contains(t, out, "result=coalesced")
}
