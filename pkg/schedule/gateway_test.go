package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granalabs/parada/pkg/domain"
)

// fakeFeed scripts the remote side per endpoint.
type fakeFeed struct {
	stopsFn    func(ctx context.Context) ([]domain.Stop, error)
	arrivalsFn func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error)
	allFn      func(ctx context.Context) ([]domain.StopArrivals, error)
}

func (f *fakeFeed) Stops(ctx context.Context) ([]domain.Stop, error) {
	return f.stopsFn(ctx)
}

func (f *fakeFeed) Arrivals(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
	return f.arrivalsFn(ctx, stopID)
}

func (f *fakeFeed) AllArrivals(ctx context.Context) ([]domain.StopArrivals, error) {
	return f.allFn(ctx)
}

// fakeClock steps time manually.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func departures(stopID domain.StopID, minutes ...int) []domain.Departure {
	ds := make([]domain.Departure, 0, len(minutes))
	for _, m := range minutes {
		ds = append(ds, domain.Departure{StopID: stopID, Line: "1", Destination: "Armilla", Minutes: m})
	}
	return ds
}

func TestGateway_DeparturesCachedWithinTTL(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			calls.Add(1)
			return departures(stopID, 7, 2), nil
		},
	}
	clock := newFakeClock()
	g := NewGateway(feed)
	g.now = clock.Now

	first, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, first[0].Minutes, "departures come back soonest first")
	assert.Equal(t, int32(1), calls.Load())

	_, err = g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "fresh cache must not refetch")

	clock.Advance(DefaultScheduleTTL + time.Second)
	_, err = g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "stale cache must refetch")
}

func TestGateway_CachedResultsAreCopies(t *testing.T) {
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			return departures(stopID, 3), nil
		},
	}
	g := NewGateway(feed)

	first, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	first[0].Minutes = 99

	second, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	assert.Equal(t, 3, second[0].Minutes, "caller mutation must not leak into the cache")
}

func TestGateway_ConcurrentMissesCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			calls.Add(1)
			<-release
			return departures(stopID, 5), nil
		},
	}
	g := NewGateway(feed)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Departures(context.Background(), "EST")
			errs <- err
		}()
	}

	// Give every worker time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load(), "concurrent misses must share one remote call")
}

func TestGateway_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			if calls.Add(1) < 3 {
				return nil, domain.ErrRemoteUnavailable
			}
			return departures(stopID, 4), nil
		},
	}
	g := NewGateway(feed)
	var delays []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	ds, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 600 * time.Millisecond}, delays)
}

func TestGateway_ExhaustedRetriesSurfaceUnavailable(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			calls.Add(1)
			return nil, domain.ErrRemoteUnavailable
		},
	}
	g := NewGateway(feed)
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := g.Departures(context.Background(), "EST")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestGateway_UnknownStopNotRetried(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			calls.Add(1)
			return nil, domain.ErrUnknownStop
		},
	}
	g := NewGateway(feed)
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := g.Departures(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownStop)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_MalformedSurfacesAsUnavailable(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			calls.Add(1)
			return nil, domain.ErrMalformedResponse
		},
	}
	g := NewGateway(feed)
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := g.Departures(context.Background(), "EST")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, domain.ErrMalformedResponse, "callers see plain unavailability")
	assert.Equal(t, int32(1), calls.Load(), "malformed payloads are not retried")
}

func catalogFeed(calls *atomic.Int32) *fakeFeed {
	return &fakeFeed{
		stopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			if calls != nil {
				calls.Add(1)
			}
			return []domain.Stop{
				{ID: "ALB", Name: "Albolote"},
				{ID: "EST", Name: "Estación de Autobuses"},
				{ID: "MEN", Name: "Méndez Núñez"},
				{ID: "ARM", Name: "Armilla"},
			}, nil
		},
	}
}

func TestGateway_SearchStopsFoldsCaseAndAccents(t *testing.T) {
	var calls atomic.Int32
	g := NewGateway(catalogFeed(&calls))

	matches, err := g.SearchStops(context.Background(), "estacion")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.StopID("EST"), matches[0].ID)

	matches, err = g.SearchStops(context.Background(), "MÉNDEZ")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.StopID("MEN"), matches[0].ID)

	matches, err = g.SearchStops(context.Background(), "nunez")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, int32(1), calls.Load(), "catalog is fetched once and reused")
}

func TestGateway_SearchStopsEmptyQueryReturnsCatalog(t *testing.T) {
	g := NewGateway(catalogFeed(nil))

	all, err := g.SearchStops(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, domain.StopID("ALB"), all[0].ID, "line order preserved")
	assert.Equal(t, domain.StopID("ARM"), all[3].ID)
}

func TestGateway_StopResolvesAgainstCatalog(t *testing.T) {
	g := NewGateway(catalogFeed(nil))

	stop, err := g.Stop(context.Background(), "MEN")
	require.NoError(t, err)
	assert.Equal(t, "Méndez Núñez", stop.Name)

	_, err = g.Stop(context.Background(), "XXX")
	assert.ErrorIs(t, err, domain.ErrUnknownStop)
}

func TestGateway_LineBoardFollowsCatalogOrder(t *testing.T) {
	feed := catalogFeed(nil)
	feed.allFn = func(ctx context.Context) ([]domain.StopArrivals, error) {
		// Feed order differs from line order and skips two stops.
		return []domain.StopArrivals{
			{Stop: domain.Stop{ID: "MEN"}, Departures: departures("MEN", 9, 1)},
			{Stop: domain.Stop{ID: "ALB"}, Departures: departures("ALB", 4)},
		}, nil
	}
	g := NewGateway(feed)

	rows, err := g.LineBoard(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Albolote", rows[0].Stop.Name)
	assert.Equal(t, "Estación de Autobuses", rows[1].Stop.Name)
	assert.Empty(t, rows[1].Departures, "stops the feed omitted render empty")
	assert.Equal(t, 1, rows[2].Departures[0].Minutes, "per-stop departures are sorted")
	assert.Equal(t, "Armilla", rows[3].Stop.Name)
}

func TestGateway_EmitsCacheOutcomes(t *testing.T) {
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			return departures(stopID, 2), nil
		},
	}

	var mu sync.Mutex
	var results []domain.CacheResult
	hooks := domain.Hooks{
		OnCache: func(ctx context.Context, cache string, result domain.CacheResult) {
			if cache != "schedule" {
				return
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		},
	}
	g := NewGateway(feed, WithHooks(hooks))

	_, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	_, err = g.Departures(context.Background(), "EST")
	require.NoError(t, err)

	assert.Equal(t, []domain.CacheResult{domain.CacheMiss, domain.CacheHit}, results)
}

func TestGateway_EmitsFetchOutcomes(t *testing.T) {
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			return nil, domain.ErrUnknownStop
		},
	}

	var mu sync.Mutex
	outcomes := map[string]string{}
	hooks := domain.Hooks{
		OnFetch: func(ctx context.Context, endpoint, outcome string, elapsed time.Duration) {
			mu.Lock()
			outcomes[endpoint] = outcome
			mu.Unlock()
		},
	}
	g := NewGateway(feed, WithHooks(hooks))

	_, err := g.Departures(context.Background(), "EST")
	require.Error(t, err)
	assert.Equal(t, "unknown_stop", outcomes["llegadas"])
}

func TestGateway_FetchErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			if calls.Add(1) == 1 {
				return nil, domain.ErrRemoteUnavailable
			}
			return departures(stopID, 6), nil
		},
	}
	g := NewGateway(feed, WithRetries(0))
	g.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := g.Departures(context.Background(), "EST")
	require.Error(t, err)

	ds, err := g.Departures(context.Background(), "EST")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGateway_WrapsBareFeedErrors(t *testing.T) {
	feed := &fakeFeed{
		arrivalsFn: func(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error) {
			return nil, errors.New("connection reset")
		},
	}
	g := NewGateway(feed, WithRetries(0))

	_, err := g.Departures(context.Background(), "EST")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}
