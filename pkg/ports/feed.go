package ports

import (
	"context"

	"github.com/granalabs/parada/pkg/domain"
)

// TransitFeed defines the interface to the remote transit-data source.
// Implementations translate one remote API into the domain shapes and
// classify every failure into the domain sentinels: ErrUnknownStop for
// identifiers the feed rejects, ErrMalformedResponse for undecodable
// payloads, ErrRemoteUnavailable for everything transient. Callers use
// errors.Is to branch; retry policy lives above, in the gateway.
type TransitFeed interface {
	// Stops returns the stop catalog in line order.
	Stops(ctx context.Context) ([]domain.Stop, error)

	// Arrivals returns the upcoming departures at one stop, unsorted.
	Arrivals(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error)

	// AllArrivals returns the upcoming departures of every stop on the
	// line in one call. Stop entries may carry only the ID; names are
	// resolved against the catalog.
	AllArrivals(ctx context.Context) ([]domain.StopArrivals, error)
}
