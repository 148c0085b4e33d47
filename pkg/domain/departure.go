package domain

import (
	"sort"
	"time"
)

// The line runs between two termini and every departure heads for one
// of them. The line board splits arrivals per direction on these names.
const (
	TerminusArmilla  = "Armilla"
	TerminusAlbolote = "Albolote"
)

// Departure is one upcoming arrival at a stop. Minutes is relative to
// FetchedAt; the feed publishes countdowns, not timestamps.
type Departure struct {
	StopID      StopID    `json:"stop_id"`
	Line        string    `json:"line"`
	Destination string    `json:"destination"`
	Minutes     int       `json:"minutes"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// StopArrivals pairs a stop with its upcoming departures. Used by the
// whole-line board, where the feed returns every stop at once.
type StopArrivals struct {
	Stop       Stop        `json:"stop"`
	Departures []Departure `json:"departures"`
}

// SortDepartures orders departures soonest first. Ties break by line
// then destination so renderings are stable across refreshes.
func SortDepartures(ds []Departure) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Minutes != ds[j].Minutes {
			return ds[i].Minutes < ds[j].Minutes
		}
		if ds[i].Line != ds[j].Line {
			return ds[i].Line < ds[j].Line
		}
		return ds[i].Destination < ds[j].Destination
	})
}

// NextTowards returns the soonest departure heading for the given
// destination, or false when none is due.
func NextTowards(ds []Departure, destination string) (Departure, bool) {
	best := Departure{}
	found := false
	for _, d := range ds {
		if d.Destination != destination {
			continue
		}
		if !found || d.Minutes < best.Minutes {
			best = d
			found = true
		}
	}
	return best, found
}
