package domain

// StopID identifies a transit stop in the upstream feed's namespace,
// e.g. "LC-12". IDs are opaque to the bot and never parsed.
type StopID string

// Stop is a catalog entry mirrored from the upstream feed. Catalog
// order is the physical order of stops along the line and is preserved
// everywhere stops are listed.
type Stop struct {
	ID   StopID `json:"id"`
	Name string `json:"name"`
}

// DefaultFavoritesCapacity is the number of stops a user may save
// before Add fails with ErrCapacityExceeded.
const DefaultFavoritesCapacity = 5

// Favorite is one user-saved stop reference. Favorites hold only the
// stop ID; names are resolved against the catalog at render time so a
// renamed stop never leaves a stale label behind.
type Favorite struct {
	UserID string `json:"user_id"`
	StopID StopID `json:"stop_id"`
}
