package domain

import "time"

// DialogState names the position of a user inside the conversation.
type DialogState string

const (
	// StateIdle is the resting state: top-level menu shown, nothing
	// pending. Every completed or aborted flow returns here.
	StateIdle DialogState = "idle"

	// StateAwaitingStopQuery means the bot asked for a stop name and is
	// waiting for free text or a picker tap.
	StateAwaitingStopQuery DialogState = "awaiting_stop_query"

	// StateShowingSchedule means a departure board for CurrentStop was
	// just rendered and contextual actions (refresh, save) apply to it.
	StateShowingSchedule DialogState = "showing_schedule"

	// StateManagingFavorites means the favorites list was rendered and
	// remove taps apply to it.
	StateManagingFavorites DialogState = "managing_favorites"
)

// Session is the per-user runtime snapshot. It carries only transient
// dialog position; durable data (favorites) lives in its own store.
type Session struct {
	UserID string      `json:"user_id"`
	State  DialogState `json:"state"`

	// CurrentStop is the stop whose schedule is on screen. Only
	// meaningful in StateShowingSchedule.
	CurrentStop StopID `json:"current_stop,omitempty"`

	// Busy marks an in-flight upstream fetch for this user. While set,
	// further requests are acknowledged and discarded instead of piling
	// up concurrent fetches.
	Busy      bool      `json:"busy,omitempty"`
	BusySince time.Time `json:"busy_since,omitzero"`

	// LastSeen is bumped on every handled event and drives idle expiry.
	LastSeen time.Time `json:"last_seen"`
}

// NewSession returns a fresh idle session for the user.
func NewSession(userID string) *Session {
	return &Session{
		UserID:   userID,
		State:    StateIdle,
		LastSeen: time.Now().UTC(),
	}
}

// ResetTransient drops everything except identity: back to idle, no
// selected stop, busy marker cleared. Used on idle expiry and after
// internal errors.
func (s *Session) ResetTransient() {
	s.State = StateIdle
	s.CurrentStop = ""
	s.Busy = false
	s.BusySince = time.Time{}
}

// MarkBusy records the start of an upstream fetch.
func (s *Session) MarkBusy(now time.Time) {
	s.Busy = true
	s.BusySince = now
}

// ClearBusy removes the busy marker.
func (s *Session) ClearBusy() {
	s.Busy = false
	s.BusySince = time.Time{}
}

// BusyStale reports whether a busy marker has outlived maxAge. A stale
// marker belongs to a fetch that never completed (crash, lost apply)
// and must not block the user forever.
func (s *Session) BusyStale(now time.Time, maxAge time.Duration) bool {
	return s.Busy && now.Sub(s.BusySince) > maxAge
}

// Clone returns an independent copy. Session holds no reference types,
// so a shallow copy is a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
