package domain

import (
	"errors"
	"fmt"
	"strings"
)

// EventKind discriminates the inbound event variants.
type EventKind string

const (
	// EventText is free text typed by the user.
	EventText EventKind = "text"
	// EventButton is an inline keyboard tap; Data carries the callback
	// payload the keyboard was built with.
	EventButton EventKind = "button"
	// EventCommand is a slash command, e.g. "/start".
	EventCommand EventKind = "command"
)

// Command names the slash commands understood by the bot.
type Command string

const (
	CommandStart     Command = "start"
	CommandSearch    Command = "buscar"
	CommandFavorites Command = "favoritas"
	CommandLine      Command = "linea"
	CommandInfo      Command = "info"
)

// ButtonOp is the action encoded in a callback payload.
type ButtonOp string

const (
	// Navigation ops, valid from any dialog state.
	OpMenu      ButtonOp = "menu"
	OpSearch    ButtonOp = "search"
	OpFavorites ButtonOp = "favs"
	OpLine      ButtonOp = "line"
	OpInfo      ButtonOp = "info"

	// Contextual ops carrying a stop ID.
	OpView   ButtonOp = "view"
	OpAdd    ButtonOp = "add"
	OpRemove ButtonOp = "del"
)

// ErrBadCallback is returned by ParseCallback for payloads the bot
// never produced. Handlers treat it as user input noise, not a fault.
var ErrBadCallback = errors.New("unrecognized callback payload")

// Button is a decoded callback payload.
type Button struct {
	Op     ButtonOp
	StopID StopID
}

// Callback encodes the button for the wire, e.g. "view:LC-12". Ops
// without a stop encode as the bare op name.
func (b Button) Callback() string {
	if b.StopID == "" {
		return string(b.Op)
	}
	return string(b.Op) + ":" + string(b.StopID)
}

// ParseCallback decodes a payload produced by Button.Callback. The
// stop-carrying ops require a non-empty ID; navigation ops reject one.
func ParseCallback(data string) (Button, error) {
	op, id, _ := strings.Cut(data, ":")
	b := Button{Op: ButtonOp(op), StopID: StopID(id)}
	switch b.Op {
	case OpView, OpAdd, OpRemove:
		if b.StopID == "" {
			return Button{}, fmt.Errorf("%w: %q misses stop id", ErrBadCallback, data)
		}
		return b, nil
	case OpMenu, OpSearch, OpFavorites, OpLine, OpInfo:
		if b.StopID != "" {
			return Button{}, fmt.Errorf("%w: %q carries unexpected payload", ErrBadCallback, data)
		}
		return b, nil
	default:
		return Button{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
}

// Event is a normalized inbound user interaction. Exactly one of Text,
// Data or Command is meaningful, selected by Kind.
type Event struct {
	UserID  string    `json:"user_id"`
	Kind    EventKind `json:"kind"`
	Text    string    `json:"text,omitempty"`    // EventText
	Data    string    `json:"data,omitempty"`    // EventButton callback payload
	Command Command   `json:"command,omitempty"` // EventCommand
}

// Validate rejects events a transport should never emit. Payload-level
// noise (unknown callbacks, empty text) is a dialog concern and is
// handled with a reprompt instead.
func (e Event) Validate() error {
	if e.UserID == "" {
		return errors.New("event misses user id")
	}
	switch e.Kind {
	case EventText, EventButton, EventCommand:
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// TextEvent builds a free-text event.
func TextEvent(userID, text string) Event {
	return Event{UserID: userID, Kind: EventText, Text: text}
}

// ButtonEvent builds a button-tap event from a callback payload.
func ButtonEvent(userID, data string) Event {
	return Event{UserID: userID, Kind: EventButton, Data: data}
}

// CommandEvent builds a slash-command event.
func CommandEvent(userID string, cmd Command) Event {
	return Event{UserID: userID, Kind: EventCommand, Command: cmd}
}
