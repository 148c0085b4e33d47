package domain

// Reply is the outbound response descriptor handed back to transports.
// Text is already localized; Keyboard, when present, describes the
// inline menu to render alongside it.
type Reply struct {
	Text     string `json:"text"`
	Keyboard *Menu  `json:"keyboard,omitempty"`
}

// Menu is a renderable keyboard descriptor: rows of buttons, already
// labeled and wired with callback payloads. Transports map it onto
// their native widget (inline keyboard, numbered REPL options, JSON).
type Menu struct {
	Rows []MenuRow `json:"rows"`
}

// MenuRow is one horizontal row of buttons.
type MenuRow []MenuButton

// MenuButton is a single tappable button. Data round-trips through the
// transport untouched and comes back as Event.Data on a tap.
type MenuButton struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Btn is a shorthand constructor used by keyboard builders and tests.
func Btn(label string, b Button) MenuButton {
	return MenuButton{Label: label, Data: b.Callback()}
}
