package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders the bot's markdown-ish
// reply text (Telegram emphasis) using glamour.
func NewRenderer() func(string) (string, error) {
	// Auto style detects light/dark terminal backgrounds.
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
