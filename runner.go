package parada

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/granalabs/parada/pkg/domain"
)

// Runner drives a line-oriented conversation against a Bot using the
// provided IO. This allows for easy testing and integration with
// different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	UserID   string
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms reply text before outputting it. This
// allows for TUI rendering (markdown to ANSI) without coupling the
// core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set by the
// caller (os.Stdin/os.Stdout in the CLI, buffers in tests).
func NewRunner() *Runner {
	return &Runner{UserID: "local"}
}

// Run starts the conversation with /start and loops until EOF or an
// exit word. Menu buttons print as numbered options; typing the number
// taps the button, "/word" sends a command, anything else is free text.
func (r *Runner) Run(bot *Bot) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	userID := r.UserID
	if userID == "" {
		userID = "local"
	}

	ctx := context.Background()
	var options []domain.MenuButton

	send := func(ev domain.Event) error {
		reply, err := bot.Handle(ctx, ev)
		if err != nil {
			return fmt.Errorf("handle error: %w", err)
		}
		options = r.printReply(reply)
		return nil
	}

	if err := send(domain.CommandEvent(userID, domain.CommandStart)); err != nil {
		return err
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Graceful exit on EOF.
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "salir" {
			fmt.Fprintln(r.Output, "¡Hasta pronto! 👋")
			return nil
		}

		ev := domain.TextEvent(userID, input)
		if cmd, ok := strings.CutPrefix(input, "/"); ok {
			ev = domain.CommandEvent(userID, domain.Command(cmd))
		} else if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
			ev = domain.ButtonEvent(userID, options[n-1].Data)
		}

		if err := send(ev); err != nil {
			return err
		}
	}
}

// printReply writes the reply text and its menu, returning the flat
// option list the next numeric input indexes into.
func (r *Runner) printReply(reply domain.Reply) []domain.MenuButton {
	output := reply.Text
	if r.Renderer != nil {
		if rendered, err := r.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))

	if reply.Keyboard == nil {
		return nil
	}
	var options []domain.MenuButton
	for _, row := range reply.Keyboard.Rows {
		for _, btn := range row {
			options = append(options, btn)
			fmt.Fprintf(r.Output, "  %d) %s\n", len(options), btn.Label)
		}
	}
	return options
}
