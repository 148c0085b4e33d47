package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for the chat surface.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Metro-green gradient.
	s1 := termenv.String("  ____                      _").Foreground(p.Color("#6ee7b7"))
	s2 := termenv.String(" |  _ \\ __ _ _ __ __ _  __| | __ _").Foreground(p.Color("#34d399"))
	s3 := termenv.String(" | |_) / _` | '__/ _` |/ _` |/ _` |").Foreground(p.Color("#10b981"))
	s4 := termenv.String(" |  __/ (_| | | | (_| | (_| | (_| |").Foreground(p.Color("#059669"))
	s5 := termenv.String(" |_|   \\__,_|_|  \\__,_|\\__,_|\\__,_|").Foreground(p.Color("#047857"))
	s6 := termenv.String("        Metro de Granada 🚇").Foreground(p.Color("#065f46"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Println()
}
