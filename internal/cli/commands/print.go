package commands

import "github.com/charmbracelet/glamour"

// Printer turns a markdown report into terminal output.
type Printer func(markdown string) (string, error)

// TerminalPrinter renders markdown with glamour, picking a dark or light
// style from the terminal and wrapping at width columns.
func TerminalPrinter(width int) Printer {
	return func(markdown string) (string, error) {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// PlainPrinter renders markdown without colors, for pipes and tests.
func PlainPrinter() Printer {
	return func(markdown string) (string, error) {
		return glamour.Render(markdown, "notty")
	}
}
