package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hersh/stackrush/internal/tui"
)

// Standalone solo play. For matches run ./cmd/server and connect with
// ./cmd/client -name YourName.
func main() {
	name := "Player"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	p := tea.NewProgram(tui.NewModel(name, nil), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
