// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and forwards key presses to the player loop
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a transport request from the TUI
type Command int

const (
	CommandTogglePause Command = iota
	CommandStop
	CommandNext
)

// QuitMsg signals that the user asked to exit
type QuitMsg struct{}

// Controls holds channels for communication from the TUI to the player
type Controls struct {
	Commands chan Command
	Volume   chan float64 // gain, 1.0 = 100%
	Quit     chan QuitMsg
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
		Volume:   make(chan float64, 10),
		Quit:     make(chan QuitMsg, 1),
	}
}

// send queues cmd without blocking the UI; a full queue drops the key press
func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *Controls) setVolume(percent int) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- float64(percent) / 100:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- QuitMsg{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		volume:   100,
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
