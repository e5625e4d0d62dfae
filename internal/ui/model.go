// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"math"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	volumeStep = 5   // percent per key press
	maxVolume  = 200 // percent, matches the session's gain ceiling
)

var (
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	hintStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Track
	track      string
	trackIndex int
	trackCount int
	trackID    string

	// Stream
	codec      string
	sampleRate int
	channels   int
	bitDepth   int
	backend    string

	// Playback
	state    string
	volume   int // percent
	position float64

	// Stats
	buffered  int
	capacity  int
	played    uint64
	underruns uint64

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Debug
	showDebug bool

	// Control
	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders playback state
func (m Model) renderHeader() string {
	icon := "■"
	switch m.state {
	case "playing":
		icon = "▶"
	case "paused":
		icon = "‖"
	}

	queue := ""
	if m.trackCount > 0 {
		queue = fmt.Sprintf("Track %d/%d", m.trackIndex, m.trackCount)
	}

	return fmt.Sprintf(`┌─ Resonate Deck ──────────────────────────────────────┐
│ %s %-9s %-41s │
├──────────────────────────────────────────────────────┤
`, icon, m.state, queue)
}

// renderStreamInfo renders current track and format
func (m Model) renderStreamInfo() string {
	if m.track == "" {
		return "│ Nothing loaded                                       │\n"
	}

	s := fmt.Sprintf("│ Track:  %-44s │\n", truncate(m.track, 44))
	s += fmt.Sprintf("│ Time:   %-44s │\n", formatPosition(m.position))
	if m.codec != "" {
		format := fmt.Sprintf("%s %dHz %s %d-bit", m.codec, m.sampleRate, channelName(m.channels), m.bitDepth)
		s += fmt.Sprintf("│ Format: %-44s │\n", truncate(format, 44))
	}
	if m.backend != "" {
		s += fmt.Sprintf("│ Output: %-44s │\n", m.backend)
	}

	return s
}

// renderControls renders volume and buffer status
func (m Model) renderControls() string {
	volumeBar := renderBar(m.volume, maxVolume, 20)

	fill := 0
	if m.capacity > 0 {
		fill = m.buffered * 100 / m.capacity
	}
	bufferBar := renderBar(fill, 100, 20)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-18s │\n"+
		"│ Buffer: [%s] %3d%%%-18s │\n",
		volumeBar, m.volume, "",
		bufferBar, fill, "")
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  Played: %-12d Underruns: %-14d │
│                                                      │
`, m.played, m.underruns)
}

// renderHelp renders keyboard shortcuts and any playback warning below the box
func (m Model) renderHelp() string {
	s := `│ space:Play/Pause  s:Stop  n:Next  ↑/↓:Vol  d  q:Quit │
└──────────────────────────────────────────────────────┘
`
	if m.underruns > 0 {
		s += warnStyle.Render(fmt.Sprintf("%d underruns", m.underruns)) + " " +
			hintStyle.Render("(try a larger -buffer)") + "\n"
	}
	return s
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Track ID:   %-38s │
│   Goroutines: %-38d │
│   Memory:     %-38s │
│   Ring:       %-38s │
`, truncate(m.trackID, 38), m.goroutines,
		fmt.Sprintf("%.1f MB alloc / %.1f MB sys", float64(m.memAlloc)/1e6, float64(m.memSys)/1e6),
		fmt.Sprintf("%d / %d frames", m.buffered, m.capacity))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ", "p":
		m.controls.send(CommandTogglePause)
	case "s":
		m.controls.send(CommandStop)
	case "n":
		m.controls.send(CommandNext)
	case "up":
		if m.volume < maxVolume {
			m.volume = min(m.volume+volumeStep, maxVolume)
			m.controls.setVolume(m.volume)
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-volumeStep, 0)
			m.controls.setVolume(m.volume)
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Track != "" {
		m.track = filepath.Base(msg.Track)
		m.trackIndex = msg.TrackIndex
		m.trackCount = msg.TrackCount
	}
	if msg.TrackID != "" {
		m.trackID = msg.TrackID
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Volume != nil {
		m.volume = int(math.Round(*msg.Volume * 100))
	}
	if msg.Capacity != 0 {
		m.buffered = msg.Buffered
		m.capacity = msg.Capacity
		m.played = msg.Played
		m.underruns = msg.Underruns
		m.position = msg.Position
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// StatusMsg updates TUI state
type StatusMsg struct {
	State      string
	Track      string
	TrackIndex int
	TrackCount int
	TrackID    string
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Backend    string
	Volume     *float64 // gain, 1.0 = 100%
	Buffered   int
	Capacity   int
	Played     uint64
	Underruns  uint64
	Position   float64 // seconds
	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatPosition(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
