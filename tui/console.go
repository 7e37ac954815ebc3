package tui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgtagger/logging"
)

// ConsolePanel shows the in-memory log buffer in a scrollable viewport
type ConsolePanel struct {
	console  *logging.Console
	Viewport viewport.Model
	Width    int
	Height   int
}

// NewConsolePanel creates a panel backed by console
func NewConsolePanel(console *logging.Console, width, height int) *ConsolePanel {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	p := &ConsolePanel{console: console, Viewport: vp, Width: width, Height: height}
	p.Refresh()
	return p
}

// SetSize updates the panel dimensions
func (p *ConsolePanel) SetSize(width, height int) {
	p.Width = width
	p.Height = height
	p.Viewport.Width = width
	p.Viewport.Height = height
	p.Refresh()
}

// Refresh re-renders the buffer, following the tail if the view was already
// at the bottom
func (p *ConsolePanel) Refresh() {
	follow := p.Viewport.AtBottom() || p.Viewport.TotalLineCount() == 0
	p.Viewport.SetContent(p.Render())
	if follow {
		p.Viewport.GotoBottom()
	}
}

// Update scrolls the viewport
func (p *ConsolePanel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.Viewport, cmd = p.Viewport.Update(msg)
	return cmd
}

// View returns the viewport view for Bubble Tea
func (p *ConsolePanel) View() string {
	return p.Viewport.View()
}

// Render renders all entries to a string
func (p *ConsolePanel) Render() string {
	if p.console == nil || p.console.Len() == 0 {
		return MutedStyle.Render("  No log messages yet")
	}

	entries := p.console.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderEntry(e))
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e logging.Entry) string {
	icon, style := entryStyle(e.Level)
	return MutedStyle.Render(e.Time.Format("15:04:05")) + " " +
		style.Render(icon) + " " +
		style.Render(e.Message)
}

// entryStyle returns icon and style for a log level
func entryStyle(level slog.Level) (string, lipgloss.Style) {
	switch {
	case level >= slog.LevelError:
		return "[!]", lipgloss.NewStyle().Foreground(ColorError)
	case level >= slog.LevelWarn:
		return "[~]", lipgloss.NewStyle().Foreground(ColorWarning)
	case level == logging.LevelSuccess:
		return "[x]", lipgloss.NewStyle().Foreground(ColorSuccess)
	case level >= slog.LevelInfo:
		return "[-]", lipgloss.NewStyle().Foreground(ColorText)
	default:
		return "[.]", lipgloss.NewStyle().Foreground(ColorMuted)
	}
}
