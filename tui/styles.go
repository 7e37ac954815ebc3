// Package tui provides the interactive gallery for imgtagger using Charm libraries
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"imgtagger/store"
)

// Color palette - Catppuccin Mocha inspired
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"} // Violet
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0EA5E9", Dark: "#38BDF8"} // Sky blue
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"} // Amber

	// Semantic colors
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"} // Emerald
	ColorWarning = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"} // Amber
	ColorError   = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"} // Red
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#6366F1", Dark: "#818CF8"} // Indigo

	// Neutral colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F1F5F9"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}

	ColorBrand    = lipgloss.AdaptiveColor{Light: "#DB2777", Dark: "#F472B6"} // Pink
	ColorSelected = lipgloss.AdaptiveColor{Light: "#EDE9FE", Dark: "#2E1065"}
)

// Base styles
var (
	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	BodyStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Status styles
	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	// Component styles
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	FocusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	CursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SelectedRowStyle = lipgloss.NewStyle().
				Background(ColorSelected)

	// Badge styles
	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF"))

	BadgeSuccessStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(ColorSuccess).
				Foreground(lipgloss.Color("#FFFFFF"))

	BadgeWarningStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(ColorWarning).
				Foreground(lipgloss.Color("#000000"))

	BadgeErrorStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ColorError).
			Foreground(lipgloss.Color("#FFFFFF"))

	BadgeMutedStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ColorBorder).
			Foreground(ColorText)
)

// Header renders the application title line
func Header(version string) string {
	title := lipgloss.NewStyle().
		Foreground(ColorBrand).
		Bold(true).
		Render("▣ imgtagger")
	if version == "" {
		return title
	}
	return title + MutedStyle.Render(" "+version)
}

// StatusIcon returns a one-cell marker for an item state
func StatusIcon(k store.Kind) string {
	switch k {
	case store.KindDone:
		return lipgloss.NewStyle().Foreground(ColorSuccess).Render("✓")
	case store.KindError:
		return lipgloss.NewStyle().Foreground(ColorError).Render("✗")
	case store.KindProcessing:
		return lipgloss.NewStyle().Foreground(ColorAccent).Render("◐")
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted).Render("○")
	}
}

// StatusBadge renders the state label used in the detail pane
func StatusBadge(k store.Kind) string {
	switch k {
	case store.KindDone:
		return BadgeSuccessStyle.Render("DONE")
	case store.KindError:
		return BadgeErrorStyle.Render("ERROR")
	case store.KindProcessing:
		return BadgeWarningStyle.Render("PROCESSING")
	default:
		return BadgeMutedStyle.Render("PENDING")
	}
}

// SpinnerFrames contains frames for the custom spinner animation
var SpinnerFrames = []string{
	"[■    ]",
	"[ ■   ]",
	"[  ■  ]",
	"[   ■ ]",
	"[    ■]",
	"[   ■ ]",
	"[  ■  ]",
	"[ ■   ]",
}

// Card renders a card component
func Card(title, content string, width int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	contentStyle := lipgloss.NewStyle().
		Foreground(ColorText)

	cardStyle := BoxStyle.Width(width)

	innerContent := titleStyle.Render(title) + "\n" + contentStyle.Render(content)
	return cardStyle.Render(innerContent)
}

// CountsLine renders the store tallies for the status bar
func CountsLine(c store.Counts) string {
	parts := []string{
		BodyStyle.Render(fmt.Sprintf("%d images", c.Total)),
		MutedStyle.Render(fmt.Sprintf("%d pending", c.Pending)),
		WarningStyle.Render(fmt.Sprintf("%d processing", c.Processing)),
		lipgloss.NewStyle().Foreground(ColorSuccess).Render(fmt.Sprintf("%d done", c.Done)),
		lipgloss.NewStyle().Foreground(ColorError).Render(fmt.Sprintf("%d failed", c.Error)),
	}
	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(" | ")
	return strings.Join(parts, sep)
}

// truncate cuts s to width cells on its first line, adding an ellipsis
func truncate(s string, width int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
