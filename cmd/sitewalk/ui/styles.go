// Package ui provides the visual styling for the sitewalk terminal
// wizard: a small lipgloss theme with semantic colors for grades and
// status messages.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	ColorPrimary = lipgloss.Color("#1E5AA8") // steel blue
	ColorAccent  = lipgloss.Color("#F2A33C") // safety orange
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#3B4252")

	ColorPass = lipgloss.Color("#4CAF50")
	ColorFail = lipgloss.Color("#E53935")
	ColorWarn = lipgloss.Color("#FFC107")
)

// Styles holds the styled components used by the wizard views.
type Styles struct {
	Title    Style
	Subtitle Style
	Header   Style
	Footer   Style
	Muted    Style
	Selected Style

	Pass  Style
	Fail  Style
	Warn  Style
	Info  Style
	Error Style

	Panel Style
	Badge Style
}

// Style aliases lipgloss.Style so callers only import this package.
type Style = lipgloss.Style

// NewStyles builds the default style set.
func NewStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true),

		Header: lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1),

		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Selected: lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true),

		Pass: lipgloss.NewStyle().
			Foreground(ColorPass).
			Bold(true),

		Fail: lipgloss.NewStyle().
			Foreground(ColorFail).
			Bold(true),

		Warn: lipgloss.NewStyle().
			Foreground(ColorWarn),

		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),

		Error: lipgloss.NewStyle().
			Foreground(ColorFail).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2),

		Badge: lipgloss.NewStyle().
			Background(ColorAccent).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Bold(true),
	}
}

// RenderDivider returns a horizontal rule of the given width.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Muted.Render(strings.Repeat("─", width))
}

// ScoreBadge renders a score with pass/warn/fail coloring.
func (s Styles) ScoreBadge(score int) string {
	text := fmt.Sprintf(" %d%% ", score)
	switch {
	case score >= 80:
		return s.Pass.Render(text)
	case score >= 50:
		return s.Warn.Render(text)
	default:
		return s.Fail.Render(text)
	}
}

// NoColor reports whether color output is disabled for this terminal.
func NoColor() bool {
	return os.Getenv("NO_COLOR") != ""
}
