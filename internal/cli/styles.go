package cli

import "github.com/charmbracelet/lipgloss"

// palette mirrors the TUI colors so one-shot output reads the same.
var palette = struct {
	fg, dim, ok, bad, warn, accent lipgloss.AdaptiveColor
}{
	fg:     lipgloss.AdaptiveColor{Light: "0", Dark: "15"},
	dim:    lipgloss.AdaptiveColor{Light: "242", Dark: "240"},
	ok:     lipgloss.AdaptiveColor{Light: "28", Dark: "40"},
	bad:    lipgloss.AdaptiveColor{Light: "160", Dark: "196"},
	warn:   lipgloss.AdaptiveColor{Light: "136", Dark: "220"},
	accent: lipgloss.AdaptiveColor{Light: "30", Dark: "45"},
}

var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(palette.accent)
	styleVersion = lipgloss.NewStyle().Foreground(palette.ok)
	styleLabel   = lipgloss.NewStyle().Foreground(palette.dim)
	styleValue   = lipgloss.NewStyle().Foreground(palette.fg)
	styleHint    = styleLabel

	// Status lines.
	styleSuccess = lipgloss.NewStyle().Foreground(palette.ok)
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(palette.warn)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(palette.bad)
	stylePush    = lipgloss.NewStyle().Foreground(palette.accent)
)
