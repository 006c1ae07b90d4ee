package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "235", Dark: "236"})
)

var brandStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

// Connection badge styles.
var (
	badgeReadyStyle        = lipgloss.NewStyle().Foreground(colorGreen)
	badgeConnectingStyle   = lipgloss.NewStyle().Foreground(colorCyan)
	badgeDisconnectedStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// Log line styles.
var (
	timeStyle    = lipgloss.NewStyle().Foreground(colorDim)
	statusStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	pushStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
)

// Key hint styles for status bar.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)
