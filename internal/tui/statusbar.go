package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tether-io/tether/internal/link"
)

func renderStatusBar(state link.State, width int) string {
	left := " " + keyHint(keys.Add.Help().Key, keys.Add.Help().Desc) + "  " +
		keyHint(keys.Get.Help().Key, keys.Get.Help().Desc) + "  " +
		keyHint(keys.Connect.Help().Key, keys.Connect.Help().Desc) + "  " +
		keyHint(keys.Quit.Help().Key, keys.Quit.Help().Desc)

	right := renderConnection(state) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderConnection(state link.State) string {
	switch state {
	case link.Ready:
		return badgeReadyStyle.Render("Connected")
	case link.Connecting:
		return badgeConnectingStyle.Render("Connecting…")
	default:
		return badgeDisconnectedStyle.Render("⚠ Disconnected")
	}
}

func keyHint(k, desc string) string {
	if k == "" {
		return hintStyle.Render(desc)
	}
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}
