package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tether-io/tether/internal/link"
)

func renderHeader(target link.Target, itemCount int, width int) string {
	left := fmt.Sprintf(" %s  %s", brandStyle.Render("● Tether"), hintStyle.Render(target.String()))
	right := hintStyle.Render(fmt.Sprintf("%d items listed", itemCount)) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
