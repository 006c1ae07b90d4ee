package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/x/ansi"
)

// maxLogLines bounds the scrollback.
const maxLogLines = 500

// LogView is a scrolling, append-only activity log.
type LogView struct {
	lines    []string
	viewport viewport.Model
	width    int
	now      func() time.Time
}

// NewLogView creates an empty log view.
func NewLogView() *LogView {
	return &LogView{
		viewport: viewport.New(80, 20),
		width:    80,
		now:      time.Now,
	}
}

// SetSize updates dimensions.
func (l *LogView) SetSize(width, height int) {
	l.width = width
	l.viewport.Width = width
	l.viewport.Height = height
	l.refresh()
}

// Append adds a pre-styled line, stamped with the current time.
func (l *LogView) Append(line string) {
	stamp := timeStyle.Render(l.now().Format("15:04:05"))
	l.lines = append(l.lines, stamp+" "+line)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}

	follow := l.viewport.AtBottom()
	l.refresh()
	if follow {
		l.viewport.GotoBottom()
	}
}

// Lines returns the raw log lines.
func (l *LogView) Lines() []string {
	return l.lines
}

func (l *LogView) ScrollUp()   { l.viewport.LineUp(1) }
func (l *LogView) ScrollDown() { l.viewport.LineDown(1) }
func (l *LogView) PageUp()     { l.viewport.HalfViewUp() }
func (l *LogView) PageDown()   { l.viewport.HalfViewDown() }

// View renders the visible window.
func (l *LogView) View() string {
	return l.viewport.View()
}

func (l *LogView) refresh() {
	truncated := make([]string, len(l.lines))
	for i, line := range l.lines {
		truncated[i] = ansi.Truncate(line, l.width, "…")
	}
	l.viewport.SetContent(strings.Join(truncated, "\n"))
}
