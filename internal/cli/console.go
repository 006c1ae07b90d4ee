package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

// consoleSink prints supervisor output as timestamped lines. Styling and
// timestamps are dropped when the output is not a terminal.
type consoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
	now    func() time.Time
}

func newConsoleSink(f *os.File) *consoleSink {
	return &consoleSink{
		w:      f,
		styled: term.IsTerminal(int(f.Fd())),
		now:    time.Now,
	}
}

func (c *consoleSink) SetStatus(text string) {
	c.line(styleForStatus(text).Render(text), text)
}

func (c *consoleSink) ItemAdded(item models.Item) {
	text := "item added: " + item.String()
	c.line(stylePush.Render(text), text)
}

// result prints the outcome of a caller-facing operation.
func (c *consoleSink) result(op string, err error) {
	text := link.Describe(op, err)
	switch link.Classify(err) {
	case link.OK:
		c.line(styleSuccess.Render(text), text)
	case link.NotReady:
		c.line(styleWarning.Render(text), text)
	default:
		c.line(styleError.Render(text), text)
	}
}

// plain prints an unstamped detail line.
func (c *consoleSink) plain(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, text)
}

func (c *consoleSink) line(styled, plain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.styled {
		fmt.Fprintln(c.w, plain)
		return
	}
	stamp := styleHint.Render(c.now().Format("15:04:05"))
	fmt.Fprintln(c.w, stamp+" "+styled)
}

func styleForStatus(text string) lipgloss.Style {
	switch text {
	case "service connected":
		return styleSuccess
	case "service disconnected", "service died, reconnecting", "service died while connecting, reconnecting":
		return styleWarning
	default:
		return styleValue
	}
}
