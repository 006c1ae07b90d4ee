// Package tui implements the interactive item client.
package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

// Client is the connection the TUI drives. *link.Supervisor implements it.
type Client interface {
	AddItem(ctx context.Context, item models.Item) error
	ListItems(ctx context.Context) ([]models.Item, error)
	EnsureConnected() error
	State() link.State
	Target() link.Target
	Shutdown()
}

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// programSink forwards supervisor output into the running program.
type programSink struct {
	ref *programRef
}

func (s programSink) SetStatus(text string)      { s.ref.Send(StatusMsg{Text: text}) }
func (s programSink) ItemAdded(item models.Item) { s.ref.Send(ItemAddedMsg{Item: item}) }

// Run launches the TUI. open builds the client with a sink that feeds the
// program; the client is shut down when the TUI exits.
func Run(open func(sink link.StatusSink) (Client, error)) error {
	ref := &programRef{}
	client, err := open(programSink{ref: ref})
	if err != nil {
		return fmt.Errorf("failed to open client: %w", err)
	}

	p := tea.NewProgram(NewModel(client), tea.WithAltScreen())

	// Store program reference for goroutine sends
	ref.Set(p)

	_, err = p.Run()
	ref.Clear()
	client.Shutdown()
	return err
}
