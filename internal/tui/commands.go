package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tether-io/tether/internal/models"
)

// stateRefreshInterval paces status bar updates.
const stateRefreshInterval = 250 * time.Millisecond

// Calls return promptly with ErrNotReady when disconnected; when connected
// the supervisor bounds them with its own call timeout.
func addItemCmd(client Client, item models.Item) tea.Cmd {
	return func() tea.Msg {
		err := client.AddItem(context.Background(), item)
		return AddResultMsg{Item: item, Err: err}
	}
}

func listItemsCmd(client Client) tea.Cmd {
	return func() tea.Msg {
		items, err := client.ListItems(context.Background())
		return ItemsLoadedMsg{Items: items, Err: err}
	}
}

func connectCmd(client Client) tea.Cmd {
	return func() tea.Msg {
		_ = client.EnsureConnected()
		return stateTickMsg{}
	}
}

func stateTick() tea.Cmd {
	return tea.Tick(stateRefreshInterval, func(time.Time) tea.Msg {
		return stateTickMsg{}
	})
}
