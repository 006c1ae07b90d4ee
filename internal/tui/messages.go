package tui

import "github.com/tether-io/tether/internal/models"

// StatusMsg carries a status line from the supervisor.
type StatusMsg struct {
	Text string
}

// ItemAddedMsg carries an item pushed by the service.
type ItemAddedMsg struct {
	Item models.Item
}

// AddResultMsg reports the outcome of an add action.
type AddResultMsg struct {
	Item models.Item
	Err  error
}

// ItemsLoadedMsg reports the outcome of a get action.
type ItemsLoadedMsg struct {
	Items []models.Item
	Err   error
}

// stateTickMsg triggers a connection state refresh.
type stateTickMsg struct{}
