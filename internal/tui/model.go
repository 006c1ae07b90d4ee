package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

// Model is the root bubbletea model.
type Model struct {
	client Client
	log    *LogView

	width  int
	height int

	state     link.State
	itemCount int
	quitting  bool

	// newItem generates the item added by the add key.
	newItem func() models.Item
}

// NewModel creates the root model.
func NewModel(client Client) Model {
	return Model{
		client:  client,
		log:     NewLogView(),
		state:   client.State(),
		newItem: models.RandomItem,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(connectCmd(m.client), stateTick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header and status bar take one line each.
		m.log.SetSize(msg.Width, max(msg.Height-2, 1))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StatusMsg:
		m.log.Append(styleStatus(msg.Text))
		m.state = m.client.State()
		return m, nil

	case ItemAddedMsg:
		m.log.Append(pushStyle.Render("item added: " + msg.Item.String()))
		return m, nil

	case AddResultMsg:
		m.log.Append(styleResult(link.Describe("add "+msg.Item.String(), msg.Err), msg.Err))
		return m, nil

	case ItemsLoadedMsg:
		m.log.Append(styleResult(link.Describe("get", msg.Err), msg.Err))
		if msg.Err == nil {
			m.itemCount = len(msg.Items)
			for i, item := range msg.Items {
				m.log.Append(fmt.Sprintf("  %3d  %s", i+1, item.String()))
			}
		}
		return m, nil

	case stateTickMsg:
		m.state = m.client.State()
		if m.quitting {
			return m, nil
		}
		return m, stateTick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Add):
		return m, addItemCmd(m.client, m.newItem())
	case key.Matches(msg, keys.Get):
		return m, listItemsCmd(m.client)
	case key.Matches(msg, keys.Connect):
		return m, connectCmd(m.client)
	case key.Matches(msg, keys.Up):
		m.log.ScrollUp()
	case key.Matches(msg, keys.Down):
		m.log.ScrollDown()
	case key.Matches(msg, keys.PageUp):
		m.log.PageUp()
	case key.Matches(msg, keys.PageDown):
		m.log.PageDown()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.client.Target(), m.itemCount, m.width),
		lipgloss.NewStyle().Height(max(m.height-2, 1)).Render(m.log.View()),
		renderStatusBar(m.state, m.width),
	)
}

func styleStatus(text string) string {
	switch text {
	case "service connected":
		return successStyle.Render(text)
	case "service disconnected", "service died, reconnecting":
		return warnStyle.Render(text)
	default:
		return statusStyle.Render(text)
	}
}

func styleResult(text string, err error) string {
	switch link.Classify(err) {
	case link.OK:
		return successStyle.Render(text)
	case link.NotReady:
		return warnStyle.Render(text)
	default:
		return errorStyle.Render(text)
	}
}
