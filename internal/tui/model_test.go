package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

type fakeClient struct {
	state    link.State
	added    []models.Item
	items    []models.Item
	err      error
	connects int
}

func (c *fakeClient) AddItem(_ context.Context, item models.Item) error {
	if c.err != nil {
		return c.err
	}
	c.added = append(c.added, item)
	return nil
}

func (c *fakeClient) ListItems(context.Context) ([]models.Item, error) {
	return c.items, c.err
}

func (c *fakeClient) EnsureConnected() error {
	c.connects++
	return nil
}

func (c *fakeClient) State() link.State   { return c.state }
func (c *fakeClient) Target() link.Target { return link.Target{Service: "items", Namespace: "test"} }
func (c *fakeClient) Shutdown()           {}

func newTestModel(c *fakeClient) Model {
	m := NewModel(c)
	m.newItem = func() models.Item { return models.NewItem("name7", 3) }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func lastLine(m Model) string {
	lines := m.log.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func TestAddKeyRunsAddItem(t *testing.T) {
	c := &fakeClient{state: link.Ready}
	m := newTestModel(c)

	_, cmd := m.Update(keyMsg("a"))
	if cmd == nil {
		t.Fatal("add key returned no command")
	}
	msg := cmd()
	res, ok := msg.(AddResultMsg)
	if !ok {
		t.Fatalf("command produced %T, want AddResultMsg", msg)
	}
	if res.Err != nil {
		t.Errorf("AddResultMsg.Err = %v, want nil", res.Err)
	}
	if len(c.added) != 1 || c.added[0].Name != "name7" {
		t.Errorf("added = %v, want [name7]", c.added)
	}
}

func TestResultMessagesAreLogged(t *testing.T) {
	item := models.NewItem("name1", 1)
	tests := []struct {
		name string
		msg  tea.Msg
		want string
	}{
		{"add ok", AddResultMsg{Item: item}, "add " + item.String() + " success"},
		{"add not ready", AddResultMsg{Item: item, Err: link.ErrNotReady}, "attempting to reconnect, please retry later"},
		{"add transport", AddResultMsg{Item: item, Err: &link.TransportError{Err: errors.New("eof")}}, "service connection lost"},
		{"get rejected", ItemsLoadedMsg{Err: errors.New("boom")}, "get failed: boom"},
		{"status", StatusMsg{Text: "service connected"}, "service connected"},
		{"push", ItemAddedMsg{Item: item}, "item added: " + item.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(&fakeClient{})
			updated, _ := m.Update(tt.msg)
			if got := lastLine(updated.(Model)); !strings.Contains(got, tt.want) {
				t.Errorf("last log line = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestItemsLoadedListsItems(t *testing.T) {
	m := newTestModel(&fakeClient{})
	items := []models.Item{models.NewItem("a", 1), models.NewItem("b", 2)}

	updated, _ := m.Update(ItemsLoadedMsg{Items: items})
	got := updated.(Model)
	if got.itemCount != 2 {
		t.Errorf("itemCount = %d, want 2", got.itemCount)
	}
	lines := got.log.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3", len(lines))
	}
	if !strings.Contains(lines[2], items[1].String()) {
		t.Errorf("line %q does not list %v", lines[2], items[1])
	}
}

func TestConnectKey(t *testing.T) {
	c := &fakeClient{}
	m := newTestModel(c)

	_, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("connect key returned no command")
	}
	cmd()
	if c.connects != 1 {
		t.Errorf("EnsureConnected called %d times, want 1", c.connects)
	}
}

func TestStateTickRefreshesBadge(t *testing.T) {
	c := &fakeClient{state: link.Connecting}
	m := newTestModel(c)

	c.state = link.Ready
	updated, cmd := m.Update(stateTickMsg{})
	if cmd == nil {
		t.Error("state tick did not reschedule")
	}
	if !strings.Contains(updated.View(), "Connected") {
		t.Errorf("View() does not show Connected badge")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakeClient{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
	if updated.View() != "" {
		t.Error("View() after quit should be empty")
	}
}

func TestLogViewBoundsScrollback(t *testing.T) {
	l := NewLogView()
	for i := 0; i < maxLogLines+10; i++ {
		l.Append("line")
	}
	if got := len(l.Lines()); got != maxLogLines {
		t.Errorf("len(Lines()) = %d, want %d", got, maxLogLines)
	}
}
