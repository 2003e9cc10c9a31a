package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// tabs is the order status tabs are shown in.
var tabs = []models.Status{
	models.StatusPending,
	models.StatusPlaying,
	models.StatusCompleted,
	models.StatusRejected,
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	manager *lifecycle.Manager
	logger  *log.Logger
	active  int
	lists   []list.Model
	width   int
	height  int
	notice  string
	err     error
	busy    bool
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model over manager. The logger should not write to the terminal.
func NewModel(ctx context.Context, manager *lifecycle.Manager, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	lists := make([]list.Model, len(tabs))
	for i, status := range tabs {
		lists[i] = newRequestList(status)
	}

	return &Model{
		ctx:     ctx,
		manager: manager,
		logger:  logger,
		lists:   lists,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init fetches the queue from the store.
func (m *Model) Init() tea.Cmd {
	m.busy = true
	return m.refresh()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for i := range m.lists {
			m.lists[i].SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

// View renders the tab bar, the active list, the last result and help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("djq · DJ dashboard"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.lists[m.active].View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// Active returns the status of the visible tab.
func (m *Model) Active() models.Status {
	return tabs[m.active]
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	current := &m.lists[m.active]
	if current.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		m.active = (m.active + 1) % len(tabs)
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.active = (m.active + len(tabs) - 1) % len(tabs)
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.busy = true
		return m, m.refresh()
	case key.Matches(msg, m.keys.play):
		return m, m.setStatus(models.StatusPlaying)
	case key.Matches(msg, m.keys.reject):
		return m, m.setStatus(models.StatusRejected)
	case key.Matches(msg, m.keys.complete):
		return m, m.setStatus(models.StatusCompleted)
	case key.Matches(msg, m.keys.moveUp):
		return m, m.move(models.DirectionUp)
	case key.Matches(msg, m.keys.moveDown):
		return m, m.move(models.DirectionDown)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.busy = false

	switch msg.kind {
	case MsgSynced:
		res := msg.data.(syncResult)
		m.setResult(res.err, "synced")
		return m, m.rebuild("")

	case MsgStatusChanged:
		res := msg.data.(statusResult)
		m.setResult(res.err, fmt.Sprintf("%s is now %s", m.label(res.id), res.status))
		return m, m.rebuild("")

	case MsgMoved:
		res := msg.data.(moveResult)
		notice := fmt.Sprintf("moved %s %s", m.label(res.id), res.direction)
		if !res.moved {
			notice = fmt.Sprintf("%s is already at the %s", m.label(res.id), map[models.Direction]string{
				models.DirectionUp:   "top",
				models.DirectionDown: "bottom",
			}[res.direction])
		}
		m.setResult(res.err, notice)
		return m, m.rebuild(res.id)
	}

	return m, nil
}

func (m *Model) setResult(err error, notice string) {
	m.err = err
	m.notice = ""
	if err != nil {
		m.logger.Error("dashboard action failed", "error", err)
		return
	}
	m.notice = notice
}

// rebuild reloads every tab from the manager's snapshot, keeping the cursor on keepID when it is visible.
func (m *Model) rebuild(keepID string) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(tabs))

	for i, status := range tabs {
		requests := m.manager.ViewFor(status)
		cmds = append(cmds, m.lists[i].SetItems(requestItems(requests)))

		if keepID == "" || i != m.active {
			continue
		}
		for j, r := range requests {
			if r.ID == keepID {
				m.lists[i].Select(j)
				break
			}
		}
	}

	return tea.Batch(cmds...)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.lists[m.active], cmd = m.lists[m.active].Update(msg)
	return m, cmd
}

func (m *Model) selected() (models.SongRequest, bool) {
	item, ok := m.lists[m.active].SelectedItem().(requestItem)
	if !ok {
		return models.SongRequest{}, false
	}
	return item.request, true
}

func (m *Model) label(id string) string {
	if r, ok := m.manager.Find(id); ok {
		return fmt.Sprintf("%q", r.SongTitle)
	}
	return id
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return syncedMsg(m.manager.Refresh(m.ctx))
	}
}

func (m *Model) setStatus(status models.Status) tea.Cmd {
	r, ok := m.selected()
	if !ok {
		return nil
	}

	m.busy = true
	return func() tea.Msg {
		_, err := m.manager.SetStatus(m.ctx, r.ID, status)
		return statusChangedMsg(r.ID, status, err)
	}
}

func (m *Model) move(direction models.Direction) tea.Cmd {
	r, ok := m.selected()
	if !ok {
		return nil
	}

	m.busy = true
	return func() tea.Msg {
		moved, err := m.manager.Reorder(m.ctx, r.ID, direction)
		return movedMsg(r.ID, direction, moved, err)
	}
}

func (m *Model) renderTabs() string {
	counts := m.manager.Counts()
	labels := make([]string, len(tabs))

	for i, status := range tabs {
		label := fmt.Sprintf(" %s (%d) ", strings.ToUpper(status.String()), counts[status])
		style := StatusStyle(status)
		if i == m.active {
			style = style.Reverse(true)
		}
		labels[i] = style.Render(label)
	}

	return strings.Join(labels, " ")
}

func (m *Model) renderStatusLine() string {
	sync := styles.help.Render("last sync " + shared.TimeAgo(m.manager.SyncedAt()))

	switch {
	case m.busy:
		return styles.warn.Render("working...") + "  " + sync
	case m.err != nil:
		return styles.err.Render("Error: "+m.err.Error()) + "  " + sync
	case m.notice != "":
		return styles.ok.Render(m.notice) + "  " + sync
	default:
		return sync
	}
}
