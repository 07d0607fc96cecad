package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"kanban/internal/config"
	"kanban/internal/coordinator"
	"kanban/internal/notify"
	"kanban/internal/order"
	"kanban/internal/task"
)

type mode int

const (
	modeBoard mode = iota
	modeAdd
	modeEdit
)

const tickInterval = 500 * time.Millisecond

type tickMsg time.Time

type editState struct {
	task        task.Task
	title       string
	description string
	index       int
}

type Model struct {
	coord      *coordinator.Coordinator
	toasts     *notify.Toasts
	cfg        config.Config
	lanes      []task.Status
	lane       int
	cursor     map[task.Status]int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	edit       *editState
	width      int
}

func New(coord *coordinator.Coordinator, toasts *notify.Toasts, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	return Model{
		coord:  coord,
		toasts: toasts,
		cfg:    cfg,
		lanes:  task.Lanes(),
		cursor: map[task.Status]int{},
		input:  ti,
		mode:   modeBoard,
		status: fmt.Sprintf("Press '%s' to add, '%s' to quit.", cfg.Keys.Add, cfg.Keys.Quit),
	}
}

func Run(coord *coordinator.Coordinator, toasts *notify.Toasts, cfg config.Config) error {
	program := tea.NewProgram(New(coord, toasts, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.coord.RequestLoad(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case coordinator.Settled:
		state, _ := m.coord.Settle(msg)
		if msg.Err != nil {
			m.status = state.LastError()
		}
		m.clampCursors()
		return m, nil
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		if m.edit != nil {
			return m.updateEditMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		if m.mode == modeAdd {
			return m.updateAddMode(msg.String(), msg)
		}
		return m.updateBoardMode(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeBoard
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		d := task.Draft{Title: strings.TrimSpace(m.input.Value()), Status: m.currentLane()}
		if err := d.Validate(); err != nil {
			m.status = "Title cannot be empty"
			return m, nil
		}
		cmd := m.coord.RequestCreate(d)
		m.cursor[d.Status] = len(m.coord.TasksByStatus(d.Status)) - 1
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeBoard
		m.status = "Adding task…"
		return m, cmd
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateBoardMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.setCursor(m.cursor[m.currentLane()] + 1)
	case k.Up, "up":
		m.setCursor(m.cursor[m.currentLane()] - 1)
	case k.LaneLeft, "left":
		m.lane = clampCursor(m.lane-1, len(m.lanes))
	case k.LaneRight, "right":
		m.lane = clampCursor(m.lane+1, len(m.lanes))
	case k.MoveLeft:
		return m.moveAcross(-1)
	case k.MoveRight:
		return m.moveAcross(1)
	case k.MoveUp:
		return m.shift(-1)
	case k.MoveDown:
		return m.shift(1)
	case k.Add:
		m.mode = modeAdd
		m.input.Placeholder = "Task title"
		m.input.Focus()
		m.status = fmt.Sprintf("Add to %s: type a title and press Enter", m.currentLane())
	case k.Edit:
		t, ok := m.selected()
		if !ok {
			m.status = "No task to edit"
			return m, nil
		}
		if t.Pending() {
			m.status = "Task is still being saved"
			return m, nil
		}
		return m.startEdit(t)
	case k.Delete:
		t, ok := m.selected()
		if !ok || t.Pending() {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Compact:
		lane := m.currentLane()
		if !order.Crowded(m.coord.TasksByStatus(lane)) {
			m.status = fmt.Sprintf("%s has room between every task", lane)
			return m, nil
		}
		cmd := m.coord.RequestCompact(lane)
		if cmd == nil {
			m.status = "Task is still being saved"
			return m, nil
		}
		m.status = fmt.Sprintf("Compacting %s…", lane)
		return m, cmd
	case k.Refresh:
		m.status = "Refreshing…"
		return m, m.coord.RequestLoad()
	}
	return m, nil
}

// moveAcross sends the selected task to the end of the neighbouring lane.
func (m Model) moveAcross(step int) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok || t.Pending() {
		return m, nil
	}
	target := m.lane + step
	if target < 0 || target >= len(m.lanes) {
		return m, nil
	}
	dest := m.lanes[target]
	cmd := m.coord.RequestMove(t.ID, dest, coordinator.End)
	m.lane = target
	lane := m.coord.TasksByStatus(dest)
	if i := indexOf(lane, t.ID); i >= 0 {
		m.cursor[dest] = i
	} else {
		m.cursor[dest] = len(lane) - 1
	}
	m.clampCursors()
	m.status = fmt.Sprintf("Moved \"%s\" to %s", t.Title, dest)
	return m, cmd
}

// shift swaps the selected task with its neighbour by reordering the lane.
func (m Model) shift(step int) (tea.Model, tea.Cmd) {
	status := m.currentLane()
	lane := m.coord.TasksByStatus(status)
	i := m.cursor[status]
	j := i + step
	if i < 0 || i >= len(lane) || j < 0 || j >= len(lane) {
		return m, nil
	}
	if lane[i].Pending() || lane[j].Pending() {
		m.status = "Task is still being saved"
		return m, nil
	}
	lane[i], lane[j] = lane[j], lane[i]
	ids := make([]string, 0, len(lane))
	for _, t := range lane {
		if !t.Pending() {
			ids = append(ids, t.ID)
		}
	}
	cmd := m.coord.RequestReorder(ids, status)
	m.cursor[status] = j
	m.status = ""
	if order.Crowded(m.coord.TasksByStatus(status)) {
		m.status = fmt.Sprintf("%s is crowded; press '%s' to compact", status, m.cfg.Keys.Compact)
	}
	return m, cmd
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		cmd := m.coord.RequestDelete(m.pendingDel.ID)
		m.status = fmt.Sprintf("Deleting \"%s\"…", m.pendingDel.Title)
		m.confirmDel = false
		m.pendingDel = nil
		m.clampCursors()
		return m, cmd
	default:
		return m, nil
	}
}

func (m Model) startEdit(t task.Task) (tea.Model, tea.Cmd) {
	m.edit = &editState{task: t, title: t.Title, description: t.Description}
	m.input.SetValue(m.edit.currentValue())
	m.input.Placeholder = m.edit.currentLabel()
	m.input.Focus()
	m.mode = modeEdit
	m.status = m.editPrompt()
	return m, nil
}

func (m Model) updateEditMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.edit = nil
		m.mode = modeBoard
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		return m.stepEdit(1)
	case "shift+tab", "up":
		return m.stepEdit(-1)
	case m.cfg.Keys.Confirm, "enter":
		m.edit.setCurrentValue(m.input.Value())
		if m.edit.index < len(editFields())-1 {
			m.edit.index++
			m.input.SetValue(m.edit.currentValue())
			m.input.Placeholder = m.edit.currentLabel()
			m.status = m.editPrompt()
			return m, nil
		}
		return m.saveEdit()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) stepEdit(step int) (tea.Model, tea.Cmd) {
	m.edit.setCurrentValue(m.input.Value())
	m.edit.index = wrapIndex(m.edit.index+step, len(editFields()))
	m.input.SetValue(m.edit.currentValue())
	m.input.Placeholder = m.edit.currentLabel()
	m.status = m.editPrompt()
	return m, nil
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	updated := m.edit.task
	updated.Title = strings.TrimSpace(m.edit.title)
	updated.Description = strings.TrimSpace(m.edit.description)
	if err := updated.Draft().Validate(); err != nil {
		m.status = "Title cannot be empty"
		m.edit.index = 0
		m.input.SetValue(m.edit.currentValue())
		m.input.Placeholder = m.edit.currentLabel()
		return m, nil
	}
	m.edit = nil
	m.mode = modeBoard
	m.input.Blur()
	m.status = "Saving…"
	return m, m.coord.RequestUpdate(updated)
}

func editFields() []string {
	return []string{"title", "description"}
}

func (e editState) currentLabel() string {
	return editFields()[e.index]
}

func (e editState) currentValue() string {
	if e.index == 1 {
		return e.description
	}
	return e.title
}

func (e *editState) setCurrentValue(v string) {
	if e.index == 1 {
		e.description = v
		return
	}
	e.title = v
}

func (m Model) editPrompt() string {
	if m.edit == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to switch.",
		m.edit.currentLabel(), m.edit.index+1, len(editFields()))
}

func (m Model) currentLane() task.Status {
	return m.lanes[clampCursor(m.lane, len(m.lanes))]
}

func (m Model) selected() (task.Task, bool) {
	lane := m.coord.TasksByStatus(m.currentLane())
	if len(lane) == 0 {
		return task.Task{}, false
	}
	return lane[clampCursor(m.cursor[m.currentLane()], len(lane))], true
}

func (m Model) setCursor(i int) {
	status := m.currentLane()
	m.cursor[status] = clampCursor(i, len(m.coord.TasksByStatus(status)))
}

func (m Model) clampCursors() {
	for _, s := range m.lanes {
		m.cursor[s] = clampCursor(m.cursor[s], len(m.coord.TasksByStatus(s)))
	}
}

func indexOf(tasks []task.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
