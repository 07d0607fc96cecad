package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kanban/internal/api"
	"kanban/internal/config"
	"kanban/internal/task"
)

const laneWidth = 30

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	laneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(laneWidth)
	activeLane   = laneStyle.BorderForeground(lipgloss.Color("63"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	toastStyles = map[api.MessageType]lipgloss.Style{
		api.TypeSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		api.TypeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		api.TypeInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

func (m Model) View() string {
	var b strings.Builder

	heading := "Kanban"
	if m.coord.IsLoading() {
		heading += " (syncing…)"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	columns := make([]string, len(m.lanes))
	for i, s := range m.lanes {
		columns[i] = m.renderLane(i, s)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n")

	if m.mode == modeAdd || m.edit != nil {
		if m.edit != nil {
			b.WriteString(m.renderEditBox())
		}
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	for _, t := range m.toasts.Active() {
		b.WriteString(toastStyles[t.Kind].Render(t.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func (m Model) renderLane(i int, status task.Status) string {
	tasks := m.coord.TasksByStatus(status)
	pending := map[string]bool{}
	for _, id := range m.coord.State().PendingIDs() {
		pending[id] = true
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", status, len(tasks))))
	b.WriteString("\n")
	if len(tasks) == 0 {
		b.WriteString(helpStyle.Render("empty"))
	}
	for j, t := range tasks {
		line := truncate(t.Title, laneWidth-4)
		switch {
		case i == m.lane && j == m.cursor[status] && m.mode == modeBoard:
			line = cursorStyle.Render("> " + line)
		case t.Pending() || pending[t.ID]:
			line = pendingStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := laneStyle
	if i == m.lane {
		style = activeLane
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderEditBox() string {
	if m.edit == nil {
		return ""
	}
	values := []string{m.edit.title, m.edit.description}
	var b strings.Builder
	for i, name := range editFields() {
		prefix := " "
		if i == m.edit.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-12s : %s\n", prefix, name, val))
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s select • %s/%s lane • %s/%s move • %s/%s reorder • %s add • %s edit • %s delete • %s compact • %s refresh • %s quit",
		k.Up, k.Down, k.LaneLeft, k.LaneRight, k.MoveLeft, k.MoveRight, k.MoveUp, k.MoveDown,
		k.Add, k.Edit, k.Delete, k.Compact, k.Refresh, k.Quit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
