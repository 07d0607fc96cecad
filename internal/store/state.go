package store

import (
	"sort"

	"kanban/internal/task"
)

// State is an immutable view of the board. Reduce never mutates a State it
// was given, so a value can be handed to readers without copying.
type State struct {
	tasks    []task.Task
	inFlight int
	err      string
	pending  map[string]task.Task
}

func (s State) AllTasks() []task.Task {
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// TasksByStatus returns the lane sorted by ascending order. Ties keep no
// particular order.
func (s State) TasksByStatus(status task.Status) []task.Task {
	var out []task.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s State) Find(id string) (task.Task, bool) {
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i], true
	}
	return task.Task{}, false
}

func (s State) Loading() bool {
	return s.inFlight > 0
}

func (s State) LastError() string {
	return s.err
}

// Snapshot returns the pre-mutation value held for id, if a mutation on id
// is still unresolved.
func (s State) Snapshot(id string) (task.Task, bool) {
	t, ok := s.pending[id]
	return t, ok
}

func (s State) PendingIDs() []string {
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Settled reports whether no optimistic mutation is awaiting its outcome.
func (s State) Settled() bool {
	return len(s.pending) == 0
}

// Changed lists ids whose task differs between two states, including ids
// present in only one of them. Id-less drafts are ignored.
func Changed(before, after State) []string {
	old := make(map[string]task.Task, len(before.tasks))
	for _, t := range before.tasks {
		if t.ID != "" {
			old[t.ID] = t
		}
	}
	var ids []string
	for _, t := range after.tasks {
		if t.ID == "" {
			continue
		}
		prev, ok := old[t.ID]
		delete(old, t.ID)
		if !ok || prev != t {
			ids = append(ids, t.ID)
		}
	}
	for id := range old {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s State) clone() State {
	next := State{
		tasks:    make([]task.Task, len(s.tasks)),
		inFlight: s.inFlight,
		err:      s.err,
		pending:  make(map[string]task.Task, len(s.pending)),
	}
	copy(next.tasks, s.tasks)
	for id, t := range s.pending {
		next.pending[id] = t
	}
	return next
}

func indexOf(tasks []task.Task, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func sortTasks(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Status != b.Status {
			return a.Status.Rank() < b.Status.Rank()
		}
		return a.Order < b.Order
	})
}
