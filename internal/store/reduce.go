package store

import (
	"kanban/internal/order"
	"kanban/internal/task"
)

// Reduce applies one action and returns the resulting state. It performs no
// I/O and never fails; actions that reference unknown tasks leave the task
// collection untouched.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadRequested:
		next := s.clone()
		next.begin()
		next.err = ""
		return next
	case LoadSucceeded:
		next := s.clone()
		next.tasks = make([]task.Task, len(a.Tasks))
		copy(next.tasks, a.Tasks)
		next.finish()
		return next
	case LoadFailed:
		next := s.clone()
		next.finish()
		next.err = a.Reason
		return next

	case CreateRequested:
		next := s.clone()
		draft := a.Task
		draft.ID = ""
		next.tasks = append(next.tasks, draft)
		next.begin()
		next.err = ""
		return next
	case CreateConfirmed:
		next := s.clone()
		if i := draftIndex(next.tasks, a.Ref); i >= 0 {
			next.tasks[i].ID = a.ID
			next.tasks[i].Ref = ""
		}
		next.finish()
		return next
	case CreateRejected:
		next := s.clone()
		kept := next.tasks[:0]
		for _, t := range next.tasks {
			if t.ID == "" && (a.Ref == "" || t.Ref == a.Ref) {
				continue
			}
			kept = append(kept, t)
		}
		next.tasks = kept
		next.err = a.Reason
		next.finish()
		return next

	case UpdateRequested:
		next := s.clone()
		if i := indexOf(next.tasks, a.Task.ID); i >= 0 {
			next.remember(next.tasks[i])
			next.tasks[i] = a.Task
		}
		next.begin()
		next.err = ""
		return next
	case UpdateConfirmed:
		next := s.clone()
		if i := indexOf(next.tasks, a.Task.ID); i >= 0 {
			next.tasks[i] = merge(next.tasks[i], a.Task)
		}
		delete(next.pending, a.Task.ID)
		next.err = ""
		next.finish()
		return next
	case UpdateRejected:
		next := s.clone()
		if prev, ok := next.pending[a.ID]; ok {
			if i := indexOf(next.tasks, a.ID); i >= 0 {
				next.tasks[i] = prev
			}
			delete(next.pending, a.ID)
		}
		next.err = a.Reason
		next.finish()
		return next

	case DeleteRequested:
		next := s.clone()
		if i := indexOf(next.tasks, a.ID); i >= 0 {
			next.remember(next.tasks[i])
			next.tasks = append(next.tasks[:i], next.tasks[i+1:]...)
		}
		next.begin()
		return next
	case DeleteConfirmed:
		next := s.clone()
		delete(next.pending, a.ID)
		next.err = ""
		next.finish()
		return next
	case DeleteRejected:
		next := s.clone()
		if prev, ok := next.pending[a.ID]; ok {
			next.restore(prev)
			delete(next.pending, a.ID)
			sortTasks(next.tasks)
		}
		next.err = a.Reason
		next.finish()
		return next

	case Moved:
		return s.moved(a)
	case Reordered:
		return s.reordered(a)
	case Compacted:
		return s.compacted(a)
	case LaneConfirmed:
		next := s.clone()
		for _, t := range a.Tasks {
			if i := indexOf(next.tasks, t.ID); i >= 0 {
				next.tasks[i] = merge(next.tasks[i], t)
			}
		}
		for _, id := range a.IDs {
			delete(next.pending, id)
		}
		sortTasks(next.tasks)
		next.err = ""
		return next
	case LaneRejected:
		next := s.clone()
		for _, id := range a.IDs {
			if prev, ok := next.pending[id]; ok {
				if i := indexOf(next.tasks, id); i >= 0 {
					next.tasks[i] = prev
				}
				delete(next.pending, id)
			}
		}
		sortTasks(next.tasks)
		next.err = a.Reason
		return next
	}
	return s
}

func (s State) moved(a Moved) State {
	i := indexOf(s.tasks, a.ID)
	if i < 0 {
		return s
	}
	next := s.clone()
	from := next.tasks[i]

	// Close the gap in the lane being left before opening one in the
	// destination, so a move within one lane sees consistent keys.
	for j := range next.tasks {
		t := &next.tasks[j]
		if j != i && t.Status == from.Status && t.Order > from.Order {
			t.Order--
		}
	}

	var at int
	if a.Order != nil {
		at = *a.Order
	} else {
		at = order.Compute(lastInLane(next.tasks, a.Status, i), nil)
	}
	for j := range next.tasks {
		t := &next.tasks[j]
		if j != i && t.Status == a.Status && t.Order >= at {
			t.Order++
		}
	}
	next.tasks[i].Status = a.Status
	next.tasks[i].Order = at

	next.rememberChanged(s.tasks)
	sortTasks(next.tasks)
	return next
}

func (s State) reordered(a Reordered) State {
	pos := make(map[string]int, len(a.IDs))
	for i, id := range a.IDs {
		if id != "" {
			pos[id] = i
		}
	}
	next := s.clone()
	for j := range next.tasks {
		t := &next.tasks[j]
		if t.Status != a.Status {
			continue
		}
		if t.ID == "" {
			continue
		}
		if p, ok := pos[t.ID]; ok {
			t.Order = p
		}
	}
	next.rememberChanged(s.tasks)
	sortTasks(next.tasks)
	return next
}

func (s State) compacted(a Compacted) State {
	next := s.clone()
	sortTasks(next.tasks)
	n := 0
	for j := range next.tasks {
		if next.tasks[j].Status != a.Status {
			continue
		}
		next.tasks[j].Order = order.Base + n*order.Gap
		n++
	}
	next.rememberChanged(s.tasks)
	return next
}

func (s *State) begin() {
	s.inFlight++
}

func (s *State) finish() {
	if s.inFlight > 0 {
		s.inFlight--
	}
}

// remember records the baseline for t unless an older one is still held;
// rolling back must return to the last confirmed value, not an intermediate
// optimistic one.
func (s *State) remember(t task.Task) {
	if t.ID == "" {
		return
	}
	if _, ok := s.pending[t.ID]; ok {
		return
	}
	s.pending[t.ID] = t
}

func (s *State) rememberChanged(before []task.Task) {
	for _, prev := range before {
		if i := indexOf(s.tasks, prev.ID); i >= 0 && s.tasks[i] != prev {
			s.remember(prev)
		}
	}
}

func (s *State) restore(t task.Task) {
	if i := indexOf(s.tasks, t.ID); i >= 0 {
		s.tasks[i] = t
		return
	}
	s.tasks = append(s.tasks, t)
}

func lastInLane(tasks []task.Task, status task.Status, skip int) *task.Task {
	var last *task.Task
	for j := range tasks {
		if j == skip || tasks[j].Status != status {
			continue
		}
		if last == nil || tasks[j].Order > last.Order {
			last = &tasks[j]
		}
	}
	return last
}

func draftIndex(tasks []task.Task, ref string) int {
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].ID != "" {
			continue
		}
		if ref == "" || tasks[i].Ref == ref {
			return i
		}
	}
	return -1
}

// merge overlays the non-zero fields of confirmed onto current. Zero fields
// mean the service did not report them and the local value stands.
func merge(current, confirmed task.Task) task.Task {
	if confirmed.Title != "" {
		current.Title = confirmed.Title
	}
	if confirmed.Description != "" {
		current.Description = confirmed.Description
	}
	if confirmed.Status != "" {
		current.Status = confirmed.Status
	}
	if confirmed.Order != 0 {
		current.Order = confirmed.Order
	}
	if !confirmed.CreatedAt.IsZero() {
		current.CreatedAt = confirmed.CreatedAt
	}
	return current
}
