package store

import "kanban/internal/task"

// Action is one of the transitions Reduce understands. The set is closed.
type Action interface {
	isAction()
}

type LoadRequested struct{}

type LoadSucceeded struct {
	Tasks []task.Task
}

type LoadFailed struct {
	Reason string
}

// CreateRequested appends Task as an id-less entry. Task.Ref, when set,
// lets the matching CreateConfirmed/CreateRejected find it again.
type CreateRequested struct {
	Task task.Task
}

type CreateConfirmed struct {
	ID  string
	Ref string
}

type CreateRejected struct {
	Reason string
	Ref    string
}

type UpdateRequested struct {
	Task task.Task
}

type UpdateConfirmed struct {
	Task task.Task
}

type UpdateRejected struct {
	ID     string
	Reason string
}

type DeleteRequested struct {
	ID string
}

type DeleteConfirmed struct {
	ID string
}

type DeleteRejected struct {
	ID     string
	Reason string
}

// Moved places task ID in Status at Order. A nil Order appends to the lane.
type Moved struct {
	ID     string
	Status task.Status
	Order  *int
}

type Reordered struct {
	IDs    []string
	Status task.Status
}

// Compacted respaces the keys of one lane.
type Compacted struct {
	Status task.Status
}

// LaneConfirmed settles a move, reorder or compaction that touched IDs.
type LaneConfirmed struct {
	IDs   []string
	Tasks []task.Task
}

type LaneRejected struct {
	IDs    []string
	Reason string
}

func (LoadRequested) isAction()   {}
func (LoadSucceeded) isAction()   {}
func (LoadFailed) isAction()      {}
func (CreateRequested) isAction() {}
func (CreateConfirmed) isAction() {}
func (CreateRejected) isAction()  {}
func (UpdateRequested) isAction() {}
func (UpdateConfirmed) isAction() {}
func (UpdateRejected) isAction()  {}
func (DeleteRequested) isAction() {}
func (DeleteConfirmed) isAction() {}
func (DeleteRejected) isAction()  {}
func (Moved) isAction()           {}
func (Reordered) isAction()       {}
func (Compacted) isAction()       {}
func (LaneConfirmed) isAction()   {}
func (LaneRejected) isAction()    {}

// OrderAt is a convenience for building Moved actions.
func OrderAt(v int) *int {
	return &v
}
