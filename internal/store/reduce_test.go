package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/task"
)

var created = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func loaded(tasks ...task.Task) State {
	return Reduce(State{}, LoadSucceeded{Tasks: tasks})
}

func reduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func todo(id string, ord int) task.Task {
	return task.Task{ID: id, Title: "task " + id, Status: task.StatusTodo, Order: ord, CreatedAt: created}
}

func TestLoadLifecycle(t *testing.T) {
	s := Reduce(State{err: "old"}, LoadRequested{})
	assert.True(t, s.Loading())
	assert.Empty(t, s.LastError())

	ok := Reduce(s, LoadSucceeded{Tasks: []task.Task{todo("1", 100)}})
	assert.False(t, ok.Loading())
	assert.Len(t, ok.AllTasks(), 1)

	failed := Reduce(s, LoadFailed{Reason: "offline"})
	assert.False(t, failed.Loading())
	assert.Equal(t, "offline", failed.LastError())
}

func TestOptimisticCreateRoundTrip(t *testing.T) {
	s := Reduce(State{}, CreateRequested{Task: task.Task{Title: "New Task"}})
	require.Len(t, s.AllTasks(), 1)
	assert.Empty(t, s.AllTasks()[0].ID)
	assert.True(t, s.Loading())

	confirmed := Reduce(s, CreateConfirmed{ID: "123"})
	require.Len(t, confirmed.AllTasks(), 1)
	assert.Equal(t, "123", confirmed.AllTasks()[0].ID)
	assert.Equal(t, "New Task", confirmed.AllTasks()[0].Title)
	assert.False(t, confirmed.Loading())

	rejected := Reduce(s, CreateRejected{Reason: "x"})
	assert.Empty(t, rejected.AllTasks())
	assert.Equal(t, "x", rejected.LastError())
	assert.False(t, rejected.Loading())
}

func TestCreateConfirmedTargetsRef(t *testing.T) {
	s := reduceAll(State{},
		CreateRequested{Task: task.Task{Title: "first", Ref: "r1"}},
		CreateRequested{Task: task.Task{Title: "second", Ref: "r2"}},
		CreateConfirmed{ID: "10", Ref: "r1"},
	)
	first, ok := s.Find("10")
	require.True(t, ok)
	assert.Equal(t, "first", first.Title)
	assert.Empty(t, first.Ref)
	assert.True(t, s.Loading(), "second create is still in flight")

	s = Reduce(s, CreateRejected{Reason: "nope", Ref: "r2"})
	assert.Equal(t, []string{"10"}, ids(s.AllTasks()))
	assert.False(t, s.Loading())
}

func TestUpdateRollbackRestoresExactValue(t *testing.T) {
	orig := todo("1", 100)
	orig.Description = "keep me"
	s := loaded(orig, todo("2", 200))

	edited := orig
	edited.Title = "changed"
	edited.Description = ""
	s = Reduce(s, UpdateRequested{Task: edited})

	got, _ := s.Find("1")
	assert.Equal(t, "changed", got.Title)
	snap, ok := s.Snapshot("1")
	require.True(t, ok)
	assert.Equal(t, orig, snap)

	s = Reduce(s, UpdateRejected{ID: "1", Reason: "e"})
	got, _ = s.Find("1")
	assert.Equal(t, orig, got)
	_, ok = s.Snapshot("1")
	assert.False(t, ok)
	assert.Equal(t, "e", s.LastError())
	assert.True(t, s.Settled())
}

func TestSecondUpdateKeepsOldestBaseline(t *testing.T) {
	orig := todo("1", 100)
	first, second := orig, orig
	first.Title = "first edit"
	second.Title = "second edit"

	s := reduceAll(loaded(orig),
		UpdateRequested{Task: first},
		UpdateRequested{Task: second},
	)
	snap, _ := s.Snapshot("1")
	assert.Equal(t, orig, snap)

	s = Reduce(s, UpdateRejected{ID: "1", Reason: "e"})
	got, _ := s.Find("1")
	assert.Equal(t, orig, got)
}

func TestUpdateConfirmedMergesAndClears(t *testing.T) {
	orig := todo("1", 100)
	edited := orig
	edited.Title = "local"
	s := reduceAll(loaded(orig), UpdateRequested{Task: edited})

	s = Reduce(s, UpdateConfirmed{Task: task.Task{ID: "1", Title: "server"}})
	got, _ := s.Find("1")
	assert.Equal(t, "server", got.Title)
	assert.Equal(t, 100, got.Order)
	assert.Equal(t, created, got.CreatedAt)
	assert.True(t, s.Settled())
	assert.False(t, s.Loading())
	assert.Empty(t, s.LastError())
}

func TestRejectWithoutSnapshotOnlySetsError(t *testing.T) {
	s := loaded(todo("1", 100))
	before := s.AllTasks()

	s = Reduce(s, UpdateRejected{ID: "1", Reason: "late"})
	assert.Equal(t, before, s.AllTasks())
	assert.Equal(t, "late", s.LastError())

	s = Reduce(s, DeleteRejected{ID: "9", Reason: "gone"})
	assert.Equal(t, before, s.AllTasks())
	assert.Equal(t, "gone", s.LastError())
}

func TestUnknownIDUpdateIsNoop(t *testing.T) {
	s := loaded(todo("1", 100), todo("2", 200))
	before := s.AllTasks()

	ghost := todo("zzz", 5)
	s = Reduce(s, UpdateRequested{Task: ghost})
	assert.Equal(t, before, s.AllTasks())
	assert.True(t, s.Settled())
	assert.True(t, s.Loading())
}

func TestUnknownIDMoveReturnsSameState(t *testing.T) {
	s := loaded(todo("1", 100))
	assert.Equal(t, s, Reduce(s, Moved{ID: "nope", Status: task.StatusDone}))
}

func TestLateConfirmationForDeletedTask(t *testing.T) {
	s := reduceAll(loaded(todo("1", 100)), DeleteRequested{ID: "1"}, DeleteConfirmed{ID: "1"})
	s = Reduce(s, UpdateConfirmed{Task: todo("1", 100)})
	assert.Empty(t, s.AllTasks())
	assert.True(t, s.Settled())
}

func TestDeleteRollbackReinsertsTask(t *testing.T) {
	orig := todo("2", 200)
	s := loaded(todo("1", 100), orig)

	s = Reduce(s, DeleteRequested{ID: "2"})
	assert.Equal(t, []string{"1"}, ids(s.AllTasks()))
	_, ok := s.Snapshot("2")
	assert.True(t, ok)

	s = Reduce(s, DeleteRejected{ID: "2", Reason: "e"})
	got, ok := s.Find("2")
	require.True(t, ok)
	assert.Equal(t, orig, got)
	assert.True(t, s.Settled())
	assert.Equal(t, "e", s.LastError())
}

func TestDeleteConfirmedClearsSnapshot(t *testing.T) {
	s := reduceAll(loaded(todo("1", 100)), DeleteRequested{ID: "1"}, DeleteConfirmed{ID: "1"})
	assert.Empty(t, s.AllTasks())
	assert.True(t, s.Settled())
	assert.False(t, s.Loading())
}

func TestTasksByStatusSortsAscending(t *testing.T) {
	done := todo("d", 1)
	done.Status = task.StatusDone
	s := loaded(todo("c", 300), done, todo("a", 100), todo("b", 200))

	assert.Equal(t, []string{"a", "b", "c"}, ids(s.TasksByStatus(task.StatusTodo)))
	assert.Equal(t, []string{"d"}, ids(s.TasksByStatus(task.StatusDone)))
	assert.Empty(t, s.TasksByStatus(task.StatusDoing))
}

func TestMovedAppendsWhenOrderMissing(t *testing.T) {
	doing := func(id string, ord int) task.Task {
		tk := todo(id, ord)
		tk.Status = task.StatusDoing
		return tk
	}
	s := loaded(todo("a", 100), todo("b", 200), doing("x", 100), doing("y", 200))

	s = Reduce(s, Moved{ID: "a", Status: task.StatusDoing})

	lane := s.TasksByStatus(task.StatusDoing)
	assert.Equal(t, []string{"x", "y", "a"}, ids(lane))
	assert.Equal(t, 300, lane[2].Order)

	b, _ := s.Find("b")
	assert.Equal(t, 199, b.Order, "siblings after the vacated slot shift down")
}

func TestMovedWithinLane(t *testing.T) {
	s := loaded(todo("a", 100), todo("b", 200), todo("c", 300), todo("d", 400))

	s = Reduce(s, Moved{ID: "a", Status: task.StatusTodo, Order: OrderAt(350)})

	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(s.TasksByStatus(task.StatusTodo)))
}

func TestMovedShiftsDestinationAtInsertionPoint(t *testing.T) {
	s := loaded(todo("a", 0), todo("b", 1), todo("c", 2))
	done := todo("z", 0)
	done.Status = task.StatusDone
	s = Reduce(s, LoadSucceeded{Tasks: append(s.AllTasks(), done)})

	s = Reduce(s, Moved{ID: "z", Status: task.StatusTodo, Order: OrderAt(1)})

	lane := s.TasksByStatus(task.StatusTodo)
	assert.Equal(t, []string{"a", "z", "b", "c"}, ids(lane))
	assert.Equal(t, []int{0, 1, 2, 3}, []int{lane[0].Order, lane[1].Order, lane[2].Order, lane[3].Order})
}

func TestMoveRollbackRestoresLane(t *testing.T) {
	start := []task.Task{todo("a", 100), todo("b", 200), todo("c", 300)}
	before := loaded(start...)

	after := Reduce(before, Moved{ID: "a", Status: task.StatusDone})
	changed := Changed(before, after)
	assert.Equal(t, []string{"a", "b", "c"}, changed)
	assert.ElementsMatch(t, changed, after.PendingIDs())

	rolled := Reduce(after, LaneRejected{IDs: changed, Reason: "e"})
	assert.Equal(t, start, rolled.AllTasks())
	assert.True(t, rolled.Settled())
	assert.Equal(t, "e", rolled.LastError())
}

func TestReorderedIsIdempotent(t *testing.T) {
	s := loaded(todo("a", 100), todo("b", 200), todo("c", 300))
	order := []string{"c", "a", "b"}

	once := Reduce(s, Reordered{IDs: order, Status: task.StatusTodo})
	twice := Reduce(once, Reordered{IDs: order, Status: task.StatusTodo})

	assert.Equal(t, once, twice)
	assert.Equal(t, order, ids(twice.TasksByStatus(task.StatusTodo)))
}

func TestReorderedIgnoresOtherLanes(t *testing.T) {
	done := todo("d", 700)
	done.Status = task.StatusDone
	s := loaded(todo("a", 100), done)

	s = Reduce(s, Reordered{IDs: []string{"d", "a"}, Status: task.StatusTodo})

	d, _ := s.Find("d")
	a, _ := s.Find("a")
	assert.Equal(t, 700, d.Order)
	assert.Equal(t, 1, a.Order)
}

func TestReorderedLeavesDraftsAlone(t *testing.T) {
	draft := todo("", 300)
	draft.Ref = "ref-1"
	s := reduceAll(loaded(todo("a", 100), todo("b", 200)), CreateRequested{Task: draft})
	before := s

	s = Reduce(s, Reordered{IDs: []string{"b", "", "a"}, Status: task.StatusTodo})
	lane := s.TasksByStatus(task.StatusTodo)
	require.Len(t, lane, 3)
	assert.Equal(t, []string{"b", "a", ""}, ids(lane))
	assert.Equal(t, 300, lane[2].Order)

	s = Reduce(s, LaneRejected{IDs: Changed(before, s), Reason: "offline"})
	assert.Equal(t, before.TasksByStatus(task.StatusTodo), s.TasksByStatus(task.StatusTodo))
	assert.True(t, s.Settled())
}

func TestLaneOrderAfterSettling(t *testing.T) {
	d := todo("d", 100)
	d.Status = task.StatusDoing
	s := loaded(todo("a", 100), todo("b", 200), todo("c", 300), d)

	s = reduceAll(s,
		Moved{ID: "a", Status: task.StatusDoing},
		Moved{ID: "c", Status: task.StatusDoing, Order: OrderAt(150)},
		Reordered{IDs: []string{"a", "d", "c"}, Status: task.StatusDoing},
		Moved{ID: "b", Status: task.StatusDoing, Order: OrderAt(1)},
	)
	require.False(t, s.Settled())
	s = Reduce(s, LaneConfirmed{IDs: s.PendingIDs()})
	require.True(t, s.Settled())

	for _, lane := range task.Lanes() {
		tasks := s.TasksByStatus(lane)
		for i := 1; i < len(tasks); i++ {
			assert.Less(t, tasks[i-1].Order, tasks[i].Order, "lane %s", lane)
		}
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids(s.TasksByStatus(task.StatusDoing)))
}

func TestCompactedSpreadsLane(t *testing.T) {
	s := loaded(todo("a", 5), todo("b", 6), todo("c", 7))

	s = Reduce(s, Compacted{Status: task.StatusTodo})

	lane := s.TasksByStatus(task.StatusTodo)
	assert.Equal(t, []string{"a", "b", "c"}, ids(lane))
	assert.Equal(t, []int{100, 200, 300}, []int{lane[0].Order, lane[1].Order, lane[2].Order})
	assert.Equal(t, []string{"a", "b", "c"}, s.PendingIDs())
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := loaded(todo("a", 100), todo("b", 200))
	snapshot := s.AllTasks()

	_ = reduceAll(s,
		Moved{ID: "a", Status: task.StatusDone},
		DeleteRequested{ID: "b"},
		Reordered{IDs: []string{"b", "a"}, Status: task.StatusTodo},
	)
	assert.Equal(t, snapshot, s.AllTasks())
	assert.True(t, s.Settled())
}

func TestStoreDispatchSerializes(t *testing.T) {
	st := New(nil)
	st.Dispatch(LoadSucceeded{Tasks: []task.Task{todo("a", 100)}})

	before, after := st.Apply(DeleteRequested{ID: "a"})
	assert.Len(t, before.AllTasks(), 1)
	assert.Empty(t, after.AllTasks())
	assert.Equal(t, after, st.State())
}
