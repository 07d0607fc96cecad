// Package coordinator runs every board mutation through the same protocol:
// apply it to the store at once, call the task service in a tea.Cmd, and
// settle the outcome when the resulting message comes back through the
// program's update loop. Failures end up in the store's error field and in
// a notification; they are never returned to the caller.
package coordinator

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban/internal/api"
	"kanban/internal/notify"
	"kanban/internal/order"
	"kanban/internal/remote"
	"kanban/internal/store"
	"kanban/internal/task"
)

const defaultTimeout = 10 * time.Second

// End places a moved task after the last one in its new lane.
const End = -1

// Settled is the message a request command produces. Handing it to Settle
// applies Action and reports the outcome.
type Settled struct {
	Action  store.Action
	Message string
	Kind    api.MessageType
	Err     error
}

type Coordinator struct {
	store   *store.Store
	remote  remote.Service
	notify  notify.Notifier
	log     *log.Entry
	timeout time.Duration
	newRef  func() string
	now     func() time.Time
}

type Option func(*Coordinator)

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.log = l.WithField("component", "coordinator")
	}
}

func WithRefGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		c.newRef = gen
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func New(st *store.Store, svc remote.Service, n notify.Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   st,
		remote:  svc,
		notify:  n,
		log:     log.StandardLogger().WithField("component", "coordinator"),
		timeout: defaultTimeout,
		newRef:  uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() store.State {
	return c.store.State()
}

func (c *Coordinator) AllTasks() []task.Task {
	return c.store.State().AllTasks()
}

func (c *Coordinator) TasksByStatus(s task.Status) []task.Task {
	return c.store.State().TasksByStatus(s)
}

func (c *Coordinator) IsLoading() bool {
	return c.store.State().Loading()
}

func (c *Coordinator) LastError() string {
	return c.store.State().LastError()
}

func (c *Coordinator) RequestLoad() tea.Cmd {
	c.store.Dispatch(store.LoadRequested{})
	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.List(ctx)
		if err != nil {
			return failed(err, "Failed to load tasks", func(reason string) store.Action {
				return store.LoadFailed{Reason: reason}
			})
		}
		return succeeded(store.LoadSucceeded{Tasks: env.Data}, env.Message, env.Type)
	})
}

// RequestCreate appends the draft to the end of its lane (TODO when unset).
func (c *Coordinator) RequestCreate(d task.Draft) tea.Cmd {
	if d.Status == "" {
		d.Status = task.StatusTodo
	}
	lane := c.store.State().TasksByStatus(d.Status)
	var last *task.Task
	if len(lane) > 0 {
		last = &lane[len(lane)-1]
	}
	d.Order = order.Compute(last, nil)

	ref := c.newRef()
	c.store.Dispatch(store.CreateRequested{Task: task.Task{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Order:       d.Order,
		CreatedAt:   c.now(),
		Ref:         ref,
	}})
	c.log.WithFields(log.Fields{"ref": ref, "status": d.Status}).Debug("create requested")

	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.Create(ctx, d)
		if err != nil {
			return failed(err, "Failed to add task", func(reason string) store.Action {
				return store.CreateRejected{Reason: reason, Ref: ref}
			})
		}
		return succeeded(store.CreateConfirmed{ID: env.Data.ID, Ref: ref}, env.Message, env.Type)
	})
}

func (c *Coordinator) RequestUpdate(t task.Task) tea.Cmd {
	c.store.Dispatch(store.UpdateRequested{Task: t})
	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.Update(ctx, t.ID, t.Draft())
		if err != nil {
			return failed(err, "Failed to update task", func(reason string) store.Action {
				return store.UpdateRejected{ID: t.ID, Reason: reason}
			})
		}
		confirmed := env.Data
		confirmed.ID = t.ID
		return succeeded(store.UpdateConfirmed{Task: confirmed}, env.Message, env.Type)
	})
}

func (c *Coordinator) RequestDelete(id string) tea.Cmd {
	c.store.Dispatch(store.DeleteRequested{ID: id})
	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.Delete(ctx, id)
		if err != nil {
			return failed(err, "Failed to delete task", func(reason string) store.Action {
				return store.DeleteRejected{ID: id, Reason: reason}
			})
		}
		return succeeded(store.DeleteConfirmed{ID: id}, env.Message, env.Type)
	})
}

// RequestMove puts task id at index of the status lane, counted without the
// task itself; End or any negative index appends. It returns nil when the
// task is unknown or the move changes nothing.
func (c *Coordinator) RequestMove(id string, status task.Status, index int) tea.Cmd {
	st := c.store.State()
	moving, ok := st.Find(id)
	if !ok {
		return nil
	}
	var at *int
	if index >= 0 {
		at = store.OrderAt(insertionKey(st, moving, status, index))
	}
	before, after := c.store.Apply(store.Moved{ID: id, Status: status, Order: at})
	changed := store.Changed(before, after)
	if len(changed) == 0 {
		return nil
	}
	moved, _ := after.Find(id)

	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.Update(ctx, id, moved.Draft())
		if err != nil {
			return failed(err, "Failed to move task", func(reason string) store.Action {
				return store.LaneRejected{IDs: changed, Reason: reason}
			})
		}
		confirmed := env.Data
		confirmed.ID = id
		return succeeded(store.LaneConfirmed{IDs: changed, Tasks: []task.Task{confirmed}}, env.Message, env.Type)
	})
}

// RequestReorder gives the listed tasks of a lane the keys 0..n-1 in list
// order. Drafts without an id keep their key and are not sent.
func (c *Coordinator) RequestReorder(ids []string, status task.Status) tea.Cmd {
	sent := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			sent = append(sent, id)
		}
	}
	before, after := c.store.Apply(store.Reordered{IDs: sent, Status: status})
	changed := store.Changed(before, after)

	return c.call(func(ctx context.Context) Settled {
		env, err := c.remote.Reorder(ctx, sent, status)
		if err != nil {
			return failed(err, "Failed to reorder tasks", func(reason string) store.Action {
				return store.LaneRejected{IDs: changed, Reason: reason}
			})
		}
		return succeeded(store.LaneConfirmed{IDs: changed, Tasks: env.Data}, env.Message, env.Type)
	})
}

// RequestCompact respaces a lane whose keys have run out of room and saves
// every task whose key changed. It returns nil while a creation in the lane
// is unconfirmed, since the draft's key could not be rolled back.
func (c *Coordinator) RequestCompact(status task.Status) tea.Cmd {
	for _, t := range c.store.State().TasksByStatus(status) {
		if t.Pending() {
			return nil
		}
	}
	before, after := c.store.Apply(store.Compacted{Status: status})
	changed := store.Changed(before, after)
	if len(changed) == 0 {
		return nil
	}
	drafts := make(map[string]task.Draft, len(changed))
	for _, id := range changed {
		t, _ := after.Find(id)
		drafts[id] = t.Draft()
	}

	return c.call(func(ctx context.Context) Settled {
		var confirmed []task.Task
		var message string
		var kind api.MessageType
		for _, id := range changed {
			env, err := c.remote.Update(ctx, id, drafts[id])
			if err != nil {
				return failed(err, "Failed to reorder tasks", func(reason string) store.Action {
					return store.LaneRejected{IDs: changed, Reason: reason}
				})
			}
			t := env.Data
			t.ID = id
			confirmed = append(confirmed, t)
			message, kind = env.Message, env.Type
		}
		return succeeded(store.LaneConfirmed{IDs: changed, Tasks: confirmed}, message, kind)
	})
}

// Settle applies a Settled message. Other messages are ignored and report
// false.
func (c *Coordinator) Settle(msg tea.Msg) (store.State, bool) {
	s, ok := msg.(Settled)
	if !ok || s.Action == nil {
		return c.store.State(), false
	}
	state := c.store.Dispatch(s.Action)

	entry := c.log.WithField("action", fmt.Sprintf("%T", s.Action))
	if s.Err != nil {
		entry.WithError(s.Err).Warn("mutation rejected")
	} else {
		entry.Debug("mutation confirmed")
	}
	if c.notify != nil && s.Message != "" {
		c.notify.Notify(s.Message, s.Kind)
	}
	return state, true
}

// Await runs cmd on the calling goroutine and settles its result. Without a
// bubbletea program this is how a request completes.
func (c *Coordinator) Await(cmd tea.Cmd) store.State {
	if cmd == nil {
		return c.store.State()
	}
	state, _ := c.Settle(cmd())
	return state
}

func (c *Coordinator) call(fn func(ctx context.Context) Settled) tea.Cmd {
	timeout := c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func succeeded(a store.Action, message string, kind api.MessageType) Settled {
	if kind == "" {
		kind = api.TypeSuccess
	}
	return Settled{Action: a, Message: message, Kind: kind}
}

func failed(err error, fallback string, build func(reason string) store.Action) Settled {
	reason := remote.Message(err, fallback)
	return Settled{Action: build(reason), Message: reason, Kind: api.TypeError, Err: err}
}

// insertionKey computes the key for index in the destination lane as it
// will look once the task has left its current slot.
func insertionKey(st store.State, moving task.Task, status task.Status, index int) int {
	lane := st.TasksByStatus(status)
	frame := make([]task.Task, 0, len(lane))
	for _, t := range lane {
		if t.ID == moving.ID {
			continue
		}
		if moving.Status == status && t.Order > moving.Order {
			t.Order--
		}
		frame = append(frame, t)
	}
	return order.Between(frame, index)
}
