// Package notify carries mutation outcomes to the user: a timed toast queue
// for the board and a logrus-backed notifier for headless use.
package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban/internal/api"
)

type Notifier interface {
	Notify(message string, kind api.MessageType)
}

type Toast struct {
	Message string
	Kind    api.MessageType
	Expires time.Time
}

// Toasts keeps the most recent notifications until they expire.
type Toasts struct {
	mu    sync.Mutex
	ttl   time.Duration
	limit int
	now   func() time.Time
	items []Toast
}

func NewToasts(ttl time.Duration, limit int) *Toasts {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	if limit <= 0 {
		limit = 3
	}
	return &Toasts{ttl: ttl, limit: limit, now: time.Now}
}

func (t *Toasts) Notify(message string, kind api.MessageType) {
	if message == "" {
		return
	}
	if kind == "" {
		kind = api.TypeInfo
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, Toast{Message: message, Kind: kind, Expires: t.now().Add(t.ttl)})
	if len(t.items) > t.limit {
		t.items = t.items[len(t.items)-t.limit:]
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	kept := t.items[:0]
	for _, item := range t.items {
		if now.Before(item.Expires) {
			kept = append(kept, item)
		}
	}
	t.items = kept
	out := make([]Toast, len(kept))
	copy(out, kept)
	return out
}

func (t *Toasts) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
}

type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(message string, kind api.MessageType) {
	logger := n.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	entry := logger.WithField("type", string(kind))
	switch kind {
	case api.TypeError:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(message string, kind api.MessageType) {
	for _, n := range m {
		n.Notify(message, kind)
	}
}
