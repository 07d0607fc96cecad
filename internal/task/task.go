package task

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusTodo  Status = "TODO"
	StatusDoing Status = "DOING"
	StatusDone  Status = "DONE"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidStatus = errors.New("invalid status")
)

// Lanes lists the board lanes left to right.
func Lanes() []Status {
	return []Status{StatusTodo, StatusDoing, StatusDone}
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the lane position used when sorting across lanes, -1 if unknown.
func (s Status) Rank() int {
	for i, l := range Lanes() {
		if l == s {
			return i
		}
	}
	return -1
}

func (s Status) String() string {
	return string(s)
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`

	// Ref identifies a creation that has no server id yet.
	Ref string `json:"-"`
}

// Draft is the client-writable part of a task, sent on create and update.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Order       int    `json:"order"`
}

func (t Task) Draft() Draft {
	return Draft{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Order:       t.Order,
	}
}

func (t Task) Pending() bool {
	return t.ID == ""
}

// FieldErrors maps a field name to why it was rejected. Empty means valid.
func (d Draft) FieldErrors() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(d.Title) == "" {
		errs["title"] = "must not be blank"
	}
	if !d.Status.Valid() {
		errs["status"] = "must be one of TODO, DOING, DONE"
	}
	return errs
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
