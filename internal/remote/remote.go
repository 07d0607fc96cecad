// Package remote defines the task service the board synchronizes with, and
// two implementations of it: an HTTP client for the REST API and an
// in-process service over sqlite.
package remote

import (
	"context"
	"errors"
	"fmt"

	"kanban/internal/api"
	"kanban/internal/task"
)

type Service interface {
	List(ctx context.Context) (api.Envelope[[]task.Task], error)
	Get(ctx context.Context, id string) (api.Envelope[task.Task], error)
	Create(ctx context.Context, d task.Draft) (api.Envelope[task.Task], error)
	Update(ctx context.Context, id string, d task.Draft) (api.Envelope[task.Task], error)
	Delete(ctx context.Context, id string) (api.Envelope[struct{}], error)
	Reorder(ctx context.Context, ids []string, status task.Status) (api.Envelope[[]task.Task], error)
}

type Kind int

const (
	KindTransport Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	default:
		return "transport"
	}
}

// Failure is how every Service implementation reports a rejected call.
type Failure struct {
	Kind    Kind
	Message string
	Status  int
	Fields  map[string]string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message extracts the text to show the user for err: the failure message
// when there is one, the error text otherwise, fallback last.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

func transportFailure(err error) *Failure {
	return &Failure{Kind: KindTransport, Message: err.Error(), Err: err}
}
