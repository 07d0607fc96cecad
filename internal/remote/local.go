package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"kanban/internal/api"
	"kanban/internal/storage"
	"kanban/internal/task"
)

// LocalService serves one user's tasks straight from sqlite. The board uses
// it when no API endpoint is configured; the REST server wraps it per request.
type LocalService struct {
	store  *storage.Store
	userID string
	log    *log.Entry
}

var _ Service = (*LocalService)(nil)

func NewLocal(store *storage.Store, userID string, logger *log.Logger) *LocalService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LocalService{
		store:  store,
		userID: userID,
		log:    logger.WithField("user", userID),
	}
}

func (s *LocalService) List(ctx context.Context) (api.Envelope[[]task.Task], error) {
	tasks, err := s.store.FetchTasks(ctx, s.userID)
	if err != nil {
		return api.Envelope[[]task.Task]{}, s.fail(err, "")
	}
	return api.Success(tasks, api.TasksRetrieved), nil
}

func (s *LocalService) Get(ctx context.Context, id string) (api.Envelope[task.Task], error) {
	t, err := s.store.GetTask(ctx, s.userID, id)
	if err != nil {
		return api.Envelope[task.Task]{}, s.fail(err, id)
	}
	return api.Success(t, api.TaskRetrieved), nil
}

func (s *LocalService) Create(ctx context.Context, d task.Draft) (api.Envelope[task.Task], error) {
	if err := validate(d); err != nil {
		return api.Envelope[task.Task]{}, err
	}
	t, err := s.store.AddTask(ctx, s.userID, d)
	if err != nil {
		return api.Envelope[task.Task]{}, s.fail(err, "")
	}
	return api.Success(t, api.TaskCreated), nil
}

func (s *LocalService) Update(ctx context.Context, id string, d task.Draft) (api.Envelope[task.Task], error) {
	if err := validate(d); err != nil {
		return api.Envelope[task.Task]{}, err
	}
	t, err := s.store.UpdateTask(ctx, s.userID, id, d)
	if err != nil {
		return api.Envelope[task.Task]{}, s.fail(err, id)
	}
	return api.Success(t, api.TaskUpdated), nil
}

func (s *LocalService) SetStatus(ctx context.Context, id string, status task.Status) (api.Envelope[task.Task], error) {
	if !status.Valid() {
		return api.Envelope[task.Task]{}, invalidStatus()
	}
	t, err := s.store.SetStatus(ctx, s.userID, id, status)
	if err != nil {
		return api.Envelope[task.Task]{}, s.fail(err, id)
	}
	return api.Success(t, api.TaskUpdated), nil
}

func (s *LocalService) Delete(ctx context.Context, id string) (api.Envelope[struct{}], error) {
	if err := s.store.DeleteTask(ctx, s.userID, id); err != nil {
		return api.Envelope[struct{}]{}, s.fail(err, id)
	}
	return api.Success(struct{}{}, api.TaskDeleted), nil
}

func (s *LocalService) Reorder(ctx context.Context, ids []string, status task.Status) (api.Envelope[[]task.Task], error) {
	if !status.Valid() {
		return api.Envelope[[]task.Task]{}, invalidStatus()
	}
	lane, err := s.store.Reorder(ctx, s.userID, ids, status)
	if err != nil {
		return api.Envelope[[]task.Task]{}, s.fail(err, "")
	}
	return api.Success(lane, api.TasksReordered), nil
}

func (s *LocalService) fail(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.log.WithField("task", id).Warn("task not found")
		return &Failure{Kind: KindNotFound, Message: fmt.Sprintf("%s %s", api.TaskNotFound, id), Status: http.StatusNotFound, Err: err}
	}
	s.log.WithError(err).Error("database operation failed")
	return &Failure{Kind: KindTransport, Message: api.DatabaseError, Status: http.StatusInternalServerError, Err: err}
}

func validate(d task.Draft) error {
	if err := d.Validate(); err != nil {
		return &Failure{
			Kind:    KindValidation,
			Message: api.InvalidTaskData,
			Status:  http.StatusBadRequest,
			Fields:  d.FieldErrors(),
			Err:     err,
		}
	}
	return nil
}

func invalidStatus() error {
	return &Failure{
		Kind:    KindValidation,
		Message: api.InvalidTaskData,
		Status:  http.StatusBadRequest,
		Fields:  map[string]string{"status": "must be one of TODO, DOING, DONE"},
		Err:     task.ErrInvalidStatus,
	}
}
