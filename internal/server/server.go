// Package server exposes the sqlite task store as the REST API the board's
// HTTP client speaks.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"kanban/internal/api"
	"kanban/internal/remote"
	"kanban/internal/storage"
	"kanban/internal/task"
)

const maxBodySize = "1M"

// New returns an echo instance with all routes registered.
func New(store *storage.Store, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodySize))
	Register(e, store, logger)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store *storage.Store, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	g := e.Group("/api/tasks")
	g.GET("", getTasks(store, logger))
	g.POST("", createTask(store, logger))
	g.POST("/reorder", reorderTasks(store, logger))
	g.GET("/:id", getTask(store, logger))
	g.PUT("/:id", updateTask(store, logger))
	g.PATCH("/:id/status", updateStatus(store, logger))
	g.DELETE("/:id", deleteTask(store, logger))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// service resolves the caller's partition. Responses are already written
// when ok is false.
func service(c echo.Context, store *storage.Store, logger *log.Logger) (*remote.LocalService, bool, error) {
	raw := c.Request().Header.Get(api.UserHeader)
	if raw == "" {
		logger.WithField("path", c.Path()).Error("missing user header")
		return nil, false, c.JSON(http.StatusUnauthorized, errorBody(api.UnauthorizedAccess, nil))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.WithField("user", raw).Warn("malformed user header")
		return nil, false, c.JSON(http.StatusBadRequest, errorBody(api.InvalidTaskData, map[string]string{api.UserHeader: "must be a UUID"}))
	}
	return remote.NewLocal(store, id.String(), logger), true, nil
}

func getTasks(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		env, err := svc.List(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

func getTask(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		env, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

func createTask(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		var d task.Draft
		if err := c.Bind(&d); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody(api.InvalidTaskData, nil))
		}
		env, err := svc.Create(c.Request().Context(), d)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, env)
	}
}

func updateTask(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		var d task.Draft
		if err := c.Bind(&d); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody(api.InvalidTaskData, nil))
		}
		env, err := svc.Update(c.Request().Context(), c.Param("id"), d)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

func updateStatus(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		var req api.StatusRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody(api.InvalidTaskData, nil))
		}
		env, err := svc.SetStatus(c.Request().Context(), c.Param("id"), task.Status(req.Status))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

func deleteTask(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		env, err := svc.Delete(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, api.Envelope[any]{Message: env.Message, Type: env.Type})
	}
}

func reorderTasks(store *storage.Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok, err := service(c, store, logger)
		if !ok {
			return err
		}
		var req api.ReorderRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody(api.InvalidTaskData, nil))
		}
		env, err := svc.Reorder(c.Request().Context(), req.TaskIDs, task.Status(req.Status))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, env)
	}
}

func fail(c echo.Context, err error) error {
	var f *remote.Failure
	if !errors.As(err, &f) {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorBody(api.UnexpectedError, nil))
	}
	status := f.Status
	if status == 0 {
		switch f.Kind {
		case remote.KindNotFound:
			status = http.StatusNotFound
		case remote.KindValidation:
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
		}
	}
	return c.JSON(status, errorBody(f.Message, f.Fields))
}

func errorBody(message string, fields map[string]string) api.Error {
	if len(fields) == 0 {
		fields = nil
	}
	return api.Error{
		Message:   message,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
		Type:      api.TypeError,
	}
}

type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
