package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"kanban/internal/api"
	"kanban/internal/task"
)

const maxResponseSize = 4 << 20

const unavailable = "Task service unavailable"

// BreakerSettings configures the circuit breaker in front of the API. Only
// transport failures count against it; a rejected payload is an answer.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// HTTPService talks to the REST API served by kanband.
type HTTPService struct {
	baseURL string
	userID  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *log.Entry
}

var _ Service = (*HTTPService)(nil)

type HTTPOption func(*HTTPService)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPService) {
		s.client = c
	}
}

func WithBreaker(b BreakerSettings) HTTPOption {
	return func(s *HTTPService) {
		s.breaker = newBreaker(b, s.log)
	}
}

func NewHTTP(baseURL, userID string, logger *log.Logger, opts ...HTTPOption) *HTTPService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{},
		log:     logger.WithField("api", baseURL),
	}
	s.breaker = newBreaker(BreakerSettings{}, s.log)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newBreaker(b BreakerSettings, entry *log.Entry) *gobreaker.CircuitBreaker {
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.Interval == 0 {
		b.Interval = 30 * time.Second
	}
	if b.Timeout == 0 {
		b.Timeout = 15 * time.Second
	}
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "task-api",
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			entry.WithFields(log.Fields{"from": from.String(), "to": to.String()}).Warn("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			var f *Failure
			if errors.As(err, &f) {
				return f.Kind != KindTransport
			}
			return err == nil
		},
	})
}

func (s *HTTPService) List(ctx context.Context) (api.Envelope[[]task.Task], error) {
	return call[[]task.Task](ctx, s, http.MethodGet, "/tasks", nil)
}

func (s *HTTPService) Get(ctx context.Context, id string) (api.Envelope[task.Task], error) {
	return call[task.Task](ctx, s, http.MethodGet, taskPath(id), nil)
}

func (s *HTTPService) Create(ctx context.Context, d task.Draft) (api.Envelope[task.Task], error) {
	return call[task.Task](ctx, s, http.MethodPost, "/tasks", d)
}

func (s *HTTPService) Update(ctx context.Context, id string, d task.Draft) (api.Envelope[task.Task], error) {
	return call[task.Task](ctx, s, http.MethodPut, taskPath(id), d)
}

func (s *HTTPService) Delete(ctx context.Context, id string) (api.Envelope[struct{}], error) {
	return call[struct{}](ctx, s, http.MethodDelete, taskPath(id), nil)
}

func (s *HTTPService) Reorder(ctx context.Context, ids []string, status task.Status) (api.Envelope[[]task.Task], error) {
	return call[[]task.Task](ctx, s, http.MethodPost, "/tasks/reorder", api.ReorderRequest{TaskIDs: ids, Status: string(status)})
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func call[T any](ctx context.Context, s *HTTPService, method, path string, body any) (api.Envelope[T], error) {
	var env api.Envelope[T]
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.roundTrip(ctx, method, path, body, &env)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return env, &Failure{Kind: KindTransport, Message: unavailable, Err: err}
	}
	if err != nil {
		s.log.WithError(err).WithFields(log.Fields{"method": method, "path": path}).Debug("request rejected")
	}
	return env, err
}

func (s *HTTPService) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return transportFailure(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return transportFailure(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.userID != "" {
		req.Header.Set(api.UserHeader, s.userID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportFailure(err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return failureFromResponse(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return transportFailure(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func failureFromResponse(status int, data []byte) *Failure {
	var body api.Error
	if len(data) > 0 {
		// A body that is not an api.Error still leaves the status to go on.
		_ = sonic.Unmarshal(data, &body)
	}
	f := &Failure{Status: status, Message: body.Message, Fields: body.Errors}
	switch {
	case status == http.StatusNotFound:
		f.Kind = KindNotFound
	case status >= 400 && status < 500:
		f.Kind = KindValidation
	default:
		f.Kind = KindTransport
	}
	if f.Message == "" {
		f.Message = http.StatusText(status)
	}
	return f
}
