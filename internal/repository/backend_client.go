package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BackendClient implements domain.BackendAPI by calling the workout backend REST API
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: BackendClient satisfies BackendAPI.
var _ domain.BackendAPI = (*BackendClient)(nil)

// NewBackendClient creates a client targeting the given base URL, e.g. http://localhost:8000
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *BackendClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("httpclient: %s: %w", path, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("httpclient: %s %s returned %d: %s", method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *BackendClient) GetSession(ctx context.Context, sessionID int64) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%d", sessionID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *BackendClient) GetWorkoutDay(ctx context.Context, dayID int64) (*domain.WorkoutDay, error) {
	var d domain.WorkoutDay
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/days/%d", dayID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListWorkoutDays returns the day summaries, optionally of one plan (planID 0 means all)
func (c *BackendClient) ListWorkoutDays(ctx context.Context, planID int64) ([]*domain.WorkoutDaySummary, error) {
	path := "/api/days"
	if planID > 0 {
		path = fmt.Sprintf("/api/days?plan_id=%d", planID)
	}
	var days []*domain.WorkoutDaySummary
	if err := c.do(ctx, http.MethodGet, path, nil, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (c *BackendClient) GetExerciseHistory(ctx context.Context, exerciseID int64) (*domain.ExerciseHistory, error) {
	var h domain.ExerciseHistory
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/exercises/%d/history", exerciseID), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *BackendClient) CreateSetLog(ctx context.Context, sessionID int64, entry *domain.SetLogEntry) (*domain.SetLog, error) {
	var l domain.SetLog
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/log", sessionID), entry, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *BackendClient) UpdateSession(ctx context.Context, sessionID int64, update *domain.SessionUpdate) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/sessions/%d", sessionID), update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *BackendClient) CreateSession(ctx context.Context, req *domain.CreateSessionRequest) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *BackendClient) GetStats(ctx context.Context) (*domain.UserStats, error) {
	var st domain.UserStats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
