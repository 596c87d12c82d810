package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend serves one workout day and records set logs
type stubBackend struct {
	mu       sync.Mutex
	day      *domain.WorkoutDay
	sessions map[int64]*domain.Session
	logs     []*domain.SetLogEntry
	nextID   int64
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		day: &domain.WorkoutDay{ID: 3, Name: "Push", Circuits: []*domain.Circuit{
			{ID: 1, Exercises: []*domain.Exercise{
				{ID: 11, Name: "Bench Press", Sets: "2", Reps: "8-10"},
				{ID: 12, Name: "Dips", Sets: "1", Reps: "12"},
			}},
		}},
		sessions: make(map[int64]*domain.Session),
		nextID:   40,
	}
}

func (b *stubBackend) GetSession(_ context.Context, id int64) (*domain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (b *stubBackend) GetWorkoutDay(_ context.Context, id int64) (*domain.WorkoutDay, error) {
	if id != b.day.ID {
		return nil, domain.ErrNotFound
	}
	return b.day, nil
}

func (b *stubBackend) GetExerciseHistory(context.Context, int64) (*domain.ExerciseHistory, error) {
	return nil, domain.ErrNotFound
}

func (b *stubBackend) CreateSetLog(_ context.Context, sessionID int64, entry *domain.SetLogEntry) (*domain.SetLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, entry)
	return &domain.SetLog{ID: int64(len(b.logs)), SessionID: sessionID}, nil
}

func (b *stubBackend) UpdateSession(_ context.Context, id int64, _ *domain.SessionUpdate) (*domain.Session, error) {
	return b.GetSession(context.Background(), id)
}

func (b *stubBackend) CreateSession(_ context.Context, req *domain.CreateSessionRequest) (*domain.Session, error) {
	if req.WorkoutDayID != b.day.ID {
		return nil, domain.ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &domain.Session{ID: b.nextID, WorkoutDayID: req.WorkoutDayID, StartedAt: time.Now()}
	b.sessions[s.ID] = s
	return s, nil
}

func (b *stubBackend) GetStats(context.Context) (*domain.UserStats, error) {
	return &domain.UserStats{TotalWorkouts: 7, CurrentStreak: 2}, nil
}

// memoryToday keeps today's picks in a map
type memoryToday struct {
	mu    sync.Mutex
	items map[string]*domain.TodaysWorkout
}

func (m *memoryToday) Get(_ context.Context, userID string) (*domain.TodaysWorkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.items[userID]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memoryToday) Save(_ context.Context, t *domain.TodaysWorkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[t.UserID] = t
	return nil
}

func (m *memoryToday) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

// asUser stands in for the auth middleware, taking the user from a header
func asUser(c *fiber.Ctx) error {
	c.Locals(middleware.UserIDKey, c.Get("X-Test-User", "user-1"))
	return c.Next()
}

func newTestApp(t *testing.T, backend *stubBackend) *fiber.App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	registry := service.NewRegistry(backend, service.RegistryOptions{Logger: logger})
	t.Cleanup(registry.Close)

	workouts := NewWorkoutHandler(registry)
	today := NewTodayHandler(service.NewTodayService(&memoryToday{items: map[string]*domain.TodaysWorkout{}}, backend))
	stats := NewStatsHandler(backend, nil, nil)

	app := fiber.New()
	api := app.Group("/api/v1", asUser)
	api.Post("/days/:day_id/sessions", workouts.StartSession)
	api.Post("/sessions/:id/open", workouts.OpenSession)
	api.Get("/sessions/:id", workouts.GetSession)
	api.Post("/sessions/:id/next", workouts.Next)
	api.Post("/sessions/:id/skip", workouts.Skip)
	api.Post("/sessions/:id/previous", workouts.Previous)
	api.Post("/sessions/:id/clock/toggle", workouts.ToggleClock)
	api.Put("/sessions/:id/weight", workouts.SetWeight)
	api.Delete("/sessions/:id", workouts.ExitSession)
	api.Get("/today", today.GetToday)
	api.Put("/today", today.SetToday)
	api.Delete("/today", today.ClearToday)
	api.Post("/today/exercises/:exercise_id/toggle", today.ToggleExercise)
	api.Get("/stats", stats.GetStats)
	api.Get("/days", stats.ListDays)
	api.Post("/outbox/replay", stats.ReplayOutbox)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body, user string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func position(view map[string]interface{}) (exerciseIndex, setNumber float64) {
	pos, _ := view["position"].(map[string]interface{})
	return pos["exercise_index"].(float64), pos["set_number"].(float64)
}

func TestWorkoutHandler_SessionFlow(t *testing.T) {
	backend := newStubBackend()
	app := newTestApp(t, backend)

	status, view := call(t, app, http.MethodPost, "/api/v1/days/3/sessions", "", "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(41), view["session_id"])
	assert.Equal(t, "Push", view["workout_name"])
	assert.Equal(t, "8-10", view["reps_target"])
	ex, set := position(view)
	assert.Equal(t, float64(0), ex)
	assert.Equal(t, float64(1), set)

	status, view = call(t, app, http.MethodPut, "/api/v1/sessions/41/weight", `{"weight":"60"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "60", view["staged_weight"])

	status, view = call(t, app, http.MethodPost, "/api/v1/sessions/41/next", "", "")
	require.Equal(t, http.StatusOK, status)
	_, set = position(view)
	assert.Equal(t, float64(2), set)
	assert.Equal(t, "60", view["staged_weight"], "weight carries to the next set")

	status, view = call(t, app, http.MethodPost, "/api/v1/sessions/41/skip", "", "")
	require.Equal(t, http.StatusOK, status)
	ex, set = position(view)
	assert.Equal(t, float64(1), ex)
	assert.Equal(t, float64(1), set)

	status, view = call(t, app, http.MethodPost, "/api/v1/sessions/41/previous", "", "")
	require.Equal(t, http.StatusOK, status)
	ex, set = position(view)
	assert.Equal(t, float64(0), ex)
	assert.Equal(t, float64(2), set)

	status, view = call(t, app, http.MethodPost, "/api/v1/sessions/41/clock/toggle", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.ClockPaused), view["clock"])

	status, view = call(t, app, http.MethodGet, "/api/v1/sessions/41", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.StatusActive), view["status"])

	status, _ = call(t, app, http.MethodDelete, "/api/v1/sessions/41", "", "")
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/sessions/41/next", "", "")
	assert.Equal(t, http.StatusNotFound, status, "exited workouts are released")
}

func TestWorkoutHandler_Errors(t *testing.T) {
	app := newTestApp(t, newStubBackend())

	status, _ := call(t, app, http.MethodPost, "/api/v1/days/99/sessions", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/sessions/abc/next", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/sessions/5/open", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/days/3/sessions", "", "alice")
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/sessions/41", "", "bob")
	assert.Equal(t, http.StatusNotFound, status, "sessions are private to their owner")

	status, body := call(t, app, http.MethodPut, "/api/v1/sessions/41/weight", `{"weight":"heavy"}`, "alice")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])

	status, _ = call(t, app, http.MethodPut, "/api/v1/sessions/41/weight", `not json`, "alice")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidWeight, http.StatusBadRequest},
		{domain.ErrWorkoutNotLoaded, http.StatusConflict},
		{domain.ErrWorkoutFinished, http.StatusConflict},
		{domain.ErrEmptyWorkout, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestTodayHandler(t *testing.T) {
	app := newTestApp(t, newStubBackend())

	status, _ := call(t, app, http.MethodGet, "/api/v1/today", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPut, "/api/v1/today", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, view := call(t, app, http.MethodPut, "/api/v1/today", `{"workout_day_id":3}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), view["total_exercises"])
	assert.Equal(t, float64(0), view["progress_percent"])

	status, view = call(t, app, http.MethodPost, "/api/v1/today/exercises/11/toggle", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), view["completed_count"])
	assert.Equal(t, float64(50), view["progress_percent"])

	status, _ = call(t, app, http.MethodDelete, "/api/v1/today", "", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/today", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatsHandler(t *testing.T) {
	app := newTestApp(t, newStubBackend())

	status, body := call(t, app, http.MethodGet, "/api/v1/stats", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["total_workouts"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/days", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/outbox/replay", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
