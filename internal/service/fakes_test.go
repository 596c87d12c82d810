package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeAPI is an in-memory workout backend
type fakeAPI struct {
	mu          sync.Mutex
	sessions    map[int64]*domain.Session
	days        map[int64]*domain.WorkoutDay
	histories   map[int64]*domain.ExerciseHistory
	historyGate map[int64]chan struct{}
	historyHits map[int64]int
	setLogs     []*domain.SetLogEntry
	updates     []*domain.SessionUpdate
	created     []*domain.CreateSessionRequest
	nextID      int64

	sessionErr error
	setLogErr  error
	updateErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions:    make(map[int64]*domain.Session),
		days:        make(map[int64]*domain.WorkoutDay),
		histories:   make(map[int64]*domain.ExerciseHistory),
		historyGate: make(map[int64]chan struct{}),
		historyHits: make(map[int64]int),
		nextID:      100,
	}
}

// withDay registers a day and a session pointing at it
func (f *fakeAPI) withDay(sessionID int64, day *domain.WorkoutDay) *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days[day.ID] = day
	f.sessions[sessionID] = &domain.Session{ID: sessionID, WorkoutDayID: day.ID, StartedAt: time.Now()}
	return f
}

func (f *fakeAPI) withHistory(exerciseID int64, last, max float64) *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[exerciseID] = &domain.ExerciseHistory{ExerciseID: exerciseID, LastWeight: &last, MaxWeight: &max, TotalLogs: 1}
	return f
}

// gateHistory makes the history request of an exercise block until the returned func is called
func (f *fakeAPI) gateHistory(exerciseID int64) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.historyGate[exerciseID] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeAPI) GetSession(_ context.Context, sessionID int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeAPI) GetWorkoutDay(_ context.Context, dayID int64) (*domain.WorkoutDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.days[dayID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeAPI) GetExerciseHistory(ctx context.Context, exerciseID int64) (*domain.ExerciseHistory, error) {
	f.mu.Lock()
	f.historyHits[exerciseID]++
	gate := f.historyGate[exerciseID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.histories[exerciseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return h, nil
}

func (f *fakeAPI) CreateSetLog(_ context.Context, sessionID int64, entry *domain.SetLogEntry) (*domain.SetLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setLogErr != nil {
		return nil, f.setLogErr
	}
	f.setLogs = append(f.setLogs, entry)
	f.nextID++
	return &domain.SetLog{ID: f.nextID, SessionID: sessionID, ExerciseID: entry.ExerciseID, SetNumber: entry.SetNumber}, nil
}

func (f *fakeAPI) UpdateSession(_ context.Context, sessionID int64, update *domain.SessionUpdate) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	s := f.sessions[sessionID]
	return s, nil
}

func (f *fakeAPI) CreateSession(_ context.Context, req *domain.CreateSessionRequest) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.days[req.WorkoutDayID]; !ok {
		return nil, domain.ErrNotFound
	}
	f.created = append(f.created, req)
	f.nextID++
	s := &domain.Session{ID: f.nextID, WorkoutDayID: req.WorkoutDayID, StartedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

// loggedSets returns set logs in the order the backend received them
func (f *fakeAPI) loggedSets() []*domain.SetLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.SetLogEntry(nil), f.setLogs...)
}

func (f *fakeAPI) sessionUpdates() []*domain.SessionUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.SessionUpdate(nil), f.updates...)
}

func (f *fakeAPI) historyRequests(exerciseID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyHits[exerciseID]
}

var errBackendDown = errors.New("backend down")

// fakeOutbox records enqueued writes
type fakeOutbox struct {
	mu     sync.Mutex
	writes []*domain.PendingWrite
}

func (o *fakeOutbox) Enqueue(_ context.Context, w *domain.PendingWrite) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = append(o.writes, w)
	return nil
}

func (o *fakeOutbox) pending() []*domain.PendingWrite {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*domain.PendingWrite(nil), o.writes...)
}

// manualTicker fires only when the test says so
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
	owner   *manualTickers
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		t.owner.live.Add(-1)
	}
}

type manualTickers struct {
	mu      sync.Mutex
	tickers []*manualTicker
	live    atomic.Int32
}

func (m *manualTickers) New(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), owner: m}
	m.live.Add(1)
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

func (m *manualTickers) last(t *testing.T) *manualTicker {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tickers) == 0 {
		t.Fatal("no ticker created")
	}
	return m.tickers[len(m.tickers)-1]
}

// tick delivers one tick to the newest ticker and fails if nobody receives it
func (m *manualTickers) tick(t *testing.T) {
	t.Helper()
	ticker := m.last(t)
	select {
	case ticker.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("tick was not received")
	}
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// twoCircuitDay: circuit 0 = [A sets 2, B sets 1], circuit 1 = [C sets 3]
func twoCircuitDay() *domain.WorkoutDay {
	return &domain.WorkoutDay{
		ID:   7,
		Name: "Day 1 - Back & Biceps",
		Circuits: []*domain.Circuit{
			{ID: 1, CircuitNumber: 1, Rounds: 3, Exercises: []*domain.Exercise{
				{ID: 11, Name: "Lat Pulldown", Sets: "2", Reps: "8-10"},
				{ID: 12, Name: "Barbell Row", Sets: "1", Reps: ""},
			}},
			{ID: 2, CircuitNumber: 2, Rounds: 3, Exercises: []*domain.Exercise{
				{ID: 21, Name: "Hammer Curl", Sets: "3", Reps: "12"},
			}},
		},
	}
}
