package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const defaultWriteTimeout = 10 * time.Second

// PendingWriter accepts backend writes that could not be delivered
type PendingWriter interface {
	Enqueue(ctx context.Context, w *domain.PendingWrite) error
}

type setLogJob struct {
	sessionID int64
	entry     *domain.SetLogEntry
}

// SetLogger submits completed sets and keeps the weight history of the
// exercises visited during one workout.
//
// Submissions never block the caller. They are buffered without bound and a
// single goroutine issues them to the backend one at a time in call order.
// History results are stored by exercise id; readers look up the id they care about.
type SetLogger struct {
	api     domain.WorkoutAPI
	outbox  PendingWriter
	log     logrus.FieldLogger
	metrics *workoutMetrics
	timeout time.Duration

	ctx    context.Context
	wake   chan struct{}
	wg     sync.WaitGroup
	flight singleflight.Group

	mu      sync.Mutex
	closed  bool
	pending []setLogJob
	history map[int64]*domain.ExerciseHistory
}

// NewSetLogger starts the dispatcher. ctx bounds history fetches; writes
// outlive it so a closing workout still delivers its last sets.
func NewSetLogger(ctx context.Context, api domain.WorkoutAPI, outbox PendingWriter, log logrus.FieldLogger) *SetLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &SetLogger{
		api:     api,
		outbox:  outbox,
		log:     log,
		metrics: newWorkoutMetrics(),
		timeout: defaultWriteTimeout,
		ctx:     ctx,
		wake:    make(chan struct{}, 1),
		history: make(map[int64]*domain.ExerciseHistory),
	}
	l.wg.Add(1)
	go l.dispatch()
	return l
}

// BuildSetLogEntry derives the backend payload for one completed set.
// A non-empty weight that is not a decimal number is sent as null and
// reported with ErrInvalidWeight.
func BuildSetLogEntry(ex *domain.Exercise, setNumber int, stagedWeight string) (*domain.SetLogEntry, error) {
	entry := &domain.SetLogEntry{
		ExerciseID:    ex.ID,
		SetNumber:     setNumber,
		RepsCompleted: ex.RepsCompleted(),
		Completed:     true,
	}
	w, err := ParseWeight(stagedWeight)
	if err != nil {
		return entry, err
	}
	entry.WeightUsed = w
	return entry, nil
}

// ParseWeight parses staged weight text; empty input means no weight.
// Only finite, non-negative numbers are accepted.
func ParseWeight(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidWeight, s)
	}
	return &v, nil
}

// LogSet queues the submission of a completed set and returns immediately
func (l *SetLogger) LogSet(sessionID int64, ex *domain.Exercise, setNumber int, stagedWeight string) {
	entry, err := BuildSetLogEntry(ex, setNumber, stagedWeight)
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"session_id":  sessionID,
			"exercise_id": ex.ID,
			"set_number":  setNumber,
		}).WithError(err).Warn("logging set without weight")
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.log.WithField("session_id", sessionID).Warn("set logger closed, dropping set")
		return
	}
	l.pending = append(l.pending, setLogJob{sessionID: sessionID, entry: entry})
	l.mu.Unlock()
	l.signal()
}

func (l *SetLogger) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// dispatch drains the buffer in order until the logger is closed and empty
func (l *SetLogger) dispatch() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		jobs := l.pending
		l.pending = nil
		closed := l.closed
		l.mu.Unlock()

		for _, job := range jobs {
			l.submit(job)
		}
		if len(jobs) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *SetLogger) submit(job setLogJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), l.timeout)
	defer cancel()

	fields := logrus.Fields{
		"session_id":  job.sessionID,
		"exercise_id": job.entry.ExerciseID,
		"set_number":  job.entry.SetNumber,
	}

	if _, err := l.api.CreateSetLog(ctx, job.sessionID, job.entry); err != nil {
		l.metrics.add(ctx, l.metrics.setLogFailures, "error")
		l.log.WithFields(fields).WithError(err).Error("failed to log set")
		l.enqueue(ctx, &domain.PendingWrite{
			Kind:      domain.PendingSetLog,
			SessionID: job.sessionID,
			SetLog:    job.entry,
			LastError: err.Error(),
		})
		return
	}
	l.metrics.add(ctx, l.metrics.setsLogged, "ok")
	l.log.WithFields(fields).Debug("set logged")
}

func (l *SetLogger) enqueue(ctx context.Context, w *domain.PendingWrite) {
	if l.outbox == nil {
		return
	}
	if err := l.outbox.Enqueue(ctx, w); err != nil {
		l.log.WithField("session_id", w.SessionID).WithError(err).Error("failed to queue pending write")
	}
}

// History returns the cached history of an exercise
func (l *SetLogger) History(exerciseID int64) (*domain.ExerciseHistory, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.history[exerciseID]
	return h, ok
}

// FetchHistory loads the history of an exercise in the background and calls
// onLoaded with it. A cached result is handed back without a request; it is
// kept for the lifetime of the workout. Not-found and failures leave the
// cache untouched and onLoaded is not called.
func (l *SetLogger) FetchHistory(exerciseID int64, onLoaded func(*domain.ExerciseHistory)) {
	if h, ok := l.History(exerciseID); ok {
		if onLoaded != nil {
			onLoaded(h)
		}
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		h, err := l.fetch(exerciseID)
		if err != nil || h == nil {
			return
		}
		if onLoaded != nil {
			onLoaded(h)
		}
	}()
}

func (l *SetLogger) fetch(exerciseID int64) (*domain.ExerciseHistory, error) {
	key := strconv.FormatInt(exerciseID, 10)
	v, err, _ := l.flight.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
		defer cancel()
		return l.api.GetExerciseHistory(ctx, exerciseID)
	})

	entry := l.log.WithField("exercise_id", exerciseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.metrics.add(l.ctx, l.metrics.historyFetches, "not_found")
			entry.Debug("no weight history")
		} else if !errors.Is(err, context.Canceled) {
			l.metrics.add(l.ctx, l.metrics.historyFetches, "error")
			entry.WithError(err).Warn("failed to fetch weight history")
		}
		return nil, err
	}

	h := v.(*domain.ExerciseHistory)
	if h == nil {
		return nil, nil
	}
	l.mu.Lock()
	l.history[exerciseID] = h
	l.mu.Unlock()
	l.metrics.add(l.ctx, l.metrics.historyFetches, "ok")
	return h, nil
}

// Close stops accepting sets and waits for in-flight submissions and fetches
func (l *SetLogger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
	l.wg.Wait()
}
