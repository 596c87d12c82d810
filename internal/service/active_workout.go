package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/sirupsen/logrus"
)

// WorkoutOptions configures an ActiveWorkout. Every field is optional.
type WorkoutOptions struct {
	Logger logrus.FieldLogger
	Outbox PendingWriter
	Ticker TickerFunc
	Now    func() time.Time

	// OnComplete fires at most once, after the completion submission was attempted
	OnComplete func(summary *domain.SessionArchive)
	// OnNavigate fires when the session view should be left: on completion and on exit
	OnNavigate func(sessionID int64, reason domain.NavigateReason)
}

// ActiveWorkout is the guided session: it loads the workout day of a session,
// walks the cursor set by set, logs every completed set, keeps the elapsed
// time and finalizes the session at the end.
//
// All state sits behind one mutex. Network calls run in the background and
// never hold it.
type ActiveWorkout struct {
	api       domain.WorkoutAPI
	sessionID int64
	opts      WorkoutOptions
	log       logrus.FieldLogger
	metrics   *workoutMetrics

	ctx    context.Context
	cancel context.CancelFunc
	logger *SetLogger

	mu            sync.Mutex
	status        domain.WorkoutStatus
	session       *domain.Session
	day           *domain.WorkoutDay
	cursor        *Cursor
	clock         *Clock
	stagedWeight  string
	weightTyped   bool
	completedSets map[domain.Position]*string
}

// NewActiveWorkout mounts a workout for a session. The clock starts running
// immediately; call Load to fetch the structure and Close to release resources.
func NewActiveWorkout(api domain.WorkoutAPI, sessionID int64, opts WorkoutOptions) *ActiveWorkout {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.WithField("session_id", sessionID)
	ctx, cancel := context.WithCancel(context.Background())

	return &ActiveWorkout{
		api:           api,
		sessionID:     sessionID,
		opts:          opts,
		log:           log,
		metrics:       newWorkoutMetrics(),
		ctx:           ctx,
		cancel:        cancel,
		logger:        NewSetLogger(ctx, api, opts.Outbox, log),
		status:        domain.StatusLoading,
		clock:         NewClock(opts.Ticker, 0, domain.ClockRunning),
		completedSets: make(map[domain.Position]*string),
	}
}

// SessionID of the workout
func (w *ActiveWorkout) SessionID() int64 {
	return w.sessionID
}

// Load fetches the session and then its workout day. On failure the workout
// stays in the loading state; the caller decides whether to try again.
func (w *ActiveWorkout) Load(ctx context.Context) error {
	w.mu.Lock()
	if w.cursor != nil {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	session, err := w.api.GetSession(ctx, w.sessionID)
	if err != nil {
		w.log.WithError(err).Error("failed to fetch session")
		return fmt.Errorf("load session %d: %w", w.sessionID, err)
	}
	day, err := w.api.GetWorkoutDay(ctx, session.WorkoutDayID)
	if err != nil {
		w.log.WithError(err).WithField("workout_day_id", session.WorkoutDayID).Error("failed to fetch workout day")
		return fmt.Errorf("load workout day %d: %w", session.WorkoutDayID, err)
	}
	cursor, err := NewCursor(day)
	if err != nil {
		w.log.WithError(err).WithField("workout_day_id", day.ID).Error("workout day cannot be walked")
		return fmt.Errorf("load workout day %d: %w", day.ID, err)
	}

	w.mu.Lock()
	if w.status != domain.StatusLoading || w.cursor != nil {
		w.mu.Unlock()
		return nil
	}
	w.session = session
	w.day = day
	w.cursor = cursor
	w.status = domain.StatusActive
	exerciseID := cursor.Exercise().ID
	w.mu.Unlock()

	w.log.WithField("workout_day_id", day.ID).Info("workout loaded")
	w.fetchHistory(exerciseID)
	return nil
}

// Restore applies a saved snapshot to a loaded workout
func (w *ActiveWorkout) Restore(snap *domain.SessionSnapshot) error {
	w.mu.Lock()
	if err := w.activeLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.cursor.Restore(snap.Position); err != nil {
		w.mu.Unlock()
		return err
	}
	old := w.clock
	w.clock = NewClock(w.opts.Ticker, snap.ElapsedSeconds, snap.Clock)
	w.stagedWeight = snap.StagedWeight
	w.weightTyped = snap.StagedWeight != ""
	exerciseID := w.cursor.Exercise().ID
	w.mu.Unlock()

	old.Close()
	w.fetchHistory(exerciseID)
	return nil
}

// Advance completes the current set: it is recorded, submitted to the
// backend and the cursor moves forward. From the last set of the workout it
// finalizes the session instead.
func (w *ActiveWorkout) Advance(ctx context.Context) (*domain.WorkoutView, error) {
	w.mu.Lock()
	if err := w.activeLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	pos := w.cursor.Position()
	ex := w.cursor.Exercise()
	w.completedSets[pos] = stagedPtr(w.stagedWeight)
	w.logger.LogSet(w.sessionID, ex, pos.SetNumber, w.stagedWeight)

	step := w.cursor.Advance()
	if step == StepFinished {
		summary := w.finishLocked(domain.StatusCompleted)
		w.mu.Unlock()
		w.complete(ctx, summary)
		return w.View(), nil
	}

	var nextExerciseID int64
	if step.ExerciseChanged() {
		w.stagedWeight = ""
		w.weightTyped = false
		nextExerciseID = w.cursor.Exercise().ID
	}
	view := w.viewLocked()
	w.mu.Unlock()

	if nextExerciseID != 0 {
		w.fetchHistory(nextExerciseID)
	}
	return view, nil
}

// Skip is Advance under another name: the set is logged before moving on
func (w *ActiveWorkout) Skip(ctx context.Context) (*domain.WorkoutView, error) {
	return w.Advance(ctx)
}

// Retreat moves back one set without touching anything already logged
func (w *ActiveWorkout) Retreat() (*domain.WorkoutView, error) {
	w.mu.Lock()
	if err := w.activeLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	step := w.cursor.Retreat()
	var prevExerciseID int64
	if step.ExerciseChanged() {
		w.stagedWeight = ""
		w.weightTyped = false
		prevExerciseID = w.cursor.Exercise().ID
	}
	view := w.viewLocked()
	w.mu.Unlock()

	if prevExerciseID != 0 {
		w.fetchHistory(prevExerciseID)
	}
	return view, nil
}

// SetWeight stages the weight for the current set
func (w *ActiveWorkout) SetWeight(weight string) (*domain.WorkoutView, error) {
	if _, err := ParseWeight(weight); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.activeLocked(); err != nil {
		return nil, err
	}
	w.stagedWeight = weight
	w.weightTyped = true
	return w.viewLocked(), nil
}

// ToggleClock pauses or resumes the elapsed-time clock
func (w *ActiveWorkout) ToggleClock() (*domain.WorkoutView, error) {
	w.mu.Lock()
	if w.status == domain.StatusCompleted || w.status == domain.StatusExited {
		w.mu.Unlock()
		return nil, domain.ErrWorkoutFinished
	}
	clock := w.clock
	w.mu.Unlock()

	state := clock.Toggle()
	w.log.WithField("clock", state).Debug("clock toggled")
	return w.View(), nil
}

// Exit leaves the workout without completing the session
func (w *ActiveWorkout) Exit() error {
	w.mu.Lock()
	if w.status == domain.StatusCompleted || w.status == domain.StatusExited {
		w.mu.Unlock()
		return domain.ErrWorkoutFinished
	}
	w.finishLocked(domain.StatusExited)
	w.mu.Unlock()

	w.log.Info("workout exited")
	if w.opts.OnNavigate != nil {
		w.opts.OnNavigate(w.sessionID, domain.NavigateExit)
	}
	return nil
}

// Finished reports whether the workout was completed or exited
func (w *ActiveWorkout) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == domain.StatusCompleted || w.status == domain.StatusExited
}

// View renders the current state
func (w *ActiveWorkout) View() *domain.WorkoutView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Snapshot captures what is needed to resume the workout, nil before it is loaded
func (w *ActiveWorkout) Snapshot(userID string) *domain.SessionSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cursor == nil {
		return nil
	}
	return &domain.SessionSnapshot{
		SessionID:      w.sessionID,
		UserID:         userID,
		Position:       w.cursor.Position(),
		ElapsedSeconds: w.clock.Elapsed(),
		Clock:          w.clock.State(),
		StagedWeight:   w.stagedWeight,
		SavedAt:        w.opts.Now(),
	}
}

// Close releases the clock and waits for background requests. History
// fetches are cancelled; set and completion writes are allowed to finish.
func (w *ActiveWorkout) Close() {
	w.mu.Lock()
	clock := w.clock
	w.mu.Unlock()

	clock.Close()
	w.cancel()
	w.logger.Close()
}

func (w *ActiveWorkout) activeLocked() error {
	switch w.status {
	case domain.StatusLoading:
		return domain.ErrWorkoutNotLoaded
	case domain.StatusCompleted, domain.StatusExited:
		return domain.ErrWorkoutFinished
	}
	return nil
}

// finishLocked freezes the workout and builds the completion summary
func (w *ActiveWorkout) finishLocked(status domain.WorkoutStatus) *domain.SessionArchive {
	w.status = status
	clock := w.clock
	// the ticker goroutine takes only the clock lock, so stopping it here cannot deadlock
	clock.Close()

	summary := &domain.SessionArchive{
		SessionID:       w.sessionID,
		CompletedAt:     w.opts.Now(),
		DurationMinutes: clock.Elapsed() / 60,
		CompletedSets:   w.completedSetsLocked(),
	}
	if w.session != nil {
		summary.WorkoutDayID = w.session.WorkoutDayID
	}
	if w.day != nil {
		summary.WorkoutName = w.day.Name
	}
	return summary
}

// complete submits the completion and notifies the caller whatever the outcome
func (w *ActiveWorkout) complete(ctx context.Context, summary *domain.SessionArchive) {
	update := &domain.SessionUpdate{
		CompletedAt:     summary.CompletedAt,
		DurationMinutes: summary.DurationMinutes,
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()

	if _, err := w.api.UpdateSession(writeCtx, w.sessionID, update); err != nil {
		w.metrics.add(writeCtx, w.metrics.completions, "error")
		w.log.WithError(err).Error("failed to complete workout")
		w.logger.enqueue(writeCtx, &domain.PendingWrite{
			Kind:       domain.PendingCompletion,
			SessionID:  w.sessionID,
			Completion: update,
			LastError:  err.Error(),
		})
	} else {
		w.metrics.add(writeCtx, w.metrics.completions, "ok")
		w.log.WithField("duration_minutes", update.DurationMinutes).Info("workout completed")
	}

	if w.opts.OnComplete != nil {
		w.opts.OnComplete(summary)
	}
	if w.opts.OnNavigate != nil {
		w.opts.OnNavigate(w.sessionID, domain.NavigateCompleted)
	}
}

func (w *ActiveWorkout) fetchHistory(exerciseID int64) {
	w.logger.FetchHistory(exerciseID, func(h *domain.ExerciseHistory) {
		w.prefillWeight(exerciseID, h)
	})
}

// prefillWeight stages the last used weight, but only for the exercise still
// under the cursor and only if nothing was typed for it.
func (w *ActiveWorkout) prefillWeight(exerciseID int64, h *domain.ExerciseHistory) {
	if h.LastWeight == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != domain.StatusActive || w.cursor.Exercise().ID != exerciseID {
		return
	}
	if w.weightTyped || w.stagedWeight != "" {
		return
	}
	w.stagedWeight = formatWeight(*h.LastWeight)
}

func (w *ActiveWorkout) viewLocked() *domain.WorkoutView {
	elapsed := w.clock.Elapsed()
	view := &domain.WorkoutView{
		SessionID:      w.sessionID,
		Status:         w.status,
		Loaded:         w.cursor != nil,
		StagedWeight:   w.stagedWeight,
		ElapsedSeconds: elapsed,
		Elapsed:        FormatElapsed(elapsed),
		Clock:          w.clock.State(),
		CompletedSets:  make(map[string]string, len(w.completedSets)),
	}
	for pos, weight := range w.completedSets {
		v := ""
		if weight != nil {
			v = *weight
		}
		view.CompletedSets[pos.Key()] = v
	}
	if w.cursor == nil {
		return view
	}

	pos := w.cursor.Position()
	ex := w.cursor.Exercise()
	view.WorkoutName = w.day.Name
	view.Position = &pos
	view.Exercise = ex
	view.TotalSets = ex.TotalSets()
	view.RepsTarget = ex.RepsTarget()
	view.ExerciseNumber, view.TotalExercises = w.cursor.Progress()
	if h, ok := w.logger.History(ex.ID); ok {
		view.LastWeight = h.LastWeight
		view.MaxWeight = h.MaxWeight
	}
	return view
}

func (w *ActiveWorkout) completedSetsLocked() []*domain.CompletedSet {
	sets := make([]*domain.CompletedSet, 0, len(w.completedSets))
	for pos, weight := range w.completedSets {
		sets = append(sets, &domain.CompletedSet{Position: pos, Weight: weight})
	}
	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i].Position, sets[j].Position
		if a.CircuitIndex != b.CircuitIndex {
			return a.CircuitIndex < b.CircuitIndex
		}
		if a.ExerciseIndex != b.ExerciseIndex {
			return a.ExerciseIndex < b.ExerciseIndex
		}
		return a.SetNumber < b.SetNumber
	})
	return sets
}

func stagedPtr(weight string) *string {
	if weight == "" {
		return nil
	}
	return &weight
}

func formatWeight(v float64) string {
	return fmt.Sprintf("%g", v)
}
