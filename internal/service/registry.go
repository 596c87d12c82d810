package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/sirupsen/logrus"
)

// StatsRefresher drops cached aggregate statistics after a completed workout
type StatsRefresher interface {
	InvalidateStats(ctx context.Context) error
}

// RegistryOptions wires the optional collaborators of the registry
type RegistryOptions struct {
	Logger    logrus.FieldLogger
	Snapshots domain.SnapshotRepository
	Outbox    PendingWriter
	Archive   domain.FileRepository
	Stats     StatsRefresher
	Ticker    TickerFunc
}

type registryEntry struct {
	userID  string
	workout *ActiveWorkout
}

// Registry holds the active workouts of this process, one per session id
type Registry struct {
	api  domain.WorkoutAPI
	opts RegistryOptions
	log  logrus.FieldLogger

	mu       sync.Mutex
	workouts map[int64]*registryEntry
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry(api domain.WorkoutAPI, opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		api:      api,
		opts:     opts,
		log:      opts.Logger.WithField("component", "registry"),
		workouts: make(map[int64]*registryEntry),
	}
}

// Start creates a backend session for a workout day and opens it
func (r *Registry) Start(ctx context.Context, userID string, dayID int64) (*ActiveWorkout, error) {
	session, err := r.api.CreateSession(ctx, &domain.CreateSessionRequest{WorkoutDayID: dayID})
	if err != nil {
		return nil, fmt.Errorf("failed to start session for day %d: %w", dayID, err)
	}
	r.log.WithFields(logrus.Fields{"session_id": session.ID, "workout_day_id": dayID}).Info("session started")
	return r.Open(ctx, userID, session.ID)
}

// Open returns the active workout of a session, mounting and loading it if needed.
// A workout whose load failed stays registered in the loading state; opening
// it again retries the load.
func (r *Registry) Open(ctx context.Context, userID string, sessionID int64) (*ActiveWorkout, error) {
	r.mu.Lock()
	entry, ok := r.workouts[sessionID]
	if ok && entry.userID != userID {
		r.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	if !ok {
		entry = &registryEntry{userID: userID, workout: r.mount(sessionID)}
		r.workouts[sessionID] = entry
	}
	r.mu.Unlock()

	w := entry.workout
	if w.View().Loaded {
		return w, nil
	}
	if err := w.Load(ctx); err != nil {
		r.mu.Lock()
		if r.workouts[sessionID] == entry {
			delete(r.workouts, sessionID)
		}
		r.mu.Unlock()
		w.Close()
		return nil, err
	}
	r.restore(ctx, w)
	return w, nil
}

// Get returns a registered workout
func (r *Registry) Get(userID string, sessionID int64) (*ActiveWorkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.workouts[sessionID]
	if !ok || entry.userID != userID {
		return nil, domain.ErrNotFound
	}
	return entry.workout, nil
}

// Do runs a command against a registered workout and persists its snapshot
func (r *Registry) Do(ctx context.Context, userID string, sessionID int64, cmd func(w *ActiveWorkout) (*domain.WorkoutView, error)) (*domain.WorkoutView, error) {
	w, err := r.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	view, err := cmd(w)
	if err != nil {
		return nil, err
	}
	if !w.Finished() {
		r.saveSnapshot(ctx, userID, w)
	}
	return view, nil
}

// Exit leaves a workout without completing it
func (r *Registry) Exit(userID string, sessionID int64) error {
	w, err := r.Get(userID, sessionID)
	if err != nil {
		return err
	}
	return w.Exit()
}

// Len is the number of registered workouts
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workouts)
}

// Close closes every workout and waits for background work
func (r *Registry) Close() {
	r.mu.Lock()
	workouts := make([]*ActiveWorkout, 0, len(r.workouts))
	for id, entry := range r.workouts {
		workouts = append(workouts, entry.workout)
		delete(r.workouts, id)
	}
	r.mu.Unlock()

	for _, w := range workouts {
		w.Close()
	}
	r.wg.Wait()
}

func (r *Registry) mount(sessionID int64) *ActiveWorkout {
	return NewActiveWorkout(r.api, sessionID, WorkoutOptions{
		Logger:     r.opts.Logger,
		Outbox:     r.opts.Outbox,
		Ticker:     r.opts.Ticker,
		OnComplete: r.onComplete,
		OnNavigate: r.onNavigate,
	})
}

func (r *Registry) restore(ctx context.Context, w *ActiveWorkout) {
	if r.opts.Snapshots == nil {
		return
	}
	snap, err := r.opts.Snapshots.Get(ctx, w.SessionID())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.WithField("session_id", w.SessionID()).WithError(err).Warn("failed to read snapshot")
		}
		return
	}
	if err := w.Restore(snap); err != nil {
		r.log.WithField("session_id", w.SessionID()).WithError(err).Warn("snapshot does not fit workout, starting over")
		return
	}
	r.log.WithField("session_id", w.SessionID()).Info("workout resumed from snapshot")
}

func (r *Registry) saveSnapshot(ctx context.Context, userID string, w *ActiveWorkout) {
	if r.opts.Snapshots == nil {
		return
	}
	snap := w.Snapshot(userID)
	if snap == nil {
		return
	}
	if err := r.opts.Snapshots.Save(ctx, snap); err != nil {
		r.log.WithField("session_id", snap.SessionID).WithError(err).Warn("failed to save snapshot")
	}
}

// onNavigate evicts the workout; closing waits for its pending writes, so it runs in the background
func (r *Registry) onNavigate(sessionID int64, reason domain.NavigateReason) {
	r.mu.Lock()
	entry, ok := r.workouts[sessionID]
	delete(r.workouts, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}

	r.log.WithFields(logrus.Fields{"session_id": sessionID, "reason": reason}).Info("leaving workout")
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		entry.workout.Close()
		if r.opts.Snapshots != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.opts.Snapshots.Delete(ctx, sessionID); err != nil {
				r.log.WithField("session_id", sessionID).WithError(err).Warn("failed to delete snapshot")
			}
		}
	}()
}

func (r *Registry) onComplete(summary *domain.SessionArchive) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log := r.log.WithField("session_id", summary.SessionID)

	if r.opts.Stats != nil {
		if err := r.opts.Stats.InvalidateStats(ctx); err != nil {
			log.WithError(err).Warn("failed to invalidate stats")
		}
	}

	if r.opts.Archive != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			log.WithError(err).Error("failed to marshal session archive")
			return
		}
		key := fmt.Sprintf("sessions/%d.json", summary.SessionID)
		url, err := r.opts.Archive.Upload(ctx, data, key, "application/json")
		if err != nil {
			log.WithError(err).Warn("failed to archive session")
			return
		}
		log.WithField("url", url).Info("session archived")
	}
}
