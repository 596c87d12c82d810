package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultOutboxBatch       = 100
	defaultOutboxConcurrency = 4
	outboxBaseBackoff        = 30 * time.Second
	outboxMaxBackoff         = 30 * time.Minute
)

// ReplayResult summarizes one outbox pass
type ReplayResult struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

// OutboxService keeps failed backend writes and replays them later.
// Entries are retried with exponential backoff until MaxAttempts is reached.
type OutboxService struct {
	repo        domain.OutboxRepository
	api         domain.WorkoutAPI
	maxAttempts int
	log         logrus.FieldLogger
	metrics     *workoutMetrics
	now         func() time.Time
}

// NewOutboxService creates an outbox over a repository
func NewOutboxService(repo domain.OutboxRepository, api domain.WorkoutAPI, maxAttempts int, log logrus.FieldLogger) *OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OutboxService{
		repo:        repo,
		api:         api,
		maxAttempts: maxAttempts,
		log:         log.WithField("component", "outbox"),
		metrics:     newWorkoutMetrics(),
		now:         time.Now,
	}
}

// generateULID creates a new ULID string
func generateULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// Enqueue stores a failed write. The failure that caused it counts as the first attempt.
func (s *OutboxService) Enqueue(ctx context.Context, w *domain.PendingWrite) error {
	now := s.now()
	w.ID = generateULID(now)
	if w.Attempts == 0 {
		w.Attempts = 1
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	if err := s.repo.Create(ctx, w); err != nil {
		return fmt.Errorf("failed to enqueue %s for session %d: %w", w.Kind, w.SessionID, err)
	}
	s.log.WithFields(logrus.Fields{"id": w.ID, "kind": w.Kind, "session_id": w.SessionID}).Info("write queued for replay")
	return nil
}

// Replay resubmits every pending write whose backoff has elapsed
func (s *OutboxService) Replay(ctx context.Context) (*ReplayResult, error) {
	pending, err := s.repo.ListPending(ctx, s.maxAttempts, defaultOutboxBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending writes: %w", err)
	}

	var delivered, failed, deferred atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultOutboxConcurrency)

	now := s.now()
	for _, w := range pending {
		if now.Before(w.UpdatedAt.Add(backoff(w.Attempts))) {
			deferred.Add(1)
			continue
		}
		w := w
		g.Go(func() error {
			if err := s.deliver(gctx, w); err != nil {
				failed.Add(1)
				s.metrics.add(gctx, s.metrics.outboxReplayed, "error")
				s.log.WithField("id", w.ID).WithError(err).Warn("replay failed")
				if markErr := s.repo.MarkFailed(gctx, w.ID, err.Error()); markErr != nil {
					return fmt.Errorf("failed to mark %s: %w", w.ID, markErr)
				}
				return nil
			}
			delivered.Add(1)
			s.metrics.add(gctx, s.metrics.outboxReplayed, "ok")
			if err := s.repo.Delete(gctx, w.ID); err != nil {
				return fmt.Errorf("failed to delete delivered %s: %w", w.ID, err)
			}
			return nil
		})
	}

	err = g.Wait()
	return &ReplayResult{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Deferred:  int(deferred.Load()),
	}, err
}

// Run replays on an interval until ctx is done
func (s *OutboxService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Replay(ctx)
			if err != nil {
				s.log.WithError(err).Error("outbox replay pass failed")
				continue
			}
			if res.Delivered+res.Failed > 0 {
				s.log.WithFields(logrus.Fields{
					"delivered": res.Delivered,
					"failed":    res.Failed,
					"deferred":  res.Deferred,
				}).Info("outbox replay pass")
			}
		}
	}
}

func (s *OutboxService) deliver(ctx context.Context, w *domain.PendingWrite) error {
	switch w.Kind {
	case domain.PendingSetLog:
		if w.SetLog == nil {
			return fmt.Errorf("set log entry missing")
		}
		_, err := s.api.CreateSetLog(ctx, w.SessionID, w.SetLog)
		return err
	case domain.PendingCompletion:
		if w.Completion == nil {
			return fmt.Errorf("completion missing")
		}
		_, err := s.api.UpdateSession(ctx, w.SessionID, w.Completion)
		return err
	default:
		return fmt.Errorf("unknown pending write kind %q", w.Kind)
	}
}

// backoff doubles with every attempt: 30s, 1m, 2m ... capped at 30m
func backoff(attempts int) time.Duration {
	if attempts <= 1 {
		return outboxBaseBackoff
	}
	d := outboxBaseBackoff
	for i := 1; i < attempts && d < outboxMaxBackoff; i++ {
		d *= 2
	}
	if d > outboxMaxBackoff {
		d = outboxMaxBackoff
	}
	return d
}
