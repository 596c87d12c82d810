package domain

import (
	"context"
	"time"
)

// PendingWriteKind identifies which backend write an outbox entry replays
type PendingWriteKind string

const (
	PendingSetLog     PendingWriteKind = "set_log"
	PendingCompletion PendingWriteKind = "completion"
)

// PendingWrite is a backend write that failed and is kept for replay
type PendingWrite struct {
	ID         string           `json:"id" bson:"_id"` // ULID
	Kind       PendingWriteKind `json:"kind" bson:"kind"`
	SessionID  int64            `json:"session_id" bson:"session_id"`
	SetLog     *SetLogEntry     `json:"set_log,omitempty" bson:"set_log,omitempty"`
	Completion *SessionUpdate   `json:"completion,omitempty" bson:"completion,omitempty"`
	Attempts   int              `json:"attempts" bson:"attempts"`
	LastError  string           `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt  time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" bson:"updated_at"`
}

// OutboxRepository stores pending writes
type OutboxRepository interface {
	Create(ctx context.Context, w *PendingWrite) error
	// ListPending returns entries with fewer than maxAttempts attempts, oldest first
	ListPending(ctx context.Context, maxAttempts int, limit int64) ([]*PendingWrite, error)
	MarkFailed(ctx context.Context, id string, lastErr string) error
	Delete(ctx context.Context, id string) error
}

// SessionArchive is the summary of a finished session kept in object storage
type SessionArchive struct {
	SessionID       int64           `json:"session_id"`
	WorkoutDayID    int64           `json:"workout_day_id"`
	WorkoutName     string          `json:"workout_name"`
	CompletedAt     time.Time       `json:"completed_at"`
	DurationMinutes int             `json:"duration_minutes"`
	CompletedSets   []*CompletedSet `json:"completed_sets"`
}

// FileRepository defines the interface for file storage operations
type FileRepository interface {
	// Upload saves a file and returns its access URL
	Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error)
}
