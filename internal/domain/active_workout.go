package domain

import (
	"context"
	"time"
)

// NavigateReason tells the caller why the session view should be left
type NavigateReason string

const (
	NavigateCompleted NavigateReason = "completed"
	NavigateExit      NavigateReason = "exit"
)

// ClockState of the elapsed-time stopwatch
type ClockState string

const (
	ClockRunning ClockState = "running"
	ClockPaused  ClockState = "paused"
)

// WorkoutStatus is the lifecycle of an active workout
type WorkoutStatus string

const (
	StatusLoading   WorkoutStatus = "loading"
	StatusActive    WorkoutStatus = "active"
	StatusCompleted WorkoutStatus = "completed"
	StatusExited    WorkoutStatus = "exited"
)

// WorkoutView is a read-only rendering of an active workout
type WorkoutView struct {
	SessionID      int64             `json:"session_id"`
	Status         WorkoutStatus     `json:"status"`
	Loaded         bool              `json:"loaded"`
	WorkoutName    string            `json:"workout_name,omitempty"`
	Position       *Position         `json:"position,omitempty"`
	Exercise       *Exercise         `json:"exercise,omitempty"`
	TotalSets      int               `json:"total_sets,omitempty"`
	RepsTarget     string            `json:"reps_target,omitempty"`
	ExerciseNumber int               `json:"exercise_number,omitempty"`
	TotalExercises int               `json:"total_exercises,omitempty"`
	StagedWeight   string            `json:"staged_weight"`
	LastWeight     *float64          `json:"last_weight,omitempty"`
	MaxWeight      *float64          `json:"max_weight,omitempty"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Elapsed        string            `json:"elapsed"`
	Clock          ClockState        `json:"clock"`
	CompletedSets  map[string]string `json:"completed_sets"`
}

// SessionSnapshot is what is needed to resume an active workout after a restart.
// The workout structure itself is reloaded from the backend.
type SessionSnapshot struct {
	SessionID      int64      `json:"session_id"`
	UserID         string     `json:"user_id"`
	Position       Position   `json:"position"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Clock          ClockState `json:"clock"`
	StagedWeight   string     `json:"staged_weight"`
	SavedAt        time.Time  `json:"saved_at"`
}

// SnapshotRepository persists session snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, snap *SessionSnapshot) error
	// Get returns ErrNotFound when no snapshot exists
	Get(ctx context.Context, sessionID int64) (*SessionSnapshot, error)
	Delete(ctx context.Context, sessionID int64) error
}
