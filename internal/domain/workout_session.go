package domain

import (
	"context"
	"time"
)

// Session is a backend workout session record
type Session struct {
	ID              int64      `json:"id"`
	WorkoutDayID    int64      `json:"workout_day_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ExerciseLogs    []*SetLog  `json:"exercise_logs,omitempty"`
}

// CreateSessionRequest starts a session for a workout day
type CreateSessionRequest struct {
	WorkoutDayID int64  `json:"workout_day_id"`
	Notes        string `json:"notes,omitempty"`
}

// SessionUpdate marks a session complete
type SessionUpdate struct {
	CompletedAt     time.Time `json:"completed_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// UserStats are the aggregate statistics the backend keeps across sessions
type UserStats struct {
	TotalWorkouts       int        `json:"total_workouts"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	TotalWorkoutMinutes int        `json:"total_workout_minutes"`
	LastWorkoutDate     *time.Time `json:"last_workout_date,omitempty"`
}

// WorkoutAPI is the workout backend as seen by the session engine
type WorkoutAPI interface {
	GetSession(ctx context.Context, sessionID int64) (*Session, error)
	GetWorkoutDay(ctx context.Context, dayID int64) (*WorkoutDay, error)
	// GetExerciseHistory returns ErrNotFound when the backend has no record of the exercise
	GetExerciseHistory(ctx context.Context, exerciseID int64) (*ExerciseHistory, error)
	CreateSetLog(ctx context.Context, sessionID int64, entry *SetLogEntry) (*SetLog, error)
	UpdateSession(ctx context.Context, sessionID int64, update *SessionUpdate) (*Session, error)
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error)
}

// StatsAPI exposes the aggregate statistics refreshed after a completion
type StatsAPI interface {
	GetStats(ctx context.Context) (*UserStats, error)
}

// BackendAPI is everything the HTTP tier needs from the workout backend
type BackendAPI interface {
	WorkoutAPI
	StatsAPI
}
