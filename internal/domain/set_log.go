package domain

import (
	"fmt"
	"time"
)

// SetLogEntry is the payload submitted for every forward transition
type SetLogEntry struct {
	ExerciseID    int64    `json:"exercise_id"`
	SetNumber     int      `json:"set_number"`
	RepsCompleted int      `json:"reps_completed"`
	WeightUsed    *float64 `json:"weight_used"` // null when no weight was entered
	Completed     bool     `json:"completed"`
}

// SetLog is a set log as stored by the backend
type SetLog struct {
	ID            int64     `json:"id"`
	SessionID     int64     `json:"session_id"`
	ExerciseID    int64     `json:"exercise_id"`
	SetNumber     int       `json:"set_number"`
	RepsCompleted *int      `json:"reps_completed,omitempty"`
	WeightUsed    *float64  `json:"weight_used,omitempty"`
	Completed     bool      `json:"completed"`
	LoggedAt      time.Time `json:"logged_at,omitempty"`
}

// Position is the (circuit, exercise, set) cursor. SetNumber is 1-based.
type Position struct {
	CircuitIndex  int `json:"circuit_index"`
	ExerciseIndex int `json:"exercise_index"`
	SetNumber     int `json:"set_number"`
}

// Key renders the position as "circuit-exercise-set"
func (p Position) Key() string {
	return fmt.Sprintf("%d-%d-%d", p.CircuitIndex, p.ExerciseIndex, p.SetNumber)
}

// CompletedSet is transient bookkeeping for progress dots; the backend log is authoritative.
type CompletedSet struct {
	Position Position `json:"position"`
	Weight   *string  `json:"weight"`
}

// WeightHistoryEntry is the best weight of one calendar day
type WeightHistoryEntry struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Reps   *int    `json:"reps,omitempty"`
}

// ExerciseHistory is the prior-weight context for an exercise
type ExerciseHistory struct {
	ExerciseID   int64                 `json:"exercise_id"`
	ExerciseName string                `json:"exercise_name"`
	History      []*WeightHistoryEntry `json:"history"`
	LastWeight   *float64              `json:"last_weight"`
	MaxWeight    *float64              `json:"max_weight"` // personal record
	TotalLogs    int                   `json:"total_logs"`
}
