package domain

import (
	"context"
	"time"
)

// TodaysWorkout is the workout day a user picked for today, with
// per-exercise check marks. It expires when the calendar day changes.
type TodaysWorkout struct {
	UserID    string             `json:"user_id"`
	Day       *WorkoutDaySummary `json:"day"`
	Date      time.Time          `json:"date"`
	Completed map[int64]bool     `json:"completed"`
}

// IsFor reports whether the selection was made on the same calendar day as now
func (t *TodaysWorkout) IsFor(now time.Time) bool {
	y1, m1, d1 := t.Date.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CompletedCount counts checked exercises
func (t *TodaysWorkout) CompletedCount() int {
	n := 0
	for _, done := range t.Completed {
		if done {
			n++
		}
	}
	return n
}

// TodayRepository stores the per-user selection
type TodayRepository interface {
	Save(ctx context.Context, today *TodaysWorkout) error
	// Get returns ErrNotFound when nothing is stored
	Get(ctx context.Context, userID string) (*TodaysWorkout, error)
	Delete(ctx context.Context, userID string) error
}
