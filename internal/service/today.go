package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

// DayReader loads workout days
type DayReader interface {
	GetWorkoutDay(ctx context.Context, dayID int64) (*domain.WorkoutDay, error)
}

// TodayView is today's pick plus its progress
type TodayView struct {
	*domain.TodaysWorkout
	TotalExercises  int `json:"total_exercises"`
	CompletedCount  int `json:"completed_count"`
	ProgressPercent int `json:"progress_percent"`
}

// TodayService keeps the workout day a user picked for today.
// A selection from an earlier calendar day is discarded on read.
type TodayService struct {
	repo domain.TodayRepository
	days DayReader
	now  func() time.Time
}

func NewTodayService(repo domain.TodayRepository, days DayReader) *TodayService {
	return &TodayService{repo: repo, days: days, now: time.Now}
}

// Set picks a workout day for today and clears the check marks
func (s *TodayService) Set(ctx context.Context, userID string, dayID int64) (*TodayView, error) {
	day, err := s.days.GetWorkoutDay(ctx, dayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workout day %d: %w", dayID, err)
	}
	today := &domain.TodaysWorkout{
		UserID:    userID,
		Day:       summarize(day),
		Date:      s.now(),
		Completed: make(map[int64]bool),
	}
	if err := s.repo.Save(ctx, today); err != nil {
		return nil, err
	}
	return s.view(today), nil
}

// Get returns today's pick or domain.ErrNotFound
func (s *TodayService) Get(ctx context.Context, userID string) (*TodayView, error) {
	today, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(today), nil
}

// ToggleExercise flips the check mark of one exercise
func (s *TodayService) ToggleExercise(ctx context.Context, userID string, exerciseID int64) (*TodayView, error) {
	today, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if today.Completed == nil {
		today.Completed = make(map[int64]bool)
	}
	today.Completed[exerciseID] = !today.Completed[exerciseID]
	if err := s.repo.Save(ctx, today); err != nil {
		return nil, err
	}
	return s.view(today), nil
}

// Clear forgets today's pick
func (s *TodayService) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

func (s *TodayService) current(ctx context.Context, userID string) (*domain.TodaysWorkout, error) {
	today, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !today.IsFor(s.now()) {
		if err := s.repo.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return today, nil
}

func (s *TodayService) view(today *domain.TodaysWorkout) *TodayView {
	v := &TodayView{TodaysWorkout: today, CompletedCount: today.CompletedCount()}
	if today.Day != nil {
		v.TotalExercises = today.Day.ExerciseCount
	}
	if v.TotalExercises > 0 {
		v.ProgressPercent = int(math.Round(float64(v.CompletedCount) / float64(v.TotalExercises) * 100))
	}
	return v
}

func summarize(day *domain.WorkoutDay) *domain.WorkoutDaySummary {
	return &domain.WorkoutDaySummary{
		ID:            day.ID,
		PlanID:        day.PlanID,
		Name:          day.Name,
		DayNumber:     day.DayNumber,
		MuscleGroups:  day.MuscleGroups,
		ExerciseCount: day.TotalExercises(),
		CircuitCount:  len(day.Circuits),
	}
}
