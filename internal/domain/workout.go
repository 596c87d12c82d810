package domain

import (
	"regexp"
	"strconv"
)

const (
	DefaultTotalSets     = 3
	DefaultRepsTarget    = "10-12"
	DefaultRepsCompleted = 10
)

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

// Exercise is a single movement inside a circuit.
// Sets and Reps are free text as parsed from the imported program ("3-4", "15, 12, 10").
type Exercise struct {
	ID                   int64  `json:"id"`
	CircuitID            int64  `json:"circuit_id"`
	Name                 string `json:"name"`
	Order                int    `json:"order"`
	Sets                 string `json:"sets"`
	Reps                 string `json:"reps"`
	WeightRecommendation string `json:"weight_recommendation,omitempty"`
	Notes                string `json:"notes,omitempty"`
	VideoURL             string `json:"video_url,omitempty"`
	ImageURL             string `json:"image_url,omitempty"`
}

// TotalSets returns the declared set count, falling back to DefaultTotalSets
func (e *Exercise) TotalSets() int {
	if n, ok := parseLeadingInt(e.Sets); ok && n > 0 {
		return n
	}
	return DefaultTotalSets
}

// RepsTarget returns the declared reps text or DefaultRepsTarget
func (e *Exercise) RepsTarget() string {
	if e.Reps == "" {
		return DefaultRepsTarget
	}
	return e.Reps
}

// RepsCompleted is the numeric reps value reported when a set is logged:
// the leading integer of the reps target ("8-10" -> 8).
func (e *Exercise) RepsCompleted() int {
	if n, ok := parseLeadingInt(e.RepsTarget()); ok && n > 0 {
		return n
	}
	return DefaultRepsCompleted
}

// Circuit is an ordered group of exercises performed as a unit
type Circuit struct {
	ID            int64       `json:"id"`
	WorkoutDayID  int64       `json:"workout_day_id"`
	CircuitNumber int         `json:"circuit_number"`
	Name          string      `json:"name,omitempty"`
	Rounds        int         `json:"rounds"`
	Exercises     []*Exercise `json:"exercises"`
}

// WorkoutDay is the structure a session walks through: circuits in execution order.
type WorkoutDay struct {
	ID           int64      `json:"id"`
	PlanID       int64      `json:"plan_id"`
	Name         string     `json:"name"`
	DayNumber    int        `json:"day_number"`
	MuscleGroups string     `json:"muscle_groups,omitempty"`
	Circuits     []*Circuit `json:"circuits"`
}

// TotalExercises counts exercises across all circuits
func (d *WorkoutDay) TotalExercises() int {
	total := 0
	for _, c := range d.Circuits {
		total += len(c.Exercises)
	}
	return total
}

// ExerciseAt returns the exercise at (circuit, exercise) or nil when out of range
func (d *WorkoutDay) ExerciseAt(circuitIdx, exerciseIdx int) *Exercise {
	if d == nil || circuitIdx < 0 || circuitIdx >= len(d.Circuits) {
		return nil
	}
	exercises := d.Circuits[circuitIdx].Exercises
	if exerciseIdx < 0 || exerciseIdx >= len(exercises) {
		return nil
	}
	return exercises[exerciseIdx]
}

// WorkoutDaySummary is the list view of a day
type WorkoutDaySummary struct {
	ID            int64  `json:"id"`
	PlanID        int64  `json:"plan_id"`
	Name          string `json:"name"`
	DayNumber     int    `json:"day_number"`
	MuscleGroups  string `json:"muscle_groups,omitempty"`
	ExerciseCount int    `json:"exercise_count"`
	CircuitCount  int    `json:"circuit_count"`
}

func parseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
