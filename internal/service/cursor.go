package service

import (
	"fmt"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

// Step describes what a cursor transition did
type Step int

const (
	StepNone     Step = iota // boundary reached, nothing moved
	StepSet                  // same exercise, different set
	StepExercise             // different exercise in the same circuit
	StepCircuit              // different circuit
	StepFinished             // forward from the very last set; the cursor stays put
)

// ExerciseChanged reports whether the current exercise identity changed
func (s Step) ExerciseChanged() bool {
	return s == StepExercise || s == StepCircuit
}

func (s Step) String() string {
	switch s {
	case StepSet:
		return "set"
	case StepExercise:
		return "exercise"
	case StepCircuit:
		return "circuit"
	case StepFinished:
		return "finished"
	default:
		return "none"
	}
}

// Cursor walks circuit -> exercise -> set over a loaded workout day.
// It never points at a missing exercise; circuits without exercises are skipped.
type Cursor struct {
	day *domain.WorkoutDay
	pos domain.Position
}

// NewCursor positions a cursor on the first set of the first exercise
func NewCursor(day *domain.WorkoutDay) (*Cursor, error) {
	if day == nil {
		return nil, domain.ErrWorkoutNotLoaded
	}
	first := nextCircuit(day, -1)
	if first < 0 {
		return nil, domain.ErrEmptyWorkout
	}
	return &Cursor{
		day: day,
		pos: domain.Position{CircuitIndex: first, ExerciseIndex: 0, SetNumber: 1},
	}, nil
}

// Position returns a copy of the current position
func (c *Cursor) Position() domain.Position {
	return c.pos
}

// Exercise returns the exercise under the cursor
func (c *Cursor) Exercise() *domain.Exercise {
	return c.day.ExerciseAt(c.pos.CircuitIndex, c.pos.ExerciseIndex)
}

// TotalSets for the current exercise
func (c *Cursor) TotalSets() int {
	return c.Exercise().TotalSets()
}

// Advance moves one set forward. It returns StepFinished without moving when
// the cursor is on the last set of the last exercise of the last circuit.
func (c *Cursor) Advance() Step {
	if c.pos.SetNumber < c.TotalSets() {
		c.pos.SetNumber++
		return StepSet
	}

	circuit := c.day.Circuits[c.pos.CircuitIndex]
	if c.pos.ExerciseIndex < len(circuit.Exercises)-1 {
		c.pos.ExerciseIndex++
		c.pos.SetNumber = 1
		return StepExercise
	}

	next := nextCircuit(c.day, c.pos.CircuitIndex)
	if next < 0 {
		return StepFinished
	}
	c.pos = domain.Position{CircuitIndex: next, ExerciseIndex: 0, SetNumber: 1}
	return StepCircuit
}

// Retreat moves one set backward. Entering a previous exercise lands on its last set.
// At the very first set it does nothing.
func (c *Cursor) Retreat() Step {
	if c.pos.SetNumber > 1 {
		c.pos.SetNumber--
		return StepSet
	}

	if c.pos.ExerciseIndex > 0 {
		c.pos.ExerciseIndex--
		c.pos.SetNumber = c.Exercise().TotalSets()
		return StepExercise
	}

	prev := prevCircuit(c.day, c.pos.CircuitIndex)
	if prev < 0 {
		return StepNone
	}
	last := len(c.day.Circuits[prev].Exercises) - 1
	c.pos = domain.Position{CircuitIndex: prev, ExerciseIndex: last}
	c.pos.SetNumber = c.Exercise().TotalSets()
	return StepCircuit
}

// Restore moves the cursor to a previously saved position after validating it
func (c *Cursor) Restore(pos domain.Position) error {
	ex := c.day.ExerciseAt(pos.CircuitIndex, pos.ExerciseIndex)
	if ex == nil {
		return fmt.Errorf("position %s: no such exercise", pos.Key())
	}
	if pos.SetNumber < 1 || pos.SetNumber > ex.TotalSets() {
		return fmt.Errorf("position %s: set out of range 1..%d", pos.Key(), ex.TotalSets())
	}
	c.pos = pos
	return nil
}

// Progress returns the 1-based ordinal of the current exercise across the
// whole day and the total number of exercises.
func (c *Cursor) Progress() (number int, total int) {
	for i, circuit := range c.day.Circuits {
		if i < c.pos.CircuitIndex {
			number += len(circuit.Exercises)
		}
		total += len(circuit.Exercises)
	}
	return number + c.pos.ExerciseIndex + 1, total
}

func nextCircuit(day *domain.WorkoutDay, from int) int {
	for i := from + 1; i < len(day.Circuits); i++ {
		if len(day.Circuits[i].Exercises) > 0 {
			return i
		}
	}
	return -1
}

func prevCircuit(day *domain.WorkoutDay, from int) int {
	for i := from - 1; i >= 0; i-- {
		if len(day.Circuits[i].Exercises) > 0 {
			return i
		}
	}
	return -1
}
