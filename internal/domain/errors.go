package domain

import "errors"

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrCacheMiss        = errors.New("cache miss")
	ErrWorkoutNotLoaded = errors.New("workout not loaded")
	ErrWorkoutFinished  = errors.New("workout already finished")
	ErrEmptyWorkout     = errors.New("workout day has no exercises")
	ErrInvalidWeight    = errors.New("invalid weight")
)
