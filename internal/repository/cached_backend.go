package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

const (
	workoutDayKeyPrefix = "backend:day:"
	statsKey            = "backend:stats"
	workoutDayCacheTTL  = 10 * time.Minute
	statsCacheTTL       = 5 * time.Minute
)

// CachedBackend wraps the backend client with Redis caching for workout days
// and aggregate stats. Every other call goes straight to the backend.
type CachedBackend struct {
	domain.BackendAPI
	cache *RedisCacheRepository
}

// NewCachedBackend creates a new cached backend
func NewCachedBackend(backend domain.BackendAPI, cache *RedisCacheRepository) *CachedBackend {
	return &CachedBackend{
		BackendAPI: backend,
		cache:      cache,
	}
}

// GetWorkoutDay retrieves a workout day with caching
func (r *CachedBackend) GetWorkoutDay(ctx context.Context, dayID int64) (*domain.WorkoutDay, error) {
	key := workoutDayKeyPrefix + strconv.FormatInt(dayID, 10)

	var day domain.WorkoutDay
	if err := r.cache.Get(ctx, key, &day); err == nil {
		return &day, nil
	}

	result, err := r.BackendAPI.GetWorkoutDay(ctx, dayID)
	if err != nil {
		return nil, err
	}

	// cache errors are not fatal
	_ = r.cache.Set(ctx, key, result, workoutDayCacheTTL)

	return result, nil
}

// GetStats retrieves aggregate stats with caching
func (r *CachedBackend) GetStats(ctx context.Context) (*domain.UserStats, error) {
	var stats domain.UserStats
	if err := r.cache.Get(ctx, statsKey, &stats); err == nil {
		return &stats, nil
	}

	result, err := r.BackendAPI.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, statsKey, result, statsCacheTTL)

	return result, nil
}

// InvalidateStats drops the cached stats so the next read sees a completed session
func (r *CachedBackend) InvalidateStats(ctx context.Context) error {
	return r.cache.Delete(ctx, statsKey)
}
