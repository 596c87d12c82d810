package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

const (
	todayKeyPrefix = "today:"
	// long enough to outlive the calendar day it was picked on; staleness is checked on read
	todayTTL = 36 * time.Hour
)

// RedisTodayRepository implements domain.TodayRepository
type RedisTodayRepository struct {
	cache *RedisCacheRepository
}

// NewRedisTodayRepository creates a today's-workout store on top of the cache
func NewRedisTodayRepository(cache *RedisCacheRepository) *RedisTodayRepository {
	return &RedisTodayRepository{cache: cache}
}

// Save stores a user's pick
func (r *RedisTodayRepository) Save(ctx context.Context, today *domain.TodaysWorkout) error {
	return r.cache.Set(ctx, todayKeyPrefix+today.UserID, today, todayTTL)
}

// Get returns a user's pick or domain.ErrNotFound
func (r *RedisTodayRepository) Get(ctx context.Context, userID string) (*domain.TodaysWorkout, error) {
	var today domain.TodaysWorkout
	if err := r.cache.Get(ctx, todayKeyPrefix+userID, &today); err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &today, nil
}

// Delete removes a user's pick
func (r *RedisTodayRepository) Delete(ctx context.Context, userID string) error {
	return r.cache.Delete(ctx, todayKeyPrefix+userID)
}
