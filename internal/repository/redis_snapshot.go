package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

const (
	snapshotKeyPrefix = "workout:snapshot:"
	snapshotTTL       = 24 * time.Hour
)

// RedisSnapshotRepository implements domain.SnapshotRepository
type RedisSnapshotRepository struct {
	cache *RedisCacheRepository
}

// NewRedisSnapshotRepository creates a snapshot store on top of the cache
func NewRedisSnapshotRepository(cache *RedisCacheRepository) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{cache: cache}
}

// Save stores a snapshot; an abandoned workout expires after a day
func (r *RedisSnapshotRepository) Save(ctx context.Context, snap *domain.SessionSnapshot) error {
	return r.cache.Set(ctx, snapshotKey(snap.SessionID), snap, snapshotTTL)
}

// Get returns the snapshot of a session or domain.ErrNotFound
func (r *RedisSnapshotRepository) Get(ctx context.Context, sessionID int64) (*domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot
	if err := r.cache.Get(ctx, snapshotKey(sessionID), &snap); err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

// Delete removes the snapshot of a session
func (r *RedisSnapshotRepository) Delete(ctx context.Context, sessionID int64) error {
	return r.cache.Delete(ctx, snapshotKey(sessionID))
}

func snapshotKey(sessionID int64) string {
	return snapshotKeyPrefix + strconv.FormatInt(sessionID, 10)
}
