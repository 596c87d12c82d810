package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB spins up a fresh MongoDB container for the test
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client.Database("liftlog_test")
}

func TestMongoOutboxRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMongoOutboxRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	weight := 30.0
	first := &domain.PendingWrite{
		ID:        "01HZZZZZZZZZZZZZZZZZZZZZZ1",
		Kind:      domain.PendingSetLog,
		SessionID: 4,
		SetLog:    &domain.SetLogEntry{ExerciseID: 8, SetNumber: 1, RepsCompleted: 10, WeightUsed: &weight, Completed: true},
		Attempts:  1,
		CreatedAt: base,
		UpdatedAt: base,
	}
	second := &domain.PendingWrite{
		ID:         "01HZZZZZZZZZZZZZZZZZZZZZZ2",
		Kind:       domain.PendingCompletion,
		SessionID:  4,
		Completion: &domain.SessionUpdate{CompletedAt: base, DurationMinutes: 40},
		Attempts:   1,
		CreatedAt:  base.Add(time.Minute),
		UpdatedAt:  base.Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	pending, err := repo.ListPending(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	require.NotNil(t, pending[0].SetLog.WeightUsed)
	assert.Equal(t, 30.0, *pending[0].SetLog.WeightUsed)
	assert.Equal(t, 40, pending[1].Completion.DurationMinutes)

	require.NoError(t, repo.MarkFailed(ctx, first.ID, "timeout"))
	require.NoError(t, repo.MarkFailed(ctx, first.ID, "timeout"))
	pending, err = repo.ListPending(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "entries at max attempts are excluded")
	assert.Equal(t, second.ID, pending[0].ID)

	assert.ErrorIs(t, repo.MarkFailed(ctx, "missing", "x"), domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, second.ID))
	pending, err = repo.ListPending(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
