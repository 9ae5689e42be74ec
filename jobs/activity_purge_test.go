package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/catequesis/catequesis-api/internal/activity"
)

func TestActivityPurgeJob(t *testing.T) {
	repo := activity.NewMemoryRepository()
	ctx := context.Background()

	stale := activity.Record{ID: uuid.New(), Action: "old", OccurredAt: time.Now().Add(-100 * 24 * time.Hour)}
	fresh := activity.Record{ID: uuid.New(), Action: "fresh", OccurredAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, stale))
	require.NoError(t, repo.Insert(ctx, fresh))

	job := NewActivityPurgeJob(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	task, err := NewActivityPurgeTask(90 * 24 * time.Hour)
	require.NoError(t, err)

	require.NoError(t, job.Handle(ctx, task))
	require.Len(t, repo.All(), 1)
	require.Equal(t, "fresh", repo.All()[0].Action)
}

func TestActivityPurgeJobRejectsBadPayload(t *testing.T) {
	repo := activity.NewMemoryRepository()
	job := NewActivityPurgeJob(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	bad := asynq.NewTask(TaskActivityPurge, []byte("not-json"))
	err := job.Handle(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)

	zero, err := NewActivityPurgeTask(0)
	require.NoError(t, err)
	err = job.Handle(context.Background(), zero)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
