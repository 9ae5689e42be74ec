package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/catequesis/catequesis-api/internal/activity"
)

// ActivityPurgeJob trims the activity log to its retention horizon.
type ActivityPurgeJob struct {
	Repo   activity.Repository
	Logger *slog.Logger
	clock  func() time.Time
}

// NewActivityPurgeJob wires dependencies for the purge handler.
func NewActivityPurgeJob(repo activity.Repository, logger *slog.Logger) *ActivityPurgeJob {
	return &ActivityPurgeJob{
		Repo:   repo,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes activity purge tasks.
func (j *ActivityPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("activity purge: handler not configured")
	}
	var payload ActivityPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		return asynq.SkipRetry
	}

	cutoff := j.clock().Add(-payload.Retention)
	removed, err := j.Repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.Logger.Error("purge activity log", slog.Any("error", err))
		return err
	}
	j.Logger.Info("activity log purged",
		slog.Int64("removed", removed),
		slog.Time("cutoff", cutoff))
	return nil
}
