package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskActivityPurge is the task type for trimming old activity records.
	TaskActivityPurge = "activity:purge"
)

// ActivityPurgePayload bounds the purge: records older than Retention are
// dropped.
type ActivityPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewActivityPurgeTask constructs an activity purge task.
func NewActivityPurgeTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(ActivityPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPurge, data), nil
}
