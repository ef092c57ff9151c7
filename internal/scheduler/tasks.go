package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFollowUpScan = "leads.followup_scan"

const TaskDailySummary = "leads.daily_summary"

// JobPayload identifies who triggered a run.
type JobPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
	Trigger     string    `json:"trigger"`
}

func NewFollowUpScanTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskFollowUpScan, payload)
}

func NewDailySummaryTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskDailySummary, payload)
}

func newJobTask(taskType string, payload JobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// A cycle that misses its slot is superseded by the next one; never retry.
	return asynq.NewTask(taskType, data, asynq.MaxRetry(0)), nil
}

func ParseJobPayload(task *asynq.Task) (JobPayload, error) {
	var payload JobPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JobPayload{}, err
	}
	return payload, nil
}
