package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRecomputeScores = "leads.scores.recompute_all"

const TaskDistributeUnassigned = "leads.distribute"

// JobPayload identifies who asked for a job run. Periodic runs carry
// the "scheduler" trigger.
type JobPayload struct {
	Trigger string `json:"trigger"`
}

const (
	TriggerPeriodic = "scheduler"
	TriggerStartup  = "startup"
)

func newJobTask(typename string, payload JobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}

func NewRecomputeScoresTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskRecomputeScores, payload)
}

func NewDistributeUnassignedTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskDistributeUnassigned, payload)
}

// ParseJobPayload decodes a job payload. An empty payload is valid.
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
