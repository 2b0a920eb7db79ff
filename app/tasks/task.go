package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeFetchSource TaskType = "fetch_source"
	TaskTypeSyncSource  TaskType = "sync_source"
)

// Task carries what every task shares. Tasks run once; a failed job is
// recorded and left for the next scheduled run.
type Task struct {
	ID        string
	Type      TaskType
	SourceID  string
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSourceID() string {
	return t.SourceID
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// NewTask reuses id when the task comes from a queued job.
func NewTask(taskType TaskType, sourceID, id string) Task {
	if id == "" {
		id = uuid.NewString()
	}
	return Task{
		ID:       id,
		Type:     taskType,
		SourceID: sourceID,
	}
}
