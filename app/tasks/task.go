package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeImportRun TaskType = "import_run"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetProfileName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// ContinuableTask is a task that may need another pass after Execute succeeds.
type ContinuableTask interface {
	TaskInterface
	// Next returns the follow-up task, or nil when the work is done.
	Next() TaskInterface
}

// AbandonableTask is told when the scheduler stops retrying it for good.
type AbandonableTask interface {
	TaskInterface
	Abandon(err error)
}

type Task struct {
	ID          string
	Type        TaskType
	ProfileName string
	RetryCount  int
	MaxRetries  int
	StartedAt   *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetProfileName() string {
	return t.ProfileName
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
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

func NewTask(taskType TaskType, profileName string) Task {
	return Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		ProfileName: profileName,
		RetryCount:  0,
		MaxRetries:  DefaultMaxRetries,
	}
}
