package tasks

import (
	"context"

	"github.com/lysyi3m/demo-importer/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to run imports in the background.
// Example usage:
//
//	scheduler := NewScheduler(1, 5*time.Minute)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewImportRunTask(dispatcher, req))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// ContentStore is the store the dispatcher works against.
type ContentStore interface {
	database.ContentStore
	Truncate(ctx context.Context) error
	Optimize(ctx context.Context) error
}
