package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

var finishActions = []string{
	ActionImportMods,
	ActionImportOptions,
	ActionImportTpl,
	ActionImportWidgets,
	ActionImportEnd,
}

// ImportRunTask runs one chunk of a background import. While the run is
// unfinished Next returns a task for the following chunk; after the last
// chunk the options are imported and the run is closed. A retried task
// resumes at the step that failed, so a finished chunk is never replayed.
type ImportRunTask struct {
	Task
	dispatcher *Dispatcher
	req        Request
	result     int
	lastID     int64
	chunkDone  bool
	finished   int // finish actions already applied
}

func NewImportRunTask(dispatcher *Dispatcher, req Request) *ImportRunTask {
	req.Action = ActionImportPosts
	return &ImportRunTask{
		Task:       NewTask(TaskTypeImportRun, dispatcher.Profile().Name),
		dispatcher: dispatcher,
		req:        req,
	}
}

func (t *ImportRunTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.chunkDone {
		result := t.dispatcher.RunChunk(ctx, t.req)
		if result.Err != nil {
			return result.Err
		}
		t.result = result.Percent
		t.lastID = result.LastID
		t.chunkDone = true

		if t.result < 100 {
			slog.Debug("Import chunk done", "id", t.ID, "last_id", t.lastID, "percent", t.result)
			return nil
		}
	}

	for t.finished < len(finishActions) {
		action := finishActions[t.finished]
		resp := t.dispatcher.Dispatch(ctx, Request{Action: action})
		if resp.Error {
			return fmt.Errorf("%s: %s", action, resp.Message)
		}
		t.finished++
	}

	t.dispatcher.EndRun()

	slog.Info("Task completed",
		"type", t.GetType(),
		"profile", t.ProfileName,
		"duration", t.GetDuration())

	return nil
}

func (t *ImportRunTask) Next() TaskInterface {
	if t.result >= 100 {
		return nil
	}
	req := t.req
	req.LastID = t.lastID
	req.resume = true
	next := NewImportRunTask(t.dispatcher, req)
	next.ID = t.ID
	return next
}

// Abandon releases the run once the scheduler gives up on it.
func (t *ImportRunTask) Abandon(err error) {
	slog.Error("Import run abandoned", "id", t.ID, "profile", t.ProfileName, "last_id", t.lastID, "error", err)
	t.dispatcher.EndRun()
}
