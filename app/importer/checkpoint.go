package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Checkpoint is the progress of a chunked run: the last processed source post id
// and the percent reported for it.
type Checkpoint struct {
	LastID  int64 `json:"last_id"`
	Percent int   `json:"result"`
}

// CheckpointLog stores the checkpoint as "<last_id>|<percent>" in a plain file.
// A missing or empty file is a run that has not started.
type CheckpointLog struct {
	path string
}

func NewCheckpointLog(path string) *CheckpointLog {
	return &CheckpointLog{path: path}
}

func (l *CheckpointLog) Path() string {
	return l.path
}

func (l *CheckpointLog) Read() (Checkpoint, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Checkpoint{}, nil
	}

	parts := strings.Split(raw, "|")
	var cp Checkpoint
	cp.LastID, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to parse checkpoint %q: %w", raw, err)
	}
	if len(parts) > 1 {
		cp.Percent, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return cp, nil
}

func (l *CheckpointLog) Write(cp Checkpoint) error {
	return l.write(fmt.Sprintf("%d|%d", cp.LastID, cp.Percent))
}

func (l *CheckpointLog) Clear() error {
	return l.write("")
}

func (l *CheckpointLog) write(content string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
