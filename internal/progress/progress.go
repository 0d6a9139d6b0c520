// Package progress records per-job and per-subtask state so operators can
// watch a pipeline run from outside the process.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle of a job or subtask.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ErrNotTracked is returned by Get when no progress exists for a video.
var ErrNotTracked = errors.New("progress not tracked")

// Snapshot is the latest progress for one video.
type Snapshot struct {
	VideoID   int64             `json:"video_id"`
	JobID     string            `json:"job_id"`
	State     State             `json:"state"`
	Stage     string            `json:"stage,omitempty"`
	Subtasks  map[string]State  `json:"subtasks,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Tracker stores progress updates. Implementations must be safe for
// concurrent use; subtasks report from their own goroutines.
type Tracker interface {
	// Job records the job-level state and the step currently executing.
	Job(ctx context.Context, videoID int64, jobID string, state State, stage string) error
	// Subtask records one subtask's state. detail is kept only for failures.
	Subtask(ctx context.Context, videoID int64, name string, state State, detail string) error
	Get(ctx context.Context, videoID int64) (Snapshot, error)
}

// Key returns the storage key for a video's progress.
func Key(videoID int64) string {
	return fmt.Sprintf("postroll:video:%d", videoID)
}

const (
	fieldJobID     = "job_id"
	fieldState     = "state"
	fieldStage     = "stage"
	fieldUpdatedAt = "updated_at"
	subtaskPrefix  = "subtask:"
	errorPrefix    = "error:"
)

// decode rebuilds a Snapshot from stored hash fields.
func decode(videoID int64, fields map[string]string) (Snapshot, error) {
	if len(fields) == 0 {
		return Snapshot{}, ErrNotTracked
	}
	snap := Snapshot{
		VideoID: videoID,
		JobID:   fields[fieldJobID],
		State:   State(fields[fieldState]),
		Stage:   fields[fieldStage],
	}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("parse %s: %w", fieldUpdatedAt, err)
		}
		snap.UpdatedAt = ts
	}
	for field, value := range fields {
		switch {
		case strings.HasPrefix(field, subtaskPrefix):
			if snap.Subtasks == nil {
				snap.Subtasks = make(map[string]State)
			}
			snap.Subtasks[strings.TrimPrefix(field, subtaskPrefix)] = State(value)
		case strings.HasPrefix(field, errorPrefix):
			if snap.Errors == nil {
				snap.Errors = make(map[string]string)
			}
			snap.Errors[strings.TrimPrefix(field, errorPrefix)] = value
		}
	}
	return snap, nil
}

// Nop discards every update.
type Nop struct{}

func (Nop) Job(context.Context, int64, string, State, string) error     { return nil }
func (Nop) Subtask(context.Context, int64, string, State, string) error { return nil }
func (Nop) Get(context.Context, int64) (Snapshot, error)                { return Snapshot{}, ErrNotTracked }
