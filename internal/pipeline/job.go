package pipeline

import (
	"fmt"
	"strings"
	"time"

	"postroll/internal/artifact"
	"postroll/internal/probe"
	"postroll/internal/records"
	"postroll/internal/services"
)

// Subtask names, in the order their results are reported.
const (
	SubtaskPoster     = "poster"
	SubtaskStoryboard = "storyboard"
	SubtaskTrailer    = "trailer"
	SubtaskRename     = "rename"
)

var subtaskOrder = []string{SubtaskPoster, SubtaskStoryboard, SubtaskTrailer, SubtaskRename}

// Request is the invocation message that triggers a run.
type Request struct {
	VideoID   int64  `json:"video_id"`
	SourceKey string `json:"file_key"`
	SourceURL string `json:"source_url"`
}

// Validate checks the fields every trigger surface must supply.
func (r Request) Validate() error {
	var problems []string
	if r.VideoID <= 0 {
		problems = append(problems, "video_id must be positive")
	}
	if strings.TrimSpace(r.SourceKey) == "" {
		problems = append(problems, "file_key is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "pipeline", "validate request", strings.Join(problems, "; "), nil)
}

// SubtaskOutcome is what one subtask produced.
type SubtaskOutcome struct {
	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
	Error     string              `json:"error,omitempty"`
	Duration  time.Duration       `json:"duration"`

	err error
}

// Err returns the subtask failure, if any.
func (o SubtaskOutcome) Err() error {
	return o.err
}

// Outputs are the artifacts of a fully successful run.
type Outputs struct {
	Canonical artifact.Artifact `json:"canonical"`
	Poster    artifact.Artifact `json:"poster"`
	Sprite    artifact.Artifact `json:"storyboard"`
	CueIndex  artifact.Artifact `json:"cue_index"`
	Trailer   artifact.Artifact `json:"trailer"`
}

// Job is the state of one run. It is created by Run and never reused; a
// retry starts a new job with a new workspace.
type Job struct {
	ID         string                    `json:"id"`
	VideoID    int64                     `json:"video_id"`
	SourceKey  string                    `json:"source_key"`
	SourceURL  string                    `json:"source_url,omitempty"`
	Workspace  string                    `json:"workspace,omitempty"`
	Probe      probe.Result              `json:"probe"`
	Subtasks   map[string]SubtaskOutcome `json:"subtasks,omitempty"`
	Outputs    *Outputs                  `json:"outputs,omitempty"`
	Status     records.Status            `json:"status"`
	Stage      string                    `json:"stage"`
	Error      string                    `json:"error,omitempty"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// FailedSubtasks lists failing subtask names in report order.
func (j *Job) FailedSubtasks() []string {
	var failed []string
	for _, name := range subtaskOrder {
		if outcome, ok := j.Subtasks[name]; ok && outcome.err != nil {
			failed = append(failed, name)
		}
	}
	return failed
}

// orphans lists artifacts written by subtasks that succeeded in a batch that
// failed overall. They stay in the blob store.
func (j *Job) orphans() []string {
	var keys []string
	for _, name := range subtaskOrder {
		outcome, ok := j.Subtasks[name]
		if !ok || outcome.err != nil {
			continue
		}
		for _, a := range outcome.Artifacts {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

func (j *Job) failureMessage() string {
	var parts []string
	for _, name := range j.FailedSubtasks() {
		parts = append(parts, fmt.Sprintf("%s: %v", name, j.Subtasks[name].err))
	}
	return strings.Join(parts, "; ")
}
