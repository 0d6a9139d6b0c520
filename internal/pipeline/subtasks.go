package pipeline

import (
	"context"
	"errors"
	"fmt"

	"postroll/internal/artifact"
	"postroll/internal/logging"
	"postroll/internal/poster"
	"postroll/internal/progress"
	"postroll/internal/rename"
	"postroll/internal/services"
	"postroll/internal/storyboard"
	"postroll/internal/taskrunner"
	"postroll/internal/trailer"
	"postroll/internal/workspace"
)

// runSubtasks dispatches the four artifact builders as one batch and waits
// for all of them. Each writes only inside its own workspace subdirectory.
func (o *Orchestrator) runSubtasks(ctx context.Context, job *Job, ws *workspace.Workspace, source string) (Outputs, error) {
	dirs := make(map[string]string, len(subtaskOrder))
	for _, name := range subtaskOrder {
		dir, err := ws.Subdir(name)
		if err != nil {
			return Outputs{}, services.Wrap(services.ErrFileSystem, "pipeline", "prepare subtask", name, err)
		}
		dirs[name] = dir
	}

	batchCtx := ctx
	if timeout := o.cfg.BatchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p := job.Probe
	tasks := []taskrunner.Task{
		o.track(job, SubtaskPoster, func(ctx context.Context) (any, error) {
			return o.poster.Create(ctx, poster.Request{
				Source: source, WorkDir: dirs[SubtaskPoster], VideoID: job.VideoID, Duration: p.Duration,
			})
		}),
		o.track(job, SubtaskStoryboard, func(ctx context.Context) (any, error) {
			return o.storyboard.Create(ctx, storyboard.Request{
				Source: source, WorkDir: dirs[SubtaskStoryboard], VideoID: job.VideoID, Duration: p.Duration, Portrait: p.Portrait(),
			})
		}),
		o.track(job, SubtaskTrailer, func(ctx context.Context) (any, error) {
			return o.trailer.Create(ctx, trailer.Request{
				Source: source, WorkDir: dirs[SubtaskTrailer], VideoID: job.VideoID, Duration: p.Duration, Width: p.Width, Height: p.Height, NoAudio: !p.HasAudio,
			})
		}),
		o.track(job, SubtaskRename, func(ctx context.Context) (any, error) {
			return o.renamer.Create(ctx, rename.Request{
				Source: source, SourceKey: job.SourceKey, WorkDir: dirs[SubtaskRename], VideoID: job.VideoID,
			})
		}),
	}

	results := o.runner.RunAllAndWait(batchCtx, tasks)

	var (
		outputs  Outputs
		failures []error
	)
	job.Subtasks = make(map[string]SubtaskOutcome, len(results))
	for _, result := range results {
		outcome := SubtaskOutcome{Duration: result.Duration, err: result.Err}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
			failures = append(failures, fmt.Errorf("%s: %w", result.Name, result.Err))
			job.Subtasks[result.Name] = outcome
			continue
		}
		switch out := result.Output.(type) {
		case storyboard.Result:
			outputs.Sprite, outputs.CueIndex = out.Sprite, out.CueIndex
			outcome.Artifacts = []artifact.Artifact{out.Sprite, out.CueIndex}
		case artifact.Artifact:
			switch result.Name {
			case SubtaskPoster:
				outputs.Poster = out
			case SubtaskTrailer:
				outputs.Trailer = out
			case SubtaskRename:
				outputs.Canonical = out
			}
			outcome.Artifacts = []artifact.Artifact{out}
		}
		job.Subtasks[result.Name] = outcome
	}
	if len(failures) == 0 {
		return outputs, nil
	}

	err := errors.Join(failures...)
	if errors.Is(batchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, "pipeline", "subtasks", fmt.Sprintf("batch exceeded %s", o.cfg.BatchTimeout()), err)
	}
	return Outputs{}, err
}

// track reports subtask state to the progress tracker around run.
func (o *Orchestrator) track(job *Job, name string, run func(context.Context) (any, error)) taskrunner.Task {
	return taskrunner.Task{
		Name: name,
		Run: func(ctx context.Context) (any, error) {
			_ = o.tracker.Subtask(ctx, job.VideoID, name, progress.StateRunning, "")
			out, err := run(ctx)
			state, detail := progress.StateSucceeded, ""
			if err != nil {
				state, detail = progress.StateFailed, err.Error()
				logging.WithContext(ctx, o.logger).Warn("subtask failed",
					logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
					logging.Error(err),
					logging.String(logging.FieldEventType, "subtask_failed"),
				)
			}
			_ = o.tracker.Subtask(context.WithoutCancel(ctx), job.VideoID, name, state, detail)
			return out, err
		},
	}
}
