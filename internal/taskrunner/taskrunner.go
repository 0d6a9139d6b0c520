// Package taskrunner executes independent subtasks with a process-wide
// concurrency bound and joins each batch.
package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"postroll/internal/logging"
	"postroll/internal/services"
)

// Task is one independent unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Result is the outcome of one Task.
type Result struct {
	Name     string
	Output   any
	Err      error
	Duration time.Duration
}

// Runner bounds concurrent tasks across every batch it runs.
type Runner struct {
	slots  *semaphore.Weighted
	size   int64
	logger *slog.Logger
}

// New constructs a Runner with workers slots. workers <= 0 uses the CPU count.
func New(workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		slots:  semaphore.NewWeighted(int64(workers)),
		size:   int64(workers),
		logger: logging.NewComponentLogger(logger, "taskrunner"),
	}
}

// Size returns the slot count.
func (r *Runner) Size() int {
	return int(r.size)
}

// RunAllAndWait starts every task and returns once all have finished.
// Results keep the order of tasks. A task that cannot get a slot before ctx
// ends, or that panics, reports an error in its Result; the batch itself
// never fails.
func (r *Runner) RunAllAndWait(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	var group errgroup.Group
	for i, task := range tasks {
		group.Go(func() error {
			results[i] = r.runOne(ctx, task)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, task Task) (result Result) {
	result.Name = task.Name
	if err := r.slots.Acquire(ctx, 1); err != nil {
		result.Err = services.Wrap(services.ErrTimeout, "taskrunner", task.Name, "no worker slot before deadline", err)
		return result
	}
	defer r.slots.Release(1)

	taskCtx := services.WithSubtask(ctx, task.Name)
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			result.Output = nil
			result.Err = fmt.Errorf("subtask %s panicked: %v", task.Name, rec)
			logging.WithContext(taskCtx, r.logger).Error("subtask panicked",
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "subtask_panic"),
			)
		}
	}()

	result.Output, result.Err = task.Run(taskCtx)
	if result.Err != nil && ctx.Err() != nil && services.KindOf(result.Err) == services.KindUnknown {
		result.Err = services.Wrap(services.ErrTimeout, "taskrunner", task.Name, "batch deadline exceeded", result.Err)
	}
	return result
}
