package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"postroll/internal/blobstore"
	"postroll/internal/config"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/notifications"
	"postroll/internal/pipeline"
	"postroll/internal/progress"
	"postroll/internal/records"
	"postroll/internal/taskrunner"
)

// Components are the process-wide collaborators every job shares: one record
// store pool, one blob store client, one task runner.
type Components struct {
	Records      records.Store
	Blobs        blobstore.Store
	Progress     progress.Tracker
	Runner       *taskrunner.Runner
	Orchestrator *pipeline.Orchestrator

	closers []func() error
}

// Open builds Components from cfg. Close releases whatever was opened even
// when Open fails part way.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{}

	store, err := records.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	c.Records = store
	c.closers = append(c.closers, store.Close)

	blobs, err := blobstore.Open(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	c.Blobs = blobs

	tracker, closeTracker, err := progress.Open(ctx, cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open progress tracker: %w", err)
	}
	c.Progress = tracker
	c.closers = append(c.closers, closeTracker)

	c.Runner = taskrunner.New(cfg.Workers(), logger)
	c.Orchestrator = pipeline.New(cfg, pipeline.Dependencies{
		Records:  c.Records,
		Blobs:    c.Blobs,
		Tool:     ffmpeg.NewRunner(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary),
		Runner:   c.Runner,
		Tracker:  c.Progress,
		Notifier: notifications.NewService(cfg),
	}, logger)
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
