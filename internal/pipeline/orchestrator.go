package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"postroll/internal/artifact"
	"postroll/internal/blobstore"
	"postroll/internal/config"
	"postroll/internal/fetch"
	"postroll/internal/logging"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/notifications"
	"postroll/internal/poster"
	"postroll/internal/probe"
	"postroll/internal/progress"
	"postroll/internal/records"
	"postroll/internal/rename"
	"postroll/internal/services"
	"postroll/internal/storyboard"
	"postroll/internal/taskrunner"
	"postroll/internal/trailer"
	"postroll/internal/workspace"
)

// Fetcher downloads a source URL to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dest string) (int64, error)
}

// Dependencies are the long-lived collaborators shared by every run.
type Dependencies struct {
	Records records.Store
	Blobs   blobstore.Store
	Tool    ffmpeg.Tool
	Runner  *taskrunner.Runner
	// Optional; defaults are built from the config.
	Fetcher  Fetcher
	Tracker  progress.Tracker
	Notifier notifications.Service
}

// Orchestrator runs jobs. It is safe for concurrent use; jobs share nothing
// but the record store, blob store, and task runner slots.
type Orchestrator struct {
	cfg        *config.Config
	records    records.Store
	blobs      blobstore.Store
	runner     *taskrunner.Runner
	fetcher    Fetcher
	tracker    progress.Tracker
	notifier   notifications.Service
	prober     *probe.Prober
	poster     *poster.Generator
	storyboard *storyboard.Builder
	trailer    *trailer.Builder
	renamer    *rename.Renamer
	logger     *slog.Logger
	now        func() time.Time
}

// New wires an Orchestrator from cfg and deps.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Orchestrator {
	uploader := artifact.NewUploader(deps.Blobs, cfg.Storage.KeyPrefix)
	runner := deps.Runner
	if runner == nil {
		runner = taskrunner.New(cfg.Workers(), logger)
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(cfg.FetchTimeout(), logger)
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = progress.Nop{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Nop{}
	}
	return &Orchestrator{
		cfg:        cfg,
		records:    deps.Records,
		blobs:      deps.Blobs,
		runner:     runner,
		fetcher:    fetcher,
		tracker:    tracker,
		notifier:   notifier,
		prober:     probe.New(deps.Tool, logger),
		poster:     poster.New(cfg.Poster, deps.Tool, uploader, logger),
		storyboard: storyboard.New(cfg.Storyboard, deps.Tool, uploader, logger),
		trailer:    trailer.New(cfg.Trailer, deps.Tool, uploader, logger),
		renamer:    rename.New(cfg.Rename, deps.Tool, uploader, logger),
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
	}
}

// Run processes one video to a terminal record status. The returned Job is
// non-nil whenever the request was valid, including on failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := &Job{
		ID:        uuid.NewString(),
		VideoID:   req.VideoID,
		SourceKey: req.SourceKey,
		SourceURL: req.SourceURL,
		Status:    records.StatusPending,
		StartedAt: o.now().UTC(),
	}
	ctx = services.WithVideoID(ctx, req.VideoID)
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, o.logger)

	// Progress belongs to whichever job holds the record, so nothing is
	// tracked until the claim succeeds.
	job.Stage = "mark_processing"
	if err := o.records.UpdateStatus(ctx, job.VideoID, records.StatusProcessing, ""); err != nil {
		err = services.Wrap(services.ErrDatabase, "pipeline", "mark processing", "video record not claimed", err)
		job.Error = err.Error()
		job.FinishedAt = o.now().UTC()
		logging.ErrorWithContext(logger, "video record not claimed", "job_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the video exists and is pending or failed"),
		)
		return job, err
	}
	job.Status = records.StatusProcessing
	o.stage(ctx, job, "mark_processing")
	logger.Info("video processing started",
		logging.String("source_key", job.SourceKey),
		logging.String(logging.FieldEventType, "job_started"),
	)

	o.stage(ctx, job, "workspace")
	ws, err := workspace.Create(o.cfg.Paths.WorkDir, job.VideoID)
	if err != nil {
		return job, o.fail(ctx, job, services.Wrap(services.ErrFileSystem, "pipeline", "create workspace", o.cfg.Paths.WorkDir, err))
	}
	job.Workspace = ws.Path()
	defer func() {
		if err := ws.Remove(); err != nil {
			logging.WarnWithContext(logger, "workspace not removed", "workspace_cleanup_failed",
				logging.String("path", ws.Path()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory manually; serve sweeps stale workspaces at startup"),
			)
		}
	}()

	o.stage(ctx, job, "fetch")
	source, err := o.fetchSource(ctx, job, ws)
	if err != nil {
		return job, o.fail(ctx, job, err)
	}

	o.stage(ctx, job, "probe")
	probed, err := o.prober.Probe(ctx, source)
	if err != nil {
		return job, o.fail(ctx, job, err)
	}
	job.Probe = probed

	o.stage(ctx, job, "subtasks")
	outputs, err := o.runSubtasks(ctx, job, ws, source)
	if err != nil {
		if orphans := job.orphans(); len(orphans) > 0 {
			logging.WarnWithContext(logger, "artifacts from successful subtasks left in blob store", "orphaned_artifacts",
				logging.Any("keys", orphans),
				logging.String(logging.FieldImpact, "unreferenced objects consume storage until removed"),
			)
		}
		return job, o.fail(ctx, job, err)
	}

	o.stage(ctx, job, "complete")
	completion := records.Completion{
		CanonicalKey:    outputs.Canonical.Key,
		PosterKey:       outputs.Poster.Key,
		StoryboardKey:   outputs.Sprite.Key,
		CueIndexKey:     outputs.CueIndex.Key,
		TrailerKey:      outputs.Trailer.Key,
		DurationSeconds: int64(math.Floor(probed.Duration)),
		CompletedAt:     o.now().UTC(),
	}
	if err := o.records.Complete(ctx, job.VideoID, completion); err != nil {
		return job, o.fail(ctx, job, services.Wrap(services.ErrDatabase, "pipeline", "complete", "artifact keys not recorded", err))
	}
	job.Outputs = &outputs
	job.Status = records.StatusCompleted

	o.stage(ctx, job, "cleanup")
	o.deleteSource(ctx, job.SourceKey, outputs.Canonical.Key)

	job.FinishedAt = o.now().UTC()
	_ = o.tracker.Job(ctx, job.VideoID, job.ID, progress.StateSucceeded, job.Stage)
	logger.Info("video processing completed",
		logging.String("canonical_key", outputs.Canonical.Key),
		logging.String("poster_key", outputs.Poster.Key),
		logging.String("storyboard_key", outputs.Sprite.Key),
		logging.String("cue_index_key", outputs.CueIndex.Key),
		logging.String("trailer_key", outputs.Trailer.Key),
		logging.Int64("duration_seconds", completion.DurationSeconds),
		logging.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	o.notify(ctx, notifications.EventVideoCompleted, job)
	return job, nil
}

// fetchSource resolves the download URL and writes the source into ws.
func (o *Orchestrator) fetchSource(ctx context.Context, job *Job, ws *workspace.Workspace) (string, error) {
	sourceURL := strings.TrimSpace(job.SourceURL)
	if sourceURL == "" {
		presigner, ok := o.blobs.(blobstore.Presigner)
		if !ok {
			return "", services.Wrap(services.ErrFetch, "pipeline", "resolve source", "no source_url and the blob store cannot presign", nil)
		}
		signed, err := presigner.PresignGet(ctx, job.SourceKey, o.cfg.PresignTTL())
		if err != nil {
			return "", services.Wrap(services.ErrFetch, "pipeline", "presign source", job.SourceKey, err)
		}
		sourceURL = signed
	}
	dest := ws.File("source" + path.Ext(job.SourceKey))
	if _, err := o.fetcher.Fetch(ctx, sourceURL, dest); err != nil {
		if services.KindOf(err) == services.KindUnknown {
			err = services.Wrap(services.ErrFetch, "pipeline", "download source", job.SourceKey, err)
		}
		return "", err
	}
	return dest, nil
}

// fail records the terminal failure and returns err. The status write
// survives cancellation of ctx so shutdowns do not strand records in
// processing.
func (o *Orchestrator) fail(ctx context.Context, job *Job, err error) error {
	job.Status = records.StatusFailed
	job.Error = err.Error()
	job.FinishedAt = o.now().UTC()
	logger := logging.WithContext(ctx, o.logger)

	writeCtx := context.WithoutCancel(ctx)
	if updateErr := o.records.UpdateStatus(writeCtx, job.VideoID, records.StatusFailed, job.Error); updateErr != nil {
		logging.ErrorWithContext(logger, "failed status not recorded", "status_write_failed",
			logging.Error(updateErr),
			logging.String(logging.FieldImpact, "video record may remain in processing"),
		)
	}
	_ = o.tracker.Job(writeCtx, job.VideoID, job.ID, progress.StateFailed, job.Stage)
	logging.ErrorWithContext(logger, "video processing failed", "job_failed",
		logging.String("stage", job.Stage),
		logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
		logging.Error(err),
	)
	o.notify(writeCtx, notifications.EventVideoFailed, job)
	return err
}

// notify publishes a terminal outcome. Delivery failures are logged only.
func (o *Orchestrator) notify(ctx context.Context, event notifications.Event, job *Job) {
	err := o.notifier.Publish(ctx, event, notifications.Payload{
		VideoID:   job.VideoID,
		SourceKey: job.SourceKey,
		Elapsed:   job.FinishedAt.Sub(job.StartedAt),
		Stage:     job.Stage,
		Error:     job.Error,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "notification not delivered", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// deleteSource removes the original upload once the canonical copy is
// recorded. Failure is logged only; the record is already consistent.
func (o *Orchestrator) deleteSource(ctx context.Context, sourceKey, canonicalKey string) {
	if sourceKey == "" || sourceKey == canonicalKey {
		return
	}
	if err := o.blobs.Delete(ctx, sourceKey); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "source upload not deleted", "source_delete_failed",
			logging.String("source_key", sourceKey),
			logging.Error(err),
			logging.String(logging.FieldImpact, "original upload remains in the blob store"),
		)
	}
}

func (o *Orchestrator) stage(ctx context.Context, job *Job, stage string) {
	job.Stage = stage
	if err := o.tracker.Job(ctx, job.VideoID, job.ID, progress.StateRunning, stage); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Debug("progress update skipped", logging.Error(err))
	}
}
