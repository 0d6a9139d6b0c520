package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"postroll/internal/api"
	"postroll/internal/config"
	"postroll/internal/intake"
	"postroll/internal/logging"
	"postroll/internal/pipeline"
	"postroll/internal/preflight"
	"postroll/internal/progress"
	"postroll/internal/records"
	"postroll/internal/workspace"
)

// Runner executes one pipeline request to a terminal status.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Job, error)
}

// Dependencies are the shared collaborators the daemon serves.
type Dependencies struct {
	Records  records.Store
	Runner   Runner
	Progress progress.Tracker
	URL      api.URLFunc
}

// Daemon owns the API server, the intake consumer, and background jobs, and
// enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    sync.WaitGroup
	active  atomic.Int64

	api    *apiServer
	intake *intake.Consumer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	ActiveJobs   int
	Workers      int
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Records == nil || deps.Runner == nil {
		return nil, errors.New("daemon requires config, record store, and runner")
	}
	if deps.Progress == nil {
		deps.Progress = progress.Nop{}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "postroll.lock")
	return &Daemon{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, sweeps stale workspaces, and starts the
// API server and intake consumer.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another postroll daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.sweepWorkspaces(d.ctx)
	d.logPreflight(d.ctx)

	srv, err := newAPIServer(d.cfg.API.Bind, api.Options{
		Records:  d.deps.Records,
		Progress: d.deps.Progress,
		Dispatch: d,
		Health:   d.Health,
		URL:      d.deps.URL,
		Logger:   d.logger,
	}, d.logger)
	if err == nil {
		err = srv.start(d.ctx)
	}
	if err != nil {
		d.abortStart()
		return fmt.Errorf("start api server: %w", err)
	}
	d.api = srv

	if d.cfg.Intake.Enabled {
		consumer, err := intake.Dial(d.cfg.Intake, d, d.logger)
		if err != nil {
			d.abortStart()
			return fmt.Errorf("start intake: %w", err)
		}
		d.intake = consumer
		d.jobs.Add(1)
		go func() {
			defer d.jobs.Done()
			if err := consumer.Start(d.ctx); err != nil {
				logging.ErrorWithContext(d.logger, "intake consumer stopped", "intake_stopped",
					logging.Error(err),
					logging.String(logging.FieldImpact, "queued uploads are not processed until restart"),
				)
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("postroll daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Bool("intake", d.cfg.Intake.Enabled),
		logging.Int("workers", d.cfg.Workers()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.cancel()
	d.ctx, d.cancel = nil, nil
	_ = d.lock.Unlock()
}

// Stop cancels in-flight jobs, waits for them to record a terminal status,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	d.running.Store(false)
	cancel, srv, consumer := d.cancel, d.api, d.intake
	d.cancel, d.api, d.intake, d.ctx = nil, nil, nil, nil
	d.mu.Unlock()

	cancel()
	srv.stop()
	d.jobs.Wait()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			d.logger.Debug("intake close", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("postroll daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Submit implements api.Dispatcher: the run continues after the HTTP
// request returns.
func (d *Daemon) Submit(req pipeline.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() || d.ctx == nil {
		return api.ErrNotAccepting
	}
	ctx := d.ctx
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		_, _ = d.Run(ctx, req)
	}()
	return nil
}

// Run executes req synchronously; the intake consumer calls it directly.
func (d *Daemon) Run(ctx context.Context, req pipeline.Request) (*pipeline.Job, error) {
	d.active.Add(1)
	defer d.active.Add(-1)
	return d.deps.Runner.Run(ctx, req)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		ActiveJobs:   int(d.active.Load()),
		Workers:      d.cfg.Workers(),
		LockFilePath: d.lockPath,
	}
}

// Health runs preflight checks for the API health endpoint.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status := d.Status()
	checks := preflight.RunAll(checkCtx, d.cfg)
	dependencies := preflight.CheckSystemDeps(d.cfg)
	health := api.HealthResponse{
		Status:       "ok",
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		Workers:      status.Workers,
		ActiveJobs:   status.ActiveJobs,
		Checks:       api.FromChecks(checks),
		Dependencies: api.FromDependencies(dependencies),
	}
	if !status.Running || len(preflight.Failed(checks)) > 0 {
		health.Status = "degraded"
	}
	for _, dep := range dependencies {
		if !dep.Available && !dep.Optional {
			health.Status = "degraded"
		}
	}
	return health
}

func (d *Daemon) sweepWorkspaces(ctx context.Context) {
	hours := d.cfg.Runtime.StaleWorkspaceHours
	if hours <= 0 {
		return
	}
	result := workspace.CleanStale(ctx, d.cfg.Paths.WorkDir, time.Duration(hours)*time.Hour, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("stale workspaces removed",
			logging.Int("count", len(result.Removed)),
			logging.String(logging.FieldEventType, "workspace_sweep"),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, failed := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"),
		)
	}
	for _, dep := range preflight.CheckSystemDeps(d.cfg) {
		if !dep.Available {
			logging.WarnWithContext(d.logger, "dependency unavailable", "dependency_missing",
				logging.String("dependency", dep.Name),
				logging.String("detail", dep.Detail),
				logging.String(logging.FieldErrorHint, "install "+dep.Command+" or set media binaries in config"),
			)
		}
	}
}
