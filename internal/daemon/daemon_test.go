package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"postroll/internal/api"
	"postroll/internal/pipeline"
	"postroll/internal/testsupport"
)

type blockingRunner struct {
	mu      sync.Mutex
	reqs    []pipeline.Request
	started chan struct{}
	block   bool
}

func newBlockingRunner(block bool) *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 8), block: block}
}

func (r *blockingRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Job, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	r.started <- struct{}{}
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &pipeline.Job{VideoID: req.VideoID}, nil
}

func (r *blockingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func newTestDaemon(t *testing.T, runner Runner) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, Dependencies{Records: testsupport.MustOpenRecords(t, cfg), Runner: runner}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, newBlockingRunner(false))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Submit(pipeline.Request{VideoID: 1, SourceKey: "k"}); !errors.Is(err, api.ErrNotAccepting) {
		t.Fatalf("expected ErrNotAccepting after stop, got %v", err)
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRecords(t, cfg)
	first, err := New(cfg, Dependencies{Records: store, Runner: newBlockingRunner(false)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer first.Close()
	second, err := New(cfg, Dependencies{Records: store, Runner: newBlockingRunner(false)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer second.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestSubmitRunsInBackground(t *testing.T) {
	runner := newBlockingRunner(false)
	d := newTestDaemon(t, runner)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := d.Submit(pipeline.Request{VideoID: 9, SourceKey: "uploads/x.mov"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	d.Stop()
	if runner.count() != 1 {
		t.Fatalf("expected one run, got %d", runner.count())
	}
}

func TestStopCancelsAndWaitsForJobs(t *testing.T) {
	runner := newBlockingRunner(true)
	d := newTestDaemon(t, runner)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Submit(pipeline.Request{VideoID: 3, SourceKey: "k"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-runner.started
	if got := d.Status().ActiveJobs; got != 1 {
		t.Fatalf("expected 1 active job, got %d", got)
	}

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancelling jobs")
	}
	if got := d.Status().ActiveJobs; got != 0 {
		t.Fatalf("expected no active jobs after stop, got %d", got)
	}
}

func TestAPIServerServesHealth(t *testing.T) {
	d := newTestDaemon(t, newBlockingRunner(false))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.mu.Lock()
	addr := d.api.address()
	d.mu.Unlock()

	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Workers != 4 || health.PID == 0 || len(health.Checks) == 0 {
		t.Fatalf("unexpected health payload %+v", health)
	}
}
