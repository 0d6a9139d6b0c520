package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"postroll/internal/logging"
	"postroll/internal/testsupport"
)

func TestOpenWiresComponents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	c, err := Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Records == nil || c.Blobs == nil || c.Progress == nil || c.Runner == nil || c.Orchestrator == nil {
		t.Fatalf("expected every component to be set: %+v", c)
	}
	if c.Runner.Size() != cfg.Workers() {
		t.Fatalf("runner size = %d, want %d", c.Runner.Size(), cfg.Workers())
	}

	video, err := c.Records.Create(context.Background(), "uploads/a.mp4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if video.ID <= 0 {
		t.Fatalf("expected positive id, got %d", video.ID)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Storage.Backend = "tape"

	if _, err := Open(context.Background(), cfg, logging.NewNop()); err == nil || !strings.Contains(err.Error(), "open blob store") {
		t.Fatalf("expected blob store error, got %v", err)
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "postroll-1.log")
	second := filepath.Join(dir, "postroll-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "postroll.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "postroll-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
	if err := ensureCurrentLogPointer("", second); err != nil {
		t.Fatalf("empty dir should be a no-op: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postroll.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q", data)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
