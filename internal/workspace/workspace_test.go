package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateIsExclusivePerJob(t *testing.T) {
	base := t.TempDir()
	first, err := Create(base, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := Create(base, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Path() == second.Path() {
		t.Fatal("expected distinct workspaces for the same video")
	}
	if !strings.HasPrefix(filepath.Base(first.Path()), "job-7-") {
		t.Fatalf("unexpected workspace name %q", first.Path())
	}
}

func TestSubdirAndRemove(t *testing.T) {
	ws, err := Create(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dir, err := ws.Subdir("poster")
	if err != nil {
		t.Fatalf("Subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "poster_1.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(ws.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
}

func TestCreateRequiresBase(t *testing.T) {
	if _, err := Create(" ", 1); err == nil {
		t.Fatal("expected error for blank base")
	}
}

func TestCleanStaleRemovesOnlyOldJobDirs(t *testing.T) {
	base := t.TempDir()
	old := filepath.Join(base, "job-1-abc")
	fresh := filepath.Join(base, "job-2-def")
	foreign := filepath.Join(base, "keep-me")
	for _, dir := range []string{old, fresh, foreign} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{old, foreign} {
		if err := os.Chtimes(dir, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := CleanStale(context.Background(), base, 24*time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	for _, dir := range []string{fresh, foreign} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected %s kept: %v", dir, err)
		}
	}
}

func TestCleanStaleMissingBase(t *testing.T) {
	result := CleanStale(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
