package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postroll/internal/api"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
work_dir = %q
data_dir = %q
log_dir = %q

[storage]
backend = "local"
local_root = %q

[runtime]
min_free_gib = 0
%s`,
		filepath.Join(base, "work"),
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "blobs"),
		extra,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func stubBinaries(t *testing.T, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestConfigInitWritesSampleOnce(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to name %s, got %q", target, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[trailer]") {
		t.Fatalf("sample config missing [trailer] section")
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsBackends(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Storage: local, records: sqlite") || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestConfigLoadErrorSurfaces(t *testing.T) {
	env := setupCLITestEnv(t, "\n[bogus]\nkey = 1\n")

	if _, err := env.run(t, "video", "list"); err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}

func TestVideoAddUploadsAndCreatesRecord(t *testing.T) {
	env := setupCLITestEnv(t, "")
	source := filepath.Join(t.TempDir(), "clip.mov")
	if err := os.WriteFile(source, []byte("movie bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := env.run(t, "video", "add", source)
	if err != nil {
		t.Fatalf("video add: %v", err)
	}
	if !strings.Contains(out, "Video 1 created (source uploads/clip.mov)") {
		t.Fatalf("unexpected add output %q", out)
	}
	stored, err := os.ReadFile(filepath.Join(env.baseDir, "blobs", "uploads", "clip.mov"))
	if err != nil {
		t.Fatalf("expected uploaded object: %v", err)
	}
	if string(stored) != "movie bytes" {
		t.Fatalf("uploaded content = %q", stored)
	}

	out, err = env.run(t, "video", "show", "1", "--json")
	if err != nil {
		t.Fatalf("video show: %v", err)
	}
	var resp api.VideoResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if resp.Video.ID != 1 || resp.Video.Status != "pending" || resp.Video.SourceKey != "uploads/clip.mov" {
		t.Fatalf("unexpected video %+v", resp.Video)
	}
}

func TestVideoAddWithKeyOnly(t *testing.T) {
	env := setupCLITestEnv(t, "")

	if _, err := env.run(t, "video", "add"); err == nil {
		t.Fatal("expected error without file or key")
	}
	out, err := env.run(t, "video", "add", "--key", "uploads/remote.mp4")
	if err != nil {
		t.Fatalf("video add --key: %v", err)
	}
	if !strings.Contains(out, "source uploads/remote.mp4") {
		t.Fatalf("unexpected add output %q", out)
	}
}

func TestVideoListAndShow(t *testing.T) {
	env := setupCLITestEnv(t, "")
	for _, key := range []string{"uploads/a.mp4", "uploads/b.mp4"} {
		if _, err := env.run(t, "video", "add", "--key", key); err != nil {
			t.Fatalf("video add %s: %v", key, err)
		}
	}

	out, err := env.run(t, "video", "list")
	if err != nil {
		t.Fatalf("video list: %v", err)
	}
	for _, want := range []string{"uploads/a.mp4", "uploads/b.mp4", "Pending"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "video", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("video list --status: %v", err)
	}
	if !strings.Contains(out, "No videos") {
		t.Fatalf("expected empty list, got %q", out)
	}

	if _, err := env.run(t, "video", "list", "--status", "archived"); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}

	out, err = env.run(t, "video", "show", "2")
	if err != nil {
		t.Fatalf("video show: %v", err)
	}
	if !strings.Contains(out, "Video 2") || !strings.Contains(out, "uploads/b.mp4") {
		t.Fatalf("unexpected show output %q", out)
	}

	if _, err := env.run(t, "video", "show", "99"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.run(t, "video", "show", "abc"); err == nil || !strings.Contains(err.Error(), "invalid video id") {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestDepsReportsAvailableBinaries(t *testing.T) {
	stubBinaries(t, "ffmpeg", "ffprobe")
	env := setupCLITestEnv(t, "")

	out, err := env.run(t, "deps", "--json")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	var report struct {
		Dependencies []api.DependencyStatus `json:"dependencies"`
		Checks       []api.CheckResult      `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode deps output: %v\n%s", err, out)
	}
	if len(report.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(report.Dependencies))
	}
	for _, dep := range report.Dependencies {
		if !dep.Available {
			t.Fatalf("expected %s available", dep.Name)
		}
	}
	if len(report.Checks) == 0 {
		t.Fatal("expected preflight checks")
	}
}

func TestDepsFailsOnMissingBinary(t *testing.T) {
	stubBinaries(t, "ffprobe")
	env := setupCLITestEnv(t, "\n[media]\nffmpeg_binary = \"postroll-missing-ffmpeg\"\n")

	out, err := env.run(t, "deps")
	if !errors.Is(err, errPreflightFailed) {
		t.Fatalf("expected errPreflightFailed, got %v", err)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "[OK]") {
		t.Fatalf("expected mixed status lines, got:\n%s", out)
	}
}

func TestRunRequiresVideoOrKey(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, err := env.run(t, "run")
	if err == nil || !strings.Contains(err.Error(), "--video-id or --file-key") {
		t.Fatalf("expected missing target error, got %v", err)
	}
}

func TestRunUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t, "")

	_, err := env.run(t, "run", "--video-id", "42")
	if err == nil || !strings.Contains(err.Error(), "load video 42") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	if !strings.Contains(out, "Notifications disabled") {
		t.Fatalf("unexpected output %q", out)
	}

	var title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
	}))
	defer srv.Close()

	env = setupCLITestEnv(t, fmt.Sprintf("\n[notifications]\nntfy_topic = %q\n", srv.URL))
	out, err = env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Test notification sent") || title != "postroll - Test" {
		t.Fatalf("unexpected result %q (title %q)", out, title)
	}
}

func TestLogsFiltersByVideo(t *testing.T) {
	env := setupCLITestEnv(t, "")
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := strings.Join([]string{
		"2026-01-02T03:04:05Z INFO daemon: daemon started",
		"2026-01-02T03:04:06Z INFO pipeline: [video #3] video processing started",
		"2026-01-02T03:04:07Z INFO pipeline: [video #4] video processing started",
		"2026-01-02T03:04:08Z INFO pipeline: [video #3] video processing completed",
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(logDir, "postroll.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := env.run(t, "logs", "--video", "3", "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "2026-01-02T03:04:08Z INFO pipeline: [video #3] video processing completed" {
		t.Fatalf("unexpected filtered output %q", out)
	}

	out, err = env.run(t, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", got, out)
	}
}
