// Package workspace manages the exclusively owned scratch directory of one
// pipeline job and sweeps directories left behind by crashed runs.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"postroll/internal/logging"
)

// DirPrefix starts every job workspace name.
const DirPrefix = "job-"

// Workspace is one job's scratch directory. Subtasks write only inside
// their own subdirectory.
type Workspace struct {
	root string

	mu      sync.Mutex
	removed bool
}

// Create makes a fresh, uniquely named directory under baseDir. Two jobs for
// the same video never share a directory.
func Create(baseDir string, videoID int64) (*Workspace, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("workspace: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create base: %w", err)
	}
	root, err := os.MkdirTemp(baseDir, fmt.Sprintf("%s%d-*", DirPrefix, videoID))
	if err != nil {
		return nil, fmt.Errorf("workspace: create: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Path returns the workspace root.
func (w *Workspace) Path() string {
	return w.root
}

// File returns a path directly under the workspace root.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.root, name)
}

// Subdir returns the namespaced directory for one subtask, creating it.
func (w *Workspace) Subdir(name string) (string, error) {
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: create %s: %w", name, err)
	}
	return dir, nil
}

// Remove deletes the workspace recursively. Repeated calls are no-ops.
func (w *Workspace) Remove() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.removed {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("workspace: remove %s: %w", w.root, err)
	}
	w.removed = true
	return nil
}

// CleanStaleResult contains the outcome of a stale workspace sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job workspaces under baseDir older than maxAge. Only
// directories carrying DirPrefix are considered.
func CleanStale(ctx context.Context, baseDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return result
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: baseDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), DirPrefix) {
			continue
		}
		dirPath := filepath.Join(baseDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		}
	}
	return result
}
