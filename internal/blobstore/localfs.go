package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalFS stores objects as files below a root directory.
type LocalFS struct {
	root       string
	publicBase string
}

var (
	_ Store     = (*LocalFS)(nil)
	_ Copier    = (*LocalFS)(nil)
	_ Presigner = (*LocalFS)(nil)
)

// NewLocalFS creates root when missing.
func NewLocalFS(root, publicBaseURL string) (*LocalFS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local blob store: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local blob store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local blob store: create root: %w", err)
	}
	return &LocalFS{root: abs, publicBase: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Root returns the absolute store directory.
func (l *LocalFS) Root() string {
	return l.root
}

// Path maps key to its file location.
func (l *LocalFS) Path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(l.root, rel), nil
}

// Put writes r to a temporary sibling and renames it into place so readers
// never see a partial object.
func (l *LocalFS) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	target, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("local put: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("local put: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("local put: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("local put: close: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("local put: rename: %w", err)
	}
	return nil
}

// Delete removes key. Missing objects are not an error.
func (l *LocalFS) Delete(_ context.Context, key string) error {
	target, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

// Copy duplicates srcKey to dstKey.
func (l *LocalFS) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := l.Path(srcKey)
	if err != nil {
		return err
	}
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("local copy: open source: %w", err)
	}
	defer file.Close()
	return l.Put(ctx, dstKey, file, -1, "")
}

// PresignGet returns a file:// URL; local objects need no signature.
func (l *LocalFS) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	target, err := l.Path(key)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(target), nil
}

// URL returns the public URL of key, or a file:// URL when no public base
// is configured.
func (l *LocalFS) URL(key string) string {
	key = strings.TrimLeft(key, "/")
	if l.publicBase != "" {
		return joinPublicURL(l.publicBase, key)
	}
	return "file://" + filepath.ToSlash(filepath.Join(l.root, filepath.FromSlash(key)))
}
