// Package blobstore abstracts the object storage that receives source uploads
// and derived artifacts.
//
// Two backends are provided: MinIO (any S3-compatible endpoint) for
// deployments, and a local directory tree for single-host runs and tests.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"postroll/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Store is the minimal surface the pipeline writes through.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Copier is implemented by stores that can duplicate an object server-side.
type Copier interface {
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// Presigner is implemented by stores that can hand out time-limited read URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Open constructs the backend selected by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("blobstore: config is nil")
	}
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return NewMinio(ctx, MinioOptions{
			Endpoint:      cfg.Storage.S3Endpoint,
			Bucket:        cfg.Storage.S3Bucket,
			Region:        cfg.Storage.S3Region,
			AccessKey:     cfg.Storage.S3AccessKey,
			SecretKey:     cfg.Storage.S3SecretKey,
			UseSSL:        cfg.Storage.S3UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
	case config.StorageLocal, "":
		return NewLocalFS(cfg.Storage.LocalRoot, cfg.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("blobstore: unsupported backend %q", cfg.Storage.Backend)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}

// joinPublicURL appends an escaped key to a public base URL.
func joinPublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
