// Package artifact uploads derived media files to the blob store under
// deterministic, timestamped names.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"postroll/internal/blobstore"
	"postroll/internal/services"
)

// Artifact identifies one uploaded object.
type Artifact struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Content types used by the pipeline.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypeVTT  = "text/vtt"
	ContentTypeMP4  = "video/mp4"
)

// Uploader writes artifacts through a blob store.
type Uploader struct {
	store  blobstore.Store
	prefix string
	now    func() time.Time
}

// NewUploader constructs an Uploader. prefix is joined in front of every key.
func NewUploader(store blobstore.Store, prefix string) *Uploader {
	return &Uploader{store: store, prefix: prefix, now: time.Now}
}

// WithClock replaces the timestamp source (for testing).
func (u *Uploader) WithClock(now func() time.Time) {
	if now != nil {
		u.now = now
	}
}

// Store exposes the underlying blob store.
func (u *Uploader) Store() blobstore.Store {
	return u.store
}

// Name builds "{kind}_{videoID}_{unixMillis}.{ext}".
func (u *Uploader) Name(kind string, videoID int64, ext string) string {
	return fmt.Sprintf("%s_%d_%d.%s", kind, videoID, u.now().UnixMilli(), ext)
}

// Key places name under the configured prefix.
func (u *Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// URL returns the public URL for key.
func (u *Uploader) URL(key string) string {
	return u.store.URL(key)
}

// UploadBytes stores data under name.
func (u *Uploader) UploadBytes(ctx context.Context, name string, data []byte, contentType string) (Artifact, error) {
	key := u.Key(name)
	if err := u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Artifact{}, services.Wrap(services.ErrUpload, "artifact", "upload", key, err)
	}
	return Artifact{Key: key, URL: u.store.URL(key)}, nil
}

// UploadFile streams the file at localPath under name. A missing or empty
// file is a filesystem error, not an upload error.
func (u *Uploader) UploadFile(ctx context.Context, name, localPath, contentType string) (Artifact, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrFileSystem, "artifact", "open output", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrFileSystem, "artifact", "stat output", localPath, err)
	}
	if info.Size() == 0 {
		return Artifact{}, services.Wrap(services.ErrFileSystem, "artifact", "read output", "output file is empty: "+localPath, nil)
	}
	key := u.Key(name)
	if err := u.store.Put(ctx, key, file, info.Size(), contentType); err != nil {
		return Artifact{}, services.Wrap(services.ErrUpload, "artifact", "upload", key, err)
	}
	return Artifact{Key: key, URL: u.store.URL(key)}, nil
}

// ReadOutput loads a produced file, failing with a filesystem error when it
// is missing or empty.
func ReadOutput(component, localPath string) ([]byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, component, "read output", localPath, err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrFileSystem, component, "read output", "output file is empty: "+localPath, nil)
	}
	return data, nil
}
