package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postroll/internal/artifact"
	"postroll/internal/services"
	"postroll/internal/testsupport"
)

func fixedClock() time.Time {
	return time.UnixMilli(1700000000123)
}

func TestNameAndKey(t *testing.T) {
	u := artifact.NewUploader(testsupport.NewMemoryBlobStore(), "videos")
	u.WithClock(fixedClock)
	name := u.Name("poster", 42, "jpg")
	if name != "poster_42_1700000000123.jpg" {
		t.Fatalf("unexpected name %q", name)
	}
	if key := u.Key(name); key != "videos/poster_42_1700000000123.jpg" {
		t.Fatalf("unexpected key %q", key)
	}
	if key := artifact.NewUploader(testsupport.NewMemoryBlobStore(), "").Key("a.jpg"); key != "a.jpg" {
		t.Fatalf("expected bare key without prefix, got %q", key)
	}
}

func TestUploadBytesReturnsKeyAndURL(t *testing.T) {
	store := testsupport.NewMemoryBlobStore()
	u := artifact.NewUploader(store, "videos")
	got, err := u.UploadBytes(context.Background(), "storyboard_1_5.vtt", []byte("WEBVTT\n\n"), artifact.ContentTypeVTT)
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if got.Key != "videos/storyboard_1_5.vtt" || got.URL != "https://blobs.test/videos/storyboard_1_5.vtt" {
		t.Fatalf("unexpected artifact %+v", got)
	}
	obj, ok := store.Object(got.Key)
	if !ok || obj.ContentType != artifact.ContentTypeVTT {
		t.Fatalf("unexpected stored object %+v ok=%v", obj, ok)
	}
}

func TestUploadFailureIsUploadError(t *testing.T) {
	store := testsupport.NewMemoryBlobStore()
	store.FailPutsMatching("poster")
	u := artifact.NewUploader(store, "")
	_, err := u.UploadBytes(context.Background(), "poster_1_1.jpg", []byte("x"), artifact.ContentTypeJPEG)
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestUploadFileRejectsMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	u := artifact.NewUploader(testsupport.NewMemoryBlobStore(), "")

	_, err := u.UploadFile(context.Background(), "x.mp4", filepath.Join(dir, "missing.mp4"), artifact.ContentTypeMP4)
	if !errors.Is(err, services.ErrFileSystem) {
		t.Fatalf("expected filesystem error for missing file, got %v", err)
	}

	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	_, err = u.UploadFile(context.Background(), "x.mp4", empty, artifact.ContentTypeMP4)
	if !errors.Is(err, services.ErrFileSystem) {
		t.Fatalf("expected filesystem error for empty file, got %v", err)
	}

	full := filepath.Join(dir, "full.mp4")
	testsupport.WriteFile(t, full, 2048)
	got, err := u.UploadFile(context.Background(), "x.mp4", full, artifact.ContentTypeMP4)
	if err != nil || got.Key != "x.mp4" {
		t.Fatalf("unexpected upload result %+v err=%v", got, err)
	}
}
