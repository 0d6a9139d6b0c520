package rename_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"postroll/internal/artifact"
	"postroll/internal/blobstore"
	"postroll/internal/config"
	"postroll/internal/rename"
	"postroll/internal/services"
	"postroll/internal/testsupport"
)

func newRenamer(cfg config.Rename, tool *testsupport.FakeMediaTool, store blobstore.Store) *rename.Renamer {
	uploader := artifact.NewUploader(store, "videos")
	uploader.WithClock(func() time.Time { return time.UnixMilli(99) })
	return rename.New(cfg, tool, uploader, nil)
}

func TestCreateCopiesServerSide(t *testing.T) {
	store := testsupport.NewMemoryBlobStore()
	store.Seed("uploads/raw.mov", []byte("raw"))
	tool := testsupport.NewFakeMediaTool(10, 1280, 720)

	got, err := newRenamer(config.Default().Rename, tool, store).Create(context.Background(), rename.Request{
		Source: "/work/in.mov", SourceKey: "uploads/raw.mov", WorkDir: t.TempDir(), VideoID: 11,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Key != "videos/video_11_99.mp4" {
		t.Fatalf("unexpected key %q", got.Key)
	}
	if store.Copies() != 1 {
		t.Fatalf("expected server-side copy, got %d copies", store.Copies())
	}
	if len(tool.Transcodes) != 0 {
		t.Fatal("expected no transcode without compression")
	}
}

func TestCreateUploadsWhenStoreCannotCopy(t *testing.T) {
	mem := testsupport.NewMemoryBlobStore()
	source := filepath.Join(t.TempDir(), "in.mp4")
	testsupport.WriteFile(t, source, 4096)

	// Embedding only the Store interface hides the Copier implementation.
	got, err := newRenamer(config.Default().Rename, testsupport.NewFakeMediaTool(10, 1280, 720), struct{ blobstore.Store }{mem}).
		Create(context.Background(), rename.Request{Source: source, SourceKey: "uploads/raw.mp4", WorkDir: t.TempDir(), VideoID: 11})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	obj, ok := mem.Object(got.Key)
	if !ok || len(obj.Data) != 4096 {
		t.Fatalf("expected re-uploaded file, got %d bytes ok=%v", len(obj.Data), ok)
	}
}

func TestCreateTranscodesWhenCompressing(t *testing.T) {
	cfg := config.Default().Rename
	cfg.Compress = true
	tool := testsupport.NewFakeMediaTool(10, 1920, 1080)
	store := testsupport.NewMemoryBlobStore()

	got, err := newRenamer(cfg, tool, store).Create(context.Background(), rename.Request{
		Source: "in.mov", SourceKey: "uploads/raw.mov", WorkDir: t.TempDir(), VideoID: 11,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(tool.Transcodes) != 1 || tool.Transcodes[0].MaxHeight != 720 {
		t.Fatalf("unexpected transcodes %+v", tool.Transcodes)
	}
	if store.Copies() != 0 {
		t.Fatal("expected no server-side copy when compressing")
	}
	if _, ok := store.Object(got.Key); !ok {
		t.Fatal("expected transcoded object stored")
	}
}

func TestCreateErrorKinds(t *testing.T) {
	t.Run("copy failure is rename error", func(t *testing.T) {
		store := testsupport.NewMemoryBlobStore()
		_, err := newRenamer(config.Default().Rename, testsupport.NewFakeMediaTool(10, 1, 1), store).Create(context.Background(), rename.Request{
			Source: "in.mp4", SourceKey: "uploads/missing.mp4", WorkDir: t.TempDir(), VideoID: 1,
		})
		if !errors.Is(err, services.ErrRename) || services.KindOf(err) != services.KindRename {
			t.Fatalf("expected rename error, got %v", err)
		}
	})
	t.Run("transcode failure is ffmpeg error", func(t *testing.T) {
		cfg := config.Default().Rename
		cfg.Compress = true
		tool := testsupport.NewFakeMediaTool(10, 1, 1)
		tool.Fail["transcode"] = errors.New("exit status 1")
		_, err := newRenamer(cfg, tool, testsupport.NewMemoryBlobStore()).Create(context.Background(), rename.Request{
			Source: "in.mp4", SourceKey: "k", WorkDir: t.TempDir(), VideoID: 1,
		})
		if !errors.Is(err, services.ErrFfmpeg) {
			t.Fatalf("expected ffmpeg error, got %v", err)
		}
	})
}
