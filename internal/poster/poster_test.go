package poster_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"postroll/internal/artifact"
	"postroll/internal/config"
	"postroll/internal/poster"
	"postroll/internal/services"
	"postroll/internal/testsupport"
)

func newGenerator(t *testing.T, tool *testsupport.FakeMediaTool, store *testsupport.MemoryBlobStore) *poster.Generator {
	t.Helper()
	uploader := artifact.NewUploader(store, "videos")
	uploader.WithClock(func() time.Time { return time.UnixMilli(1000) })
	return poster.New(config.Default().Poster, tool, uploader, nil)
}

func TestCreateUploadsJPEG(t *testing.T) {
	tool := testsupport.NewFakeMediaTool(12, 1920, 1080)
	store := testsupport.NewMemoryBlobStore()
	dir := filepath.Join(t.TempDir(), "poster")

	got, err := newGenerator(t, tool, store).Create(context.Background(), poster.Request{
		Source: "in.mp4", WorkDir: dir, VideoID: 9, Duration: 12,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Key != "videos/poster_9_1000.jpg" {
		t.Fatalf("unexpected key %q", got.Key)
	}
	obj, ok := store.Object(got.Key)
	if !ok || obj.ContentType != "image/jpeg" {
		t.Fatalf("expected jpeg object, got %+v ok=%v", obj, ok)
	}
	if len(tool.Screenshots) != 1 {
		t.Fatalf("expected one screenshot, got %d", len(tool.Screenshots))
	}
	shot := tool.Screenshots[0]
	if math.Abs(shot.Offset-3.96) > 1e-9 {
		t.Fatalf("expected 33%% offset, got %v", shot.Offset)
	}
	if shot.MaxWidth != 640 {
		t.Fatalf("expected width bound 640, got %d", shot.MaxWidth)
	}
	if filepath.Base(shot.Output) != "poster_9.jpg" {
		t.Fatalf("unexpected output file %q", shot.Output)
	}
}

func TestCreateErrorKinds(t *testing.T) {
	t.Run("ffmpeg", func(t *testing.T) {
		tool := testsupport.NewFakeMediaTool(10, 640, 360)
		tool.Fail["screenshot"] = errors.New("exit status 1")
		_, err := newGenerator(t, tool, testsupport.NewMemoryBlobStore()).Create(context.Background(), poster.Request{
			Source: "in.mp4", WorkDir: t.TempDir(), VideoID: 1, Duration: 10,
		})
		if !errors.Is(err, services.ErrFfmpeg) {
			t.Fatalf("expected ffmpeg error, got %v", err)
		}
	})
	t.Run("missing output", func(t *testing.T) {
		tool := testsupport.NewFakeMediaTool(10, 640, 360)
		tool.SkipOutput["screenshot"] = true
		_, err := newGenerator(t, tool, testsupport.NewMemoryBlobStore()).Create(context.Background(), poster.Request{
			Source: "in.mp4", WorkDir: t.TempDir(), VideoID: 1, Duration: 10,
		})
		if !errors.Is(err, services.ErrFileSystem) {
			t.Fatalf("expected filesystem error, got %v", err)
		}
	})
	t.Run("upload", func(t *testing.T) {
		store := testsupport.NewMemoryBlobStore()
		store.FailPutsMatching("poster_")
		_, err := newGenerator(t, testsupport.NewFakeMediaTool(10, 640, 360), store).Create(context.Background(), poster.Request{
			Source: "in.mp4", WorkDir: t.TempDir(), VideoID: 1, Duration: 10,
		})
		if !errors.Is(err, services.ErrUpload) || !strings.Contains(err.Error(), "poster_1_1000.jpg") {
			t.Fatalf("expected upload error naming the key, got %v", err)
		}
	})
}
