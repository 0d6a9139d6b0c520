package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"postroll/internal/media/ffprobe"
)

type capturedCall struct {
	name string
	args []string
}

func captureRunner(calls *[]capturedCall, err error) RunnerOption {
	return WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, capturedCall{name: name, args: append([]string(nil), args...)})
		return err
	})
}

func argAfter(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestScreenshotArgs(t *testing.T) {
	var calls []capturedCall
	r := NewRunner("/opt/ffmpeg", "", captureRunner(&calls, nil))
	err := r.Screenshot(context.Background(), ScreenshotRequest{
		Source: "/work/in.mp4", Output: "/work/poster/poster_7.jpg", Offset: 3.96, MaxWidth: 640, Quality: 2,
	})
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "/opt/ffmpeg" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	args := calls[0].args
	if argAfter(args, "-ss") != "3.960" {
		t.Fatalf("unexpected offset: %v", args)
	}
	if argAfter(args, "-frames:v") != "1" {
		t.Fatalf("expected one frame: %v", args)
	}
	if argAfter(args, "-vf") != `scale=w=min(640\,iw):h=-2` {
		t.Fatalf("unexpected scale: %q", argAfter(args, "-vf"))
	}
	if args[len(args)-1] != "/work/poster/poster_7.jpg" {
		t.Fatalf("output must be last: %v", args)
	}
}

func TestTilesFilter(t *testing.T) {
	got := TilesFilter([]int{0, 14, 28}, 160, 90, 5, 1)
	want := `select=eq(n\,0)+eq(n\,14)+eq(n\,28),scale=160:90:force_original_aspect_ratio=decrease,pad=160:90:(ow-iw)/2:(oh-ih)/2,tile=5x1`
	if got != want {
		t.Fatalf("unexpected filter:\n got %s\nwant %s", got, want)
	}
}

func TestRenderTilesRejectsEmptySelection(t *testing.T) {
	var calls []capturedCall
	r := NewRunner("", "", captureRunner(&calls, nil))
	if err := r.RenderTiles(context.Background(), TilesRequest{Source: "a", Output: "b"}); err == nil {
		t.Fatal("expected error for empty frame list")
	}
	if len(calls) != 0 {
		t.Fatal("expected no process to run")
	}
}

func TestClipArgsIncludeFilterAndCodec(t *testing.T) {
	args := clipArgs(ClipRequest{
		Source: "in.mp4", Output: "clip_0.mp4", Start: 2.4, Duration: 3, Filter: "scale=1280:720,setsar=1", CRF: 23, Preset: "veryfast",
	})
	if argAfter(args, "-ss") != "2.400" || argAfter(args, "-t") != "3.000" {
		t.Fatalf("unexpected timing args: %v", args)
	}
	if argAfter(args, "-vf") != "scale=1280:720,setsar=1" {
		t.Fatalf("unexpected filter: %v", args)
	}
	if argAfter(args, "-c:v") != "libx264" || argAfter(args, "-c:a") != "aac" {
		t.Fatalf("expected h264/aac: %v", args)
	}
	if argAfter(args, "-crf") != "23" {
		t.Fatalf("unexpected crf: %v", args)
	}
}

func TestClipArgsAudioMapping(t *testing.T) {
	withAudio := clipArgs(ClipRequest{Source: "in.mp4", Output: "clip_0.mp4", Duration: 3})
	if !slices.Contains(withAudio, "0:a:0?") || slices.Contains(withAudio, "-an") {
		t.Fatalf("expected optional audio map: %v", withAudio)
	}
	silent := clipArgs(ClipRequest{Source: "in.mp4", Output: "clip_0.mp4", Duration: 3, NoAudio: true})
	if slices.Contains(silent, "0:a:0?") || !slices.Contains(silent, "-an") {
		t.Fatalf("expected audio dropped: %v", silent)
	}
}

func TestConcatWritesListBesideOutput(t *testing.T) {
	dir := t.TempDir()
	var calls []capturedCall
	r := NewRunner("", "", captureRunner(&calls, nil))
	inputs := []string{filepath.Join(dir, "clip_0.mp4"), filepath.Join(dir, "it's.mp4")}
	output := filepath.Join(dir, "trailer_1.mp4")
	if err := r.Concat(context.Background(), ConcatRequest{Inputs: inputs, Output: output}); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	listPath := filepath.Join(dir, "trailer_1_concat.txt")
	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	if !strings.Contains(string(data), `it'\''s.mp4`) {
		t.Fatalf("expected escaped quote in list: %s", data)
	}
	args := calls[0].args
	if argAfter(args, "-i") != listPath || argAfter(args, "-c") != "copy" {
		t.Fatalf("unexpected concat args: %v", args)
	}
}

func TestTranscodeCapsHeight(t *testing.T) {
	args := transcodeArgs(TranscodeRequest{Source: "in.mov", Output: "out.mp4", MaxHeight: 720, CRF: 28})
	if argAfter(args, "-vf") != `scale=-2:min(720\,trunc(ih/2)*2)` {
		t.Fatalf("unexpected scale: %v", args)
	}
	if argAfter(args, "-b:a") != "128k" || argAfter(args, "-preset") != "veryfast" {
		t.Fatalf("expected audio bitrate and preset defaults: %v", args)
	}
}

func TestRunnerPropagatesErrors(t *testing.T) {
	boom := errors.New("exit status 1")
	var calls []capturedCall
	r := NewRunner("", "", captureRunner(&calls, boom))
	if err := r.RenderClip(context.Background(), ClipRequest{Source: "a", Output: "b"}); !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestProbeUsesInspector(t *testing.T) {
	r := NewRunner("", "/usr/bin/ffprobe", WithInspector(func(_ context.Context, binary, path string) (ffprobe.Result, error) {
		if binary != "/usr/bin/ffprobe" || path != "in.mp4" {
			t.Fatalf("unexpected inspect call %q %q", binary, path)
		}
		return ffprobe.Result{Format: ffprobe.Format{Duration: "5"}}, nil
	}))
	result, err := r.Probe(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.DurationSeconds() != 5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
}
