package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"postroll/internal/media/ffmpeg"
	"postroll/internal/media/ffprobe"
)

// FakeMediaTool implements ffmpeg.Tool without external processes. Each
// render writes a small placeholder file to the requested output.
type FakeMediaTool struct {
	mu sync.Mutex

	ProbeResult ffprobe.Result
	ProbeErr    error

	// Fail maps an operation name (screenshot, tiles, clip, concat,
	// transcode) to the error it should return.
	Fail map[string]error
	// SkipOutput suppresses writing output files for the named operations.
	SkipOutput map[string]bool
	// Block makes the named operations wait until their context ends.
	Block map[string]bool

	Screenshots []ffmpeg.ScreenshotRequest
	Tiles       []ffmpeg.TilesRequest
	Clips       []ffmpeg.ClipRequest
	Concats     []ffmpeg.ConcatRequest
	Transcodes  []ffmpeg.TranscodeRequest
}

var _ ffmpeg.Tool = (*FakeMediaTool)(nil)

// NewFakeMediaTool returns a fake whose probe reports a landscape video.
func NewFakeMediaTool(duration float64, width, height int) *FakeMediaTool {
	return &FakeMediaTool{
		ProbeResult: ffprobe.Result{
			Streams: []ffprobe.Stream{{Index: 0, CodecType: "video", Width: width, Height: height}},
			Format:  ffprobe.Format{Duration: fmt.Sprintf("%.3f", duration)},
		},
		Fail:       make(map[string]error),
		SkipOutput: make(map[string]bool),
		Block:      make(map[string]bool),
	}
}

// Probe implements ffmpeg.Tool.
func (f *FakeMediaTool) Probe(_ context.Context, _ string) (ffprobe.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ProbeResult, f.ProbeErr
}

// Screenshot implements ffmpeg.Tool.
func (f *FakeMediaTool) Screenshot(ctx context.Context, req ffmpeg.ScreenshotRequest) error {
	f.mu.Lock()
	f.Screenshots = append(f.Screenshots, req)
	f.mu.Unlock()
	return f.finish(ctx, "screenshot", req.Output)
}

// RenderTiles implements ffmpeg.Tool.
func (f *FakeMediaTool) RenderTiles(ctx context.Context, req ffmpeg.TilesRequest) error {
	f.mu.Lock()
	f.Tiles = append(f.Tiles, req)
	f.mu.Unlock()
	return f.finish(ctx, "tiles", req.Output)
}

// RenderClip implements ffmpeg.Tool.
func (f *FakeMediaTool) RenderClip(ctx context.Context, req ffmpeg.ClipRequest) error {
	f.mu.Lock()
	f.Clips = append(f.Clips, req)
	f.mu.Unlock()
	return f.finish(ctx, "clip", req.Output)
}

// Concat implements ffmpeg.Tool.
func (f *FakeMediaTool) Concat(ctx context.Context, req ffmpeg.ConcatRequest) error {
	f.mu.Lock()
	f.Concats = append(f.Concats, req)
	f.mu.Unlock()
	return f.finish(ctx, "concat", req.Output)
}

// Transcode implements ffmpeg.Tool.
func (f *FakeMediaTool) Transcode(ctx context.Context, req ffmpeg.TranscodeRequest) error {
	f.mu.Lock()
	f.Transcodes = append(f.Transcodes, req)
	f.mu.Unlock()
	return f.finish(ctx, "transcode", req.Output)
}

func (f *FakeMediaTool) finish(ctx context.Context, op, output string) error {
	f.mu.Lock()
	err := f.Fail[op]
	skip := f.SkipOutput[op]
	block := f.Block[op]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(output, []byte(op+" output"), 0o644)
}
