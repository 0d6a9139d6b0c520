package ffmpeg

import (
	"context"

	"postroll/internal/media/ffprobe"
)

// Tool is the media operation surface consumed by probe, poster, storyboard,
// trailer, and rename.
type Tool interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	Screenshot(ctx context.Context, req ScreenshotRequest) error
	RenderTiles(ctx context.Context, req TilesRequest) error
	RenderClip(ctx context.Context, req ClipRequest) error
	Concat(ctx context.Context, req ConcatRequest) error
	Transcode(ctx context.Context, req TranscodeRequest) error
}

// ScreenshotRequest extracts one JPEG frame at Offset seconds.
type ScreenshotRequest struct {
	Source   string
	Output   string
	Offset   float64
	MaxWidth int
	Quality  int
}

// TilesRequest selects Frames by frame number and tiles them into one image.
type TilesRequest struct {
	Source  string
	Output  string
	Frames  []int
	Columns int
	Rows    int
	Width   int
	Height  int
	Quality int
}

// ClipRequest encodes Duration seconds starting at Start through Filter.
type ClipRequest struct {
	Source   string
	Output   string
	Start    float64
	Duration float64
	Filter   string
	CRF      int
	Preset   string
	// NoAudio drops the audio track instead of mapping the first one.
	NoAudio bool
}

// ConcatRequest joins already-encoded clips without re-encoding.
type ConcatRequest struct {
	Inputs []string
	Output string
}

// TranscodeRequest produces an H.264/AAC playback copy.
type TranscodeRequest struct {
	Source       string
	Output       string
	MaxHeight    int
	CRF          int
	Preset       string
	AudioBitrate string
}
