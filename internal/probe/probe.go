// Package probe extracts the duration and oriented frame size of a source
// video. Its result gates every other artifact step.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"postroll/internal/logging"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/services"
)

// Result is the shared, read-only probe output.
type Result struct {
	Duration float64
	Width    int
	Height   int
	Rotation int
	HasAudio bool
	// SizeBytes and BitRate are informational; zero when ffprobe omits them.
	SizeBytes int64
	BitRate   int64
}

// Portrait reports whether the oriented frame is taller than wide.
func (r Result) Portrait() bool {
	return r.Height > r.Width
}

// Aspect returns width divided by height.
func (r Result) Aspect() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Prober runs the media tool's probe.
type Prober struct {
	tool   ffmpeg.Tool
	logger *slog.Logger
}

// New constructs a Prober.
func New(tool ffmpeg.Tool, logger *slog.Logger) *Prober {
	return &Prober{tool: tool, logger: logging.NewComponentLogger(logger, "probe")}
}

// Probe inspects path. A missing video stream or non-positive duration,
// width, or height fails with a probe error.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	raw, err := p.tool.Probe(ctx, path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect", "media inspection failed", err)
	}
	video, ok := raw.PrimaryVideo()
	if !ok {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect", "no video stream found", nil)
	}

	duration := raw.DurationSeconds()
	if !usable(duration) {
		duration = video.DurationSeconds()
	}
	if !usable(duration) {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "parse duration",
			fmt.Sprintf("duration %q is not a positive number", raw.Format.Duration), nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "parse dimensions",
			fmt.Sprintf("invalid frame size %dx%d", video.Width, video.Height), nil)
	}

	result := Result{
		Duration:  duration,
		Width:     video.Width,
		Height:    video.Height,
		Rotation:  video.Rotation(),
		HasAudio:  raw.AudioStreamCount() > 0,
		SizeBytes: raw.SizeBytes(),
		BitRate:   raw.BitRate(),
	}
	if result.Rotation == 90 || result.Rotation == 270 {
		result.Width, result.Height = result.Height, result.Width
	}

	logging.WithContext(ctx, p.logger).Debug("probe complete",
		logging.Float64("duration_seconds", result.Duration),
		logging.Int("width", result.Width),
		logging.Int("height", result.Height),
		logging.Int("rotation", result.Rotation),
		logging.Bool("has_audio", result.HasAudio),
		logging.Int64("size_bytes", result.SizeBytes),
		logging.Int64("bit_rate", result.BitRate),
	)
	return result, nil
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
