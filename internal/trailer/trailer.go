// Package trailer cuts short clips out of a source video, normalizes them to
// one frame size, and stream-copies them into a single preview file.
package trailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"postroll/internal/artifact"
	"postroll/internal/config"
	"postroll/internal/logging"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/services"
)

// ErrNoClips reports that the source is too short for any clip.
var ErrNoClips = errors.New("no clips selected")

// Request describes one trailer build.
type Request struct {
	Source   string
	WorkDir  string
	VideoID  int64
	Duration float64
	Width    int
	Height   int
	// NoAudio renders silent clips for sources without an audio stream.
	NoAudio bool
}

// Builder renders trailers.
type Builder struct {
	cfg      config.Trailer
	tool     ffmpeg.Tool
	uploader *artifact.Uploader
	logger   *slog.Logger
	rng      *rand.Rand
}

// New constructs a Builder.
func New(cfg config.Trailer, tool ffmpeg.Tool, uploader *artifact.Uploader, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		tool:     tool,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "trailer"),
	}
}

// WithRand fixes the random source used by the random strategy (for testing).
func (b *Builder) WithRand(rng *rand.Rand) {
	b.rng = rng
}

// Create encodes every selected clip in start order, concatenates them, and
// uploads the result. Any clip failure aborts without a partial trailer.
func (b *Builder) Create(ctx context.Context, req Request) (artifact.Artifact, error) {
	starts := SelectStarts(b.cfg.SelectionStrategy, req.Duration, b.cfg.ClipDuration, b.cfg.ClipCount, b.rng)
	if len(starts) == 0 {
		return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "trailer", "select clips",
			fmt.Sprintf("%.3fs source is shorter than a %.3fs clip", req.Duration, b.cfg.ClipDuration), ErrNoClips)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFileSystem, "trailer", "prepare workspace", req.WorkDir, err)
	}

	filter := ScaleFilter(b.cfg, req.Width, req.Height)
	clips := make([]string, 0, len(starts))
	for i, start := range starts {
		clip := filepath.Join(req.WorkDir, fmt.Sprintf("clip_%d.mp4", i))
		if err := b.tool.RenderClip(ctx, ffmpeg.ClipRequest{
			Source:   req.Source,
			Output:   clip,
			Start:    start,
			Duration: b.cfg.ClipDuration,
			Filter:   filter,
			CRF:      b.cfg.CRF,
			Preset:   b.cfg.Preset,
			NoAudio:  req.NoAudio,
		}); err != nil {
			return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "trailer", "render clip",
				fmt.Sprintf("clip %d at %.3fs", i, start), err)
		}
		clips = append(clips, clip)
	}

	output := filepath.Join(req.WorkDir, fmt.Sprintf("trailer_%d.mp4", req.VideoID))
	if err := b.tool.Concat(ctx, ffmpeg.ConcatRequest{Inputs: clips, Output: output}); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "trailer", "concat",
			fmt.Sprintf("%d clips", len(clips)), err)
	}

	uploaded, err := b.uploader.UploadFile(ctx, b.uploader.Name("trailer", req.VideoID, "mp4"), output, artifact.ContentTypeMP4)
	if err != nil {
		return artifact.Artifact{}, err
	}
	logging.WithContext(ctx, b.logger).Info("trailer uploaded",
		logging.String("key", uploaded.Key),
		logging.Int("clips", len(clips)),
		logging.String("filter", filter),
	)
	return uploaded, nil
}
