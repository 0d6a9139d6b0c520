// Package poster renders the single representative frame shown before
// playback starts.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"postroll/internal/artifact"
	"postroll/internal/config"
	"postroll/internal/logging"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/services"
)

// Request describes one poster render.
type Request struct {
	Source   string
	WorkDir  string
	VideoID  int64
	Duration float64
}

// Generator extracts and uploads posters.
type Generator struct {
	cfg      config.Poster
	tool     ffmpeg.Tool
	uploader *artifact.Uploader
	logger   *slog.Logger
}

// New constructs a Generator.
func New(cfg config.Poster, tool ffmpeg.Tool, uploader *artifact.Uploader, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:      cfg,
		tool:     tool,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "poster"),
	}
}

// Offset returns the capture point for a video of the given duration.
func (g *Generator) Offset(duration float64) float64 {
	return duration * g.cfg.OffsetRatio
}

// Create renders the poster into req.WorkDir and uploads it as JPEG.
func (g *Generator) Create(ctx context.Context, req Request) (artifact.Artifact, error) {
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFileSystem, "poster", "prepare workspace", req.WorkDir, err)
	}
	output := filepath.Join(req.WorkDir, fmt.Sprintf("poster_%d.jpg", req.VideoID))
	offset := g.Offset(req.Duration)

	if err := g.tool.Screenshot(ctx, ffmpeg.ScreenshotRequest{
		Source:   req.Source,
		Output:   output,
		Offset:   offset,
		MaxWidth: g.cfg.MaxWidth,
		Quality:  g.cfg.Quality,
	}); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "poster", "screenshot", fmt.Sprintf("frame at %.3fs", offset), err)
	}

	data, err := artifact.ReadOutput("poster", output)
	if err != nil {
		return artifact.Artifact{}, err
	}
	uploaded, err := g.uploader.UploadBytes(ctx, g.uploader.Name("poster", req.VideoID, "jpg"), data, artifact.ContentTypeJPEG)
	if err != nil {
		return artifact.Artifact{}, err
	}
	logging.WithContext(ctx, g.logger).Info("poster uploaded",
		logging.String("key", uploaded.Key),
		logging.Float64("offset_seconds", offset),
	)
	return uploaded, nil
}
