package storyboard

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

// Request describes one storyboard build.
type Request struct {
	Source   string
	WorkDir  string
	VideoID  int64
	Duration float64
	Portrait bool
}

// Result holds both uploaded storyboard objects.
type Result struct {
	Sprite   artifact.Artifact
	CueIndex artifact.Artifact
}

// Builder renders sprites and cue indexes.
type Builder struct {
	cfg      config.Storyboard
	tool     ffmpeg.Tool
	uploader *artifact.Uploader
	logger   *slog.Logger
}

// New constructs a Builder.
func New(cfg config.Storyboard, tool ffmpeg.Tool, uploader *artifact.Uploader, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		tool:     tool,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "storyboard"),
	}
}

// Create renders and uploads the sprite, then builds and uploads the cue
// index pointing at it.
func (b *Builder) Create(ctx context.Context, req Request) (Result, error) {
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrFileSystem, "storyboard", "prepare workspace", req.WorkDir, err)
	}
	layout := PlanLayout(b.cfg, req.Duration, req.Portrait)
	logger := logging.WithContext(ctx, b.logger)

	sprite, err := b.buildSprite(ctx, req, layout)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("sprite uploaded",
		logging.String("key", sprite.Key),
		logging.Int("rows", layout.Rows),
		logging.Float64("interval_seconds", layout.Interval),
	)

	vtt := RenderVTT(BuildCues(layout), sprite.URL)
	cueIndex, err := b.uploader.UploadBytes(ctx, b.uploader.Name("storyboard", req.VideoID, "vtt"), []byte(vtt), artifact.ContentTypeVTT)
	if err != nil {
		return Result{}, err
	}
	logger.Info("storyboard uploaded",
		logging.String("sprite_key", sprite.Key),
		logging.String("cue_index_key", cueIndex.Key),
		logging.Int("cues", layout.Thumbnails),
	)
	return Result{Sprite: sprite, CueIndex: cueIndex}, nil
}

func (b *Builder) buildSprite(ctx context.Context, req Request, layout Layout) (artifact.Artifact, error) {
	name := b.uploader.Name("storyboard", req.VideoID, "jpg")
	output := filepath.Join(req.WorkDir, name)
	if err := b.tool.RenderTiles(ctx, ffmpeg.TilesRequest{
		Source:  req.Source,
		Output:  output,
		Frames:  layout.FrameNumbers(b.cfg.NominalFrameRate),
		Columns: layout.Columns,
		Rows:    layout.Rows,
		Width:   layout.CellWidth,
		Height:  layout.CellHeight,
		Quality: b.cfg.Quality,
	}); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "storyboard", "render sprite",
			fmt.Sprintf("%d thumbnails in %dx%d grid", layout.Thumbnails, layout.Columns, layout.Rows), err)
	}
	data, err := artifact.ReadOutput("storyboard", output)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return b.uploader.UploadBytes(ctx, name, data, artifact.ContentTypeJPEG)
}
