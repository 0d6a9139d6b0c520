// Package rename produces the canonical playback copy of an upload under a
// deterministic name, optionally transcoding it to H.264/AAC first.
package rename

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"postroll/internal/artifact"
	"postroll/internal/blobstore"
	"postroll/internal/config"
	"postroll/internal/logging"
	"postroll/internal/media/ffmpeg"
	"postroll/internal/services"
)

// Request describes one canonical copy.
type Request struct {
	Source    string
	SourceKey string
	WorkDir   string
	VideoID   int64
}

// Renamer writes canonical copies.
type Renamer struct {
	cfg      config.Rename
	tool     ffmpeg.Tool
	uploader *artifact.Uploader
	logger   *slog.Logger
}

// New constructs a Renamer.
func New(cfg config.Rename, tool ffmpeg.Tool, uploader *artifact.Uploader, logger *slog.Logger) *Renamer {
	return &Renamer{
		cfg:      cfg,
		tool:     tool,
		uploader: uploader,
		logger:   logging.NewComponentLogger(logger, "rename"),
	}
}

// Create stores the canonical copy as video_{id}_{ts}.mp4. Without
// compression the source blob is copied server-side when the store allows
// it, and re-uploaded from the local file otherwise.
func (r *Renamer) Create(ctx context.Context, req Request) (artifact.Artifact, error) {
	name := r.uploader.Name("video", req.VideoID, "mp4")
	logger := logging.WithContext(ctx, r.logger)

	var (
		result artifact.Artifact
		err    error
		mode   string
	)
	switch {
	case r.cfg.Compress:
		mode = "transcode"
		result, err = r.transcode(ctx, req, name)
	default:
		if copier, ok := r.uploader.Store().(blobstore.Copier); ok && req.SourceKey != "" {
			mode = "copy"
			result, err = r.copy(ctx, copier, req.SourceKey, name)
		} else {
			mode = "upload"
			result, err = r.uploader.UploadFile(ctx, name, req.Source, artifact.ContentTypeMP4)
		}
	}
	if err != nil {
		if errors.Is(err, services.ErrUpload) {
			return artifact.Artifact{}, services.Wrap(services.ErrRename, "rename", mode, "canonical copy not stored", err)
		}
		return artifact.Artifact{}, err
	}
	logger.Info("canonical copy stored",
		logging.String("key", result.Key),
		logging.String("mode", mode),
	)
	return result, nil
}

func (r *Renamer) copy(ctx context.Context, copier blobstore.Copier, sourceKey, name string) (artifact.Artifact, error) {
	key := r.uploader.Key(name)
	if err := copier.Copy(ctx, sourceKey, key); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrUpload, "rename", "copy", fmt.Sprintf("%s -> %s", sourceKey, key), err)
	}
	return artifact.Artifact{Key: key, URL: r.uploader.URL(key)}, nil
}

func (r *Renamer) transcode(ctx context.Context, req Request, name string) (artifact.Artifact, error) {
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFileSystem, "rename", "prepare workspace", req.WorkDir, err)
	}
	output := filepath.Join(req.WorkDir, fmt.Sprintf("video_%d.mp4", req.VideoID))
	if err := r.tool.Transcode(ctx, ffmpeg.TranscodeRequest{
		Source:       req.Source,
		Output:       output,
		MaxHeight:    r.cfg.MaxHeight,
		CRF:          r.cfg.CRF,
		Preset:       r.cfg.Preset,
		AudioBitrate: r.cfg.AudioBitrate,
	}); err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrFfmpeg, "rename", "transcode", "h264/aac playback copy", err)
	}
	return r.uploader.UploadFile(ctx, name, output, artifact.ContentTypeMP4)
}
