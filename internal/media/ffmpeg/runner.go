package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"postroll/internal/media/ffprobe"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

type inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Runner implements Tool with the ffmpeg and ffprobe binaries.
type Runner struct {
	ffmpegBinary  string
	ffprobeBinary string
	run           commandRunner
	inspect       inspector
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithCommandRunner replaces process execution (for testing).
func WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) RunnerOption {
	return func(rn *Runner) {
		if r != nil {
			rn.run = r
		}
	}
}

// WithInspector replaces the ffprobe call (for testing).
func WithInspector(fn func(ctx context.Context, binary, path string) (ffprobe.Result, error)) RunnerOption {
	return func(rn *Runner) {
		if fn != nil {
			rn.inspect = fn
		}
	}
}

// NewRunner constructs a Runner. Empty binary names fall back to PATH lookups
// of "ffmpeg" and "ffprobe".
func NewRunner(ffmpegBinary, ffprobeBinary string, opts ...RunnerOption) *Runner {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	r := &Runner{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		run:           defaultCommandRunner,
		inspect:       ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Tool = (*Runner)(nil)

// Probe runs ffprobe against path.
func (r *Runner) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return r.inspect(ctx, r.ffprobeBinary, path)
}

// Screenshot extracts a single frame.
func (r *Runner) Screenshot(ctx context.Context, req ScreenshotRequest) error {
	return r.run(ctx, r.ffmpegBinary, screenshotArgs(req)...)
}

// RenderTiles renders the sprite sheet in one pass.
func (r *Runner) RenderTiles(ctx context.Context, req TilesRequest) error {
	if len(req.Frames) == 0 {
		return errors.New("render tiles: no frames selected")
	}
	return r.run(ctx, r.ffmpegBinary, tilesArgs(req)...)
}

// RenderClip encodes one trailer clip.
func (r *Runner) RenderClip(ctx context.Context, req ClipRequest) error {
	return r.run(ctx, r.ffmpegBinary, clipArgs(req)...)
}

// Concat writes a concat demuxer list beside the output and stream-copies
// the inputs into it.
func (r *Runner) Concat(ctx context.Context, req ConcatRequest) error {
	if len(req.Inputs) == 0 {
		return errors.New("concat: no inputs")
	}
	listPath := concatListPath(req.Output)
	if err := os.WriteFile(listPath, []byte(concatList(req.Inputs)), 0o644); err != nil {
		return fmt.Errorf("concat: write list: %w", err)
	}
	return r.run(ctx, r.ffmpegBinary, concatArgs(listPath, req.Output)...)
}

// Transcode writes an H.264/AAC copy with the height capped.
func (r *Runner) Transcode(ctx context.Context, req TranscodeRequest) error {
	return r.run(ctx, r.ffmpegBinary, transcodeArgs(req)...)
}

func concatListPath(output string) string {
	base := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	return filepath.Join(filepath.Dir(output), base+"_concat.txt")
}

// concatList renders the concat demuxer input list. Single quotes inside
// paths are closed, escaped, and reopened.
func concatList(inputs []string) string {
	var b strings.Builder
	for _, input := range inputs {
		escaped := strings.ReplaceAll(input, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return b.String()
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", name, ctxErr)
		}
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
