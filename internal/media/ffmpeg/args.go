package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

var baseArgs = []string{"-y", "-hide_banner", "-loglevel", "error"}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func withBase(args ...string) []string {
	out := make([]string, 0, len(baseArgs)+len(args))
	out = append(out, baseArgs...)
	return append(out, args...)
}

func screenshotArgs(req ScreenshotRequest) []string {
	quality := req.Quality
	if quality <= 0 {
		quality = 2
	}
	return withBase(
		"-ss", seconds(req.Offset),
		"-i", req.Source,
		"-frames:v", "1",
		"-vf", fmt.Sprintf(`scale=w=min(%d\,iw):h=-2`, req.MaxWidth),
		"-q:v", strconv.Itoa(quality),
		req.Output,
	)
}

// SelectExpr builds the frame-number select expression for a sprite render.
func SelectExpr(frames []int) string {
	terms := make([]string, len(frames))
	for i, n := range frames {
		terms[i] = fmt.Sprintf(`eq(n\,%d)`, n)
	}
	return "select=" + strings.Join(terms, "+")
}

// TilesFilter is the full sprite filtergraph: frame select, letterboxed
// cell scale, and tiling.
func TilesFilter(frames []int, width, height, columns, rows int) string {
	return fmt.Sprintf("%s,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,tile=%dx%d",
		SelectExpr(frames), width, height, width, height, columns, rows)
}

func tilesArgs(req TilesRequest) []string {
	quality := req.Quality
	if quality <= 0 {
		quality = 3
	}
	return withBase(
		"-i", req.Source,
		"-vf", TilesFilter(req.Frames, req.Width, req.Height, req.Columns, req.Rows),
		"-frames:v", "1",
		"-fps_mode", "vfr",
		"-q:v", strconv.Itoa(quality),
		req.Output,
	)
}

func clipArgs(req ClipRequest) []string {
	args := withBase(
		"-ss", seconds(req.Start),
		"-i", req.Source,
		"-t", seconds(req.Duration),
		"-map", "0:v:0",
	)
	if req.NoAudio {
		args = append(args, "-an")
	} else {
		args = append(args, "-map", "0:a:0?")
	}
	if req.Filter != "" {
		args = append(args, "-vf", req.Filter)
	}
	return append(args, h264Args(req.CRF, req.Preset, "128k", req.Output)...)
}

func concatArgs(listPath, output string) []string {
	return withBase(
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	)
}

func transcodeArgs(req TranscodeRequest) []string {
	args := withBase(
		"-i", req.Source,
		"-map", "0:v:0",
		"-map", "0:a:0?",
	)
	if req.MaxHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf(`scale=-2:min(%d\,trunc(ih/2)*2)`, req.MaxHeight))
	}
	bitrate := req.AudioBitrate
	if bitrate == "" {
		bitrate = "128k"
	}
	return append(args, h264Args(req.CRF, req.Preset, bitrate, req.Output)...)
}

func h264Args(crf int, preset, audioBitrate, output string) []string {
	if preset == "" {
		preset = "veryfast"
	}
	return []string{
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		output,
	}
}
