// Package ffmpeg is the narrow media toolchain boundary used by the
// artifact components.
//
// Tool describes the six operations the pipeline needs (probe, single-frame
// screenshot, tiled sprite render, clip render, stream-copy concat, and a
// playback transcode). Runner implements Tool by shelling out to the ffmpeg
// and ffprobe binaries; tests substitute a fake Tool or inject a command
// runner to capture argument vectors.
package ffmpeg
