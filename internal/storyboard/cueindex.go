package storyboard

import (
	"fmt"
	"math"
	"strings"
)

// Cue is one entry of the scrubbing index. Times are in milliseconds so that
// adjacent cues share an exact boundary.
type Cue struct {
	StartMillis int64
	EndMillis   int64
	X, Y, W, H  int
}

// BuildCues returns one cue per thumbnail. Boundaries are computed once and
// shared, so cue i ends exactly where cue i+1 starts; the last cue ends at
// the duration.
func BuildCues(layout Layout) []Cue {
	durationMillis := toMillis(layout.Duration)
	cues := make([]Cue, layout.Thumbnails)
	for i := range cues {
		start := min(toMillis(float64(i)*layout.Interval), durationMillis)
		end := durationMillis
		if i+1 < layout.Thumbnails {
			end = min(toMillis(float64(i+1)*layout.Interval), durationMillis)
		}
		x, y, w, h := layout.Cell(i)
		cues[i] = Cue{StartMillis: start, EndMillis: end, X: x, Y: y, W: w, H: h}
	}
	return cues
}

// RenderVTT formats cues as WebVTT referencing regions of spriteURL.
func RenderVTT(cues []Cue, spriteURL string) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(cue.StartMillis), FormatTimestamp(cue.EndMillis))
		fmt.Fprintf(&b, "%s#xywh=%d,%d,%d,%d\n\n", spriteURL, cue.X, cue.Y, cue.W, cue.H)
	}
	return b.String()
}

// FormatTimestamp renders milliseconds as zero-padded HH:MM:SS.mmm.
func FormatTimestamp(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	hours := millis / 3_600_000
	minutes := (millis / 60_000) % 60
	seconds := (millis / 1000) % 60
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

func toMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
