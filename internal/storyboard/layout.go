package storyboard

import (
	"math"

	"postroll/internal/config"
)

// Layout is the sprite geometry and sampling plan for one video.
type Layout struct {
	Thumbnails int
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
	Interval   float64
	Duration   float64
}

// PlanLayout derives the layout for a video. Portrait sources swap the
// configured cell width and height.
func PlanLayout(cfg config.Storyboard, duration float64, portrait bool) Layout {
	thumbs := max(cfg.Thumbnails, 1)
	cols := max(cfg.Columns, 1)
	w, h := cfg.ThumbWidth, cfg.ThumbHeight
	if portrait {
		w, h = h, w
	}
	return Layout{
		Thumbnails: thumbs,
		Columns:    cols,
		Rows:       (thumbs + cols - 1) / cols,
		CellWidth:  w,
		CellHeight: h,
		Interval:   duration / float64(thumbs),
		Duration:   duration,
	}
}

// FrameNumbers approximates each sample time as a frame index at the
// nominal rate. Very short sources may produce repeated indices.
func (l Layout) FrameNumbers(nominalRate float64) []int {
	frames := make([]int, l.Thumbnails)
	for i := range frames {
		frames[i] = int(math.Floor(float64(i) * l.Interval * nominalRate))
	}
	return frames
}

// Cell returns the pixel rectangle of thumbnail i.
func (l Layout) Cell(i int) (x, y, w, h int) {
	row := i / l.Columns
	col := i % l.Columns
	return col * l.CellWidth, row * l.CellHeight, l.CellWidth, l.CellHeight
}
