package trailer

import (
	"fmt"
	"math"

	"postroll/internal/config"
)

// Target computes the output frame size for a source of the given
// dimensions. Landscape sources always use the configured target. Portrait
// sources under fit keep their aspect within the portrait bounds; the
// result is floored to even values for the H.264 encoder.
func Target(cfg config.Trailer, width, height int) (int, int) {
	if height <= width || normalizeStrategy(cfg.AspectRatioStrategy) != config.AspectFit {
		return cfg.Width, cfg.Height
	}
	aspect := float64(width) / float64(height)
	newWidth := int(math.Floor(float64(cfg.MaxHeight) * aspect))
	if newWidth <= cfg.MaxWidth {
		return even(newWidth), even(cfg.MaxHeight)
	}
	return even(cfg.MaxWidth), even(int(math.Floor(float64(cfg.MaxWidth) / aspect)))
}

// ScaleFilter returns the ffmpeg video filter for one trailer clip. The
// same inputs always yield the same string.
func ScaleFilter(cfg config.Trailer, width, height int) string {
	w, h := Target(cfg, width, height)
	switch normalizeStrategy(cfg.AspectRatioStrategy) {
	case config.AspectCrop:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1", w, h, w, h)
	case config.AspectStretch:
		return fmt.Sprintf("scale=%d:%d,setsar=1", w, h)
	default:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1", w, h, w, h)
	}
}

func normalizeStrategy(strategy string) string {
	switch strategy {
	case config.AspectCrop, config.AspectStretch:
		return strategy
	default:
		return config.AspectFit
	}
}

func even(v int) int {
	if v < 2 {
		return 2
	}
	return v - v%2
}
