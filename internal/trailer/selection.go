package trailer

import (
	"math/rand/v2"
	"slices"

	"postroll/internal/config"
)

// SelectStarts returns clip start times in ascending order. Unknown
// strategies fall back to uniform.
func SelectStarts(strategy string, duration, clipDuration float64, clipCount int, rng *rand.Rand) []float64 {
	switch strategy {
	case config.SelectionRandom:
		return randomStarts(duration, clipDuration, clipCount, rng)
	default:
		return uniformStarts(duration, clipDuration, clipCount)
	}
}

// uniformStarts spaces clipCount starts evenly and drops any that would run
// past the end.
func uniformStarts(duration, clipDuration float64, clipCount int) []float64 {
	if clipCount <= 0 || duration <= 0 {
		return nil
	}
	step := duration / float64(clipCount)
	starts := make([]float64, 0, clipCount)
	for i := range clipCount {
		t := float64(i) * step
		if t+clipDuration > duration {
			continue
		}
		starts = append(starts, t)
	}
	return starts
}

// randomStarts draws clipCount starts from [0, duration-clipDuration]. An
// empty range selects nothing.
func randomStarts(duration, clipDuration float64, clipCount int, rng *rand.Rand) []float64 {
	span := duration - clipDuration
	if clipCount <= 0 || span < 0 {
		return nil
	}
	starts := make([]float64, clipCount)
	for i := range starts {
		if rng != nil {
			starts[i] = rng.Float64() * span
		} else {
			starts[i] = rand.Float64() * span
		}
	}
	slices.Sort(starts)
	return starts
}
