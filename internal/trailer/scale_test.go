package trailer

import (
	"testing"

	"postroll/internal/config"
)

func trailerConfig(strategy string) config.Trailer {
	cfg := config.Default().Trailer
	cfg.AspectRatioStrategy = strategy
	return cfg
}

func TestLandscapeUsesConfiguredTarget(t *testing.T) {
	for _, strategy := range []string{config.AspectFit, config.AspectCrop, config.AspectStretch, "zoom"} {
		for _, dims := range [][2]int{{1920, 1080}, {640, 480}, {4096, 1716}, {1000, 1000}} {
			w, h := Target(trailerConfig(strategy), dims[0], dims[1])
			if w != 1280 || h != 720 {
				t.Fatalf("%s %v: expected 1280x720, got %dx%d", strategy, dims, w, h)
			}
		}
	}
}

func TestPortraitFitTarget(t *testing.T) {
	cfg := trailerConfig(config.AspectFit)
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		// 1280 * 9/16 = 720 fits max width exactly.
		{"phone 9:16", 1080, 1920, 720, 1280},
		// 1280 * 3/4 = 960 exceeds 720; width-constrained 720/0.75 = 960.
		{"tablet 3:4", 1536, 2048, 720, 960},
		// 1280 * 0.5 = 640 stays height-constrained.
		{"tall 1:2", 500, 1000, 640, 1280},
		// 1280 * 607/1080 = 719.4 floors to 719 then to even 718.
		{"odd width", 607, 1080, 718, 1280},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Target(cfg, tt.width, tt.height)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestScaleFilterModes(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
	}{
		{config.AspectFit, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1"},
		{config.AspectCrop, "scale=1280:720:force_original_aspect_ratio=increase,crop=1280:720,setsar=1"},
		{config.AspectStretch, "scale=1280:720,setsar=1"},
		{"unknown", "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1"},
	}
	for _, tt := range tests {
		cfg := trailerConfig(tt.strategy)
		first := ScaleFilter(cfg, 1920, 1080)
		second := ScaleFilter(cfg, 1920, 1080)
		if first != second {
			t.Fatalf("%s: filter not stable: %q vs %q", tt.strategy, first, second)
		}
		if first != tt.want {
			t.Fatalf("%s: got %q want %q", tt.strategy, first, tt.want)
		}
	}
}

func TestPortraitFitFilter(t *testing.T) {
	got := ScaleFilter(trailerConfig(config.AspectFit), 1080, 1920)
	want := "scale=720:1280:force_original_aspect_ratio=decrease,pad=720:1280:(ow-iw)/2:(oh-ih)/2,setsar=1"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
