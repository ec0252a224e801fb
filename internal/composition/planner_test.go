package composition

import (
	stderrors "errors"
	"testing"

	"github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/types"
)

func TestPlanSplitScreenHorizontalEvenSplit(t *testing.T) {
	plan, err := PlanSplitScreen(SplitRequest{
		Sources:     []Source{{1920, 1080}, {1920, 1080}},
		Layout:      LayoutHorizontal,
		SplitRatio:  "1:1",
		OutputRatio: "9:16",
		Audio:       types.AudioBoth,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.FrameWidth != 1080 || plan.FrameHeight != 1920 {
		t.Fatalf("frame = %dx%d, want 1080x1920", plan.FrameWidth, plan.FrameHeight)
	}
	if len(plan.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(plan.Placements))
	}
	for i, p := range plan.Placements {
		if p.Frame.Width != 540 || p.Frame.Height != 1920 {
			t.Fatalf("placement %d rect = %dx%d, want 540x1920", i, p.Frame.Width, p.Frame.Height)
		}
		if p.Mode != types.FitCrop {
			t.Fatalf("placement %d mode = %q, want crop", i, p.Mode)
		}
	}
	if plan.Placements[0].Frame.X != 0 || plan.Placements[1].Frame.X != 540 {
		t.Fatalf("placements do not tile: x0=%d x1=%d", plan.Placements[0].Frame.X, plan.Placements[1].Frame.X)
	}
}

func TestPlanSplitScreenTilesFrameExactly(t *testing.T) {
	ratios := []string{"1:1", "2:1", "1:2", "3:2", "7:3"}
	outputs := []string{"9:16", "16:9", "1:1", "4:5", "4:3", "21:9"}
	layouts := []Layout{LayoutHorizontal, LayoutVertical}
	for _, sr := range ratios {
		for _, out := range outputs {
			for _, layout := range layouts {
				plan, err := PlanSplitScreen(SplitRequest{
					Sources:     []Source{{1280, 720}, {1080, 1920}},
					Layout:      layout,
					SplitRatio:  sr,
					OutputRatio: out,
				})
				if err != nil {
					t.Fatalf("plan %s/%s/%s: %v", sr, out, layout, err)
				}
				a, b := plan.Placements[0].Frame, plan.Placements[1].Frame
				if a.Width <= 0 || a.Height <= 0 || b.Width <= 0 || b.Height <= 0 {
					t.Fatalf("%s/%s/%s: non-positive rect %+v %+v", sr, out, layout, a, b)
				}
				switch layout {
				case LayoutHorizontal:
					if a.Width+b.Width != plan.FrameWidth || a.Height != plan.FrameHeight || b.Height != plan.FrameHeight {
						t.Fatalf("%s/%s: rects %+v %+v do not tile %dx%d", sr, out, a, b, plan.FrameWidth, plan.FrameHeight)
					}
					if b.X != a.Width {
						t.Fatalf("%s/%s: gap or overlap at x=%d, first width %d", sr, out, b.X, a.Width)
					}
				case LayoutVertical:
					if a.Height+b.Height != plan.FrameHeight || a.Width != plan.FrameWidth || b.Width != plan.FrameWidth {
						t.Fatalf("%s/%s: rects %+v %+v do not tile %dx%d", sr, out, a, b, plan.FrameWidth, plan.FrameHeight)
					}
					if b.Y != a.Height {
						t.Fatalf("%s/%s: gap or overlap at y=%d, first height %d", sr, out, b.Y, a.Height)
					}
				}
			}
		}
	}
}

func TestPlanSplitScreenStretchWhenAspectMatches(t *testing.T) {
	// A 540x1920 source exactly matches its half of a 9:16 frame.
	plan, err := PlanSplitScreen(SplitRequest{
		Sources:     []Source{{540, 1920}, {1920, 1080}},
		Layout:      LayoutHorizontal,
		SplitRatio:  "1:1",
		OutputRatio: "9:16",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Placements[0].Mode != types.FitStretch {
		t.Fatalf("matching source mode = %q, want stretch", plan.Placements[0].Mode)
	}
	if plan.Placements[1].Mode != types.FitCrop {
		t.Fatalf("mismatched source mode = %q, want crop", plan.Placements[1].Mode)
	}
}

func TestPlanSplitScreenDefaultsAudioToBoth(t *testing.T) {
	plan, err := PlanSplitScreen(SplitRequest{
		Sources:     []Source{{1920, 1080}, {1920, 1080}},
		Layout:      LayoutVertical,
		SplitRatio:  "1:1",
		OutputRatio: "9:16",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Audio != types.AudioBoth {
		t.Fatalf("audio = %q, want both", plan.Audio)
	}
}

func TestPlanSplitScreenInvalidRatio(t *testing.T) {
	bad := []string{"", "1", "1:0", "0:2", "-1:2", "a:b", "1:2:3"}
	for _, ratio := range bad {
		_, err := PlanSplitScreen(SplitRequest{
			Sources:     []Source{{1920, 1080}, {1920, 1080}},
			Layout:      LayoutHorizontal,
			SplitRatio:  ratio,
			OutputRatio: "9:16",
		})
		if !stderrors.Is(err, errors.ErrInvalidRatio) {
			t.Fatalf("splitRatio %q: err = %v, want ErrInvalidRatio", ratio, err)
		}
	}
	_, err := PlanSplitScreen(SplitRequest{
		Sources:     []Source{{1920, 1080}, {1920, 1080}},
		Layout:      LayoutHorizontal,
		SplitRatio:  "1:1",
		OutputRatio: "wide",
	})
	if !stderrors.Is(err, errors.ErrInvalidRatio) {
		t.Fatalf("outputRatio: err = %v, want ErrInvalidRatio", err)
	}
}

func TestPlanSplitScreenRejectsWrongSourceCount(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4} {
		sources := make([]Source, n)
		for i := range sources {
			sources[i] = Source{1920, 1080}
		}
		_, err := PlanSplitScreen(SplitRequest{
			Sources:     sources,
			Layout:      LayoutHorizontal,
			SplitRatio:  "1:1",
			OutputRatio: "16:9",
		})
		if !stderrors.Is(err, errors.ErrUnsupportedLayout) {
			t.Fatalf("%d sources: err = %v, want ErrUnsupportedLayout", n, err)
		}
	}
}

func TestPlanSplitScreenRejectsUnknownLayout(t *testing.T) {
	_, err := PlanSplitScreen(SplitRequest{
		Sources:     []Source{{1920, 1080}, {1920, 1080}},
		Layout:      "diagonal",
		SplitRatio:  "1:1",
		OutputRatio: "16:9",
	})
	if !stderrors.Is(err, errors.ErrUnsupportedLayout) {
		t.Fatalf("err = %v, want ErrUnsupportedLayout", err)
	}
}

func TestPlanAspectConversionMethods(t *testing.T) {
	cases := []struct {
		method types.FitMode
		want   types.FitMode
	}{
		{types.FitPad, types.FitPad},
		{types.FitCrop, types.FitCrop},
		{types.FitContain, types.FitContain},
		{"", types.FitCrop},
	}
	for _, tc := range cases {
		plan, err := PlanAspectConversion(ConvertRequest{
			Source:      Source{1920, 1080},
			OutputRatio: "9:16",
			Method:      tc.method,
			Background:  "#000000",
		})
		if err != nil {
			t.Fatalf("method %q: %v", tc.method, err)
		}
		if plan.FrameWidth != 1080 || plan.FrameHeight != 1920 {
			t.Fatalf("frame = %dx%d, want 1080x1920", plan.FrameWidth, plan.FrameHeight)
		}
		p := plan.Placements[0]
		if p.Frame != (types.Rect{X: 0, Y: 0, Width: 1080, Height: 1920}) {
			t.Fatalf("method %q: rect = %+v", tc.method, p.Frame)
		}
		if p.Mode != tc.want {
			t.Fatalf("method %q: mode = %q, want %q", tc.method, p.Mode, tc.want)
		}
	}
}

func TestPlanAspectConversionStretchWhenAlreadyMatching(t *testing.T) {
	plan, err := PlanAspectConversion(ConvertRequest{
		Source:      Source{1080, 1920},
		OutputRatio: "9:16",
		Method:      types.FitPad,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Placements[0].Mode != types.FitStretch {
		t.Fatalf("mode = %q, want stretch", plan.Placements[0].Mode)
	}
}

func TestPlanAspectConversionDerivedFrameForUnknownRatio(t *testing.T) {
	plan, err := PlanAspectConversion(ConvertRequest{
		Source:      Source{1920, 1080},
		OutputRatio: "2:1",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.FrameWidth != 2160 || plan.FrameHeight != 1080 {
		t.Fatalf("frame = %dx%d, want 2160x1080", plan.FrameWidth, plan.FrameHeight)
	}
}

func TestPlanAspectConversionRejectsUnknownMethod(t *testing.T) {
	_, err := PlanAspectConversion(ConvertRequest{
		Source:      Source{1920, 1080},
		OutputRatio: "9:16",
		Method:      "tile",
	})
	if !stderrors.Is(err, errors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestRatioPresetsCatalogue(t *testing.T) {
	presets := RatioPresets()
	if len(presets) != len(frameSizes) {
		t.Fatalf("got %d presets, want %d", len(presets), len(frameSizes))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1].Ratio >= presets[i].Ratio {
			t.Fatalf("presets not sorted: %q before %q", presets[i-1].Ratio, presets[i].Ratio)
		}
	}
	for _, p := range presets {
		dims, ok := frameSizes[p.Ratio]
		if !ok {
			t.Fatalf("unknown ratio %q in catalogue", p.Ratio)
		}
		if p.Width != dims[0] || p.Height != dims[1] {
			t.Fatalf("%s: got %dx%d, want %dx%d", p.Ratio, p.Width, p.Height, dims[0], dims[1])
		}
	}
}
