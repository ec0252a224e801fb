// Package composition turns layout directives into pixel geometry for
// the renderer. Planning is pure: source dimensions in, a
// CompositionPlan out, no I/O.
package composition

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// Layout is the axis a two-source composite is partitioned along.
type Layout string

const (
	LayoutHorizontal Layout = "horizontal"
	LayoutVertical   Layout = "vertical"
)

// aspectEpsilon is the relative tolerance under which a source is
// considered to already match its allocated rectangle, so it can be
// stretched without visible distortion or letterboxing.
const aspectEpsilon = 0.01

// frameSizes maps an output aspect ratio to the reference resolution
// rendered at that ratio. Unknown but parseable ratios derive their
// width from a 1080px-tall frame.
var frameSizes = map[string][2]int{
	"9:16": {1080, 1920},
	"16:9": {1920, 1080},
	"1:1":  {1080, 1080},
	"4:5":  {1080, 1350},
	"4:3":  {1440, 1080},
}

// RatioPreset is one catalogued output ratio and its reference resolution.
type RatioPreset struct {
	Ratio  string `json:"ratio"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RatioPresets lists the catalogued output ratios in a stable order.
func RatioPresets() []RatioPreset {
	ratios := make([]string, 0, len(frameSizes))
	for r := range frameSizes {
		ratios = append(ratios, r)
	}
	sort.Strings(ratios)
	presets := make([]RatioPreset, 0, len(ratios))
	for _, r := range ratios {
		dims := frameSizes[r]
		presets = append(presets, RatioPreset{Ratio: r, Width: dims[0], Height: dims[1]})
	}
	return presets
}

// ConversionMethods lists the fit modes PlanAspectConversion accepts.
func ConversionMethods() []types.FitMode {
	return []types.FitMode{types.FitCrop, types.FitPad, types.FitContain, types.FitStretch}
}

// Source is one input video's native dimensions.
type Source struct {
	Width  int
	Height int
}

func (s Source) aspect() float64 {
	return float64(s.Width) / float64(s.Height)
}

// SplitRequest describes a two-source split-screen composite.
type SplitRequest struct {
	Sources     []Source
	Layout      Layout
	SplitRatio  string // "1:1", "2:1", ...
	OutputRatio string // "9:16", "16:9", ...
	Audio       types.AudioSource
	Background  string
}

// ConvertRequest describes a single-source aspect-ratio conversion.
type ConvertRequest struct {
	Source      Source
	OutputRatio string
	Method      types.FitMode // pad, crop or fit; crop when empty
	Background  string
}

// parseRatio parses "W:H" with positive integer parts.
func parseRatio(ratio string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(ratio), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", errors.ErrInvalidRatio, ratio)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", errors.ErrInvalidRatio, ratio)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", errors.ErrInvalidRatio, ratio)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", errors.ErrInvalidRatio, ratio)
	}
	return w, h, nil
}

// frameSize resolves the output frame dimensions for an aspect ratio
// string. Ratios outside the reference table are normalized to a
// 1080px-tall frame.
func frameSize(outputRatio string) (int, int, error) {
	if dims, ok := frameSizes[strings.TrimSpace(outputRatio)]; ok {
		return dims[0], dims[1], nil
	}
	rw, rh, err := parseRatio(outputRatio)
	if err != nil {
		return 0, 0, err
	}
	height := 1080
	width := int(math.Round(float64(height) * float64(rw) / float64(rh)))
	if width < 2 {
		width = 2
	}
	return width, height, nil
}

// fitMode picks the placement mode for a source inside a rectangle:
// stretch when the aspects already match within epsilon, otherwise the
// caller's per-source method, otherwise crop so composites never show
// bars.
func fitMode(src Source, rect types.Rect, method types.FitMode) types.FitMode {
	srcAspect := src.aspect()
	rectAspect := float64(rect.Width) / float64(rect.Height)
	if math.Abs(srcAspect-rectAspect)/rectAspect < aspectEpsilon {
		return types.FitStretch
	}
	if method != "" {
		return method
	}
	return types.FitCrop
}

// PlanSplitScreen partitions the output frame between two sources
// along the layout axis per the split ratio. The two placements tile
// the frame exactly.
func PlanSplitScreen(req SplitRequest) (*types.CompositionPlan, error) {
	if len(req.Sources) > 2 {
		return nil, fmt.Errorf("%w: %d sources", errors.ErrUnsupportedLayout, len(req.Sources))
	}
	if len(req.Sources) != 2 {
		return nil, fmt.Errorf("%w: split-screen needs 2 sources, got %d", errors.ErrUnsupportedLayout, len(req.Sources))
	}
	for i, s := range req.Sources {
		if s.Width <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("%w: source %d has dimensions %dx%d", errors.ErrUnsupportedLayout, i, s.Width, s.Height)
		}
	}
	a, b, err := parseRatio(req.SplitRatio)
	if err != nil {
		return nil, err
	}
	frameW, frameH, err := frameSize(req.OutputRatio)
	if err != nil {
		return nil, err
	}

	var first, second types.Rect
	switch req.Layout {
	case LayoutHorizontal, "":
		w1 := int(math.Round(float64(frameW) * float64(a) / float64(a+b)))
		if w1 < 1 {
			w1 = 1
		}
		if w1 > frameW-1 {
			w1 = frameW - 1
		}
		first = types.Rect{X: 0, Y: 0, Width: w1, Height: frameH}
		second = types.Rect{X: w1, Y: 0, Width: frameW - w1, Height: frameH}
	case LayoutVertical:
		h1 := int(math.Round(float64(frameH) * float64(a) / float64(a+b)))
		if h1 < 1 {
			h1 = 1
		}
		if h1 > frameH-1 {
			h1 = frameH - 1
		}
		first = types.Rect{X: 0, Y: 0, Width: frameW, Height: h1}
		second = types.Rect{X: 0, Y: h1, Width: frameW, Height: frameH - h1}
	default:
		return nil, fmt.Errorf("%w: layout %q", errors.ErrUnsupportedLayout, req.Layout)
	}

	audio := req.Audio
	if audio == "" {
		audio = types.AudioBoth
	}
	return &types.CompositionPlan{
		FrameWidth:  frameW,
		FrameHeight: frameH,
		Placements: []types.Placement{
			{Source: 0, Frame: first, Mode: fitMode(req.Sources[0], first, "")},
			{Source: 1, Frame: second, Mode: fitMode(req.Sources[1], second, "")},
		},
		Audio:      audio,
		Background: req.Background,
	}, nil
}

// PlanAspectConversion reshapes a single source into the target aspect
// ratio using the requested method.
func PlanAspectConversion(req ConvertRequest) (*types.CompositionPlan, error) {
	if req.Source.Width <= 0 || req.Source.Height <= 0 {
		return nil, fmt.Errorf("%w: source has dimensions %dx%d", errors.ErrUnsupportedLayout, req.Source.Width, req.Source.Height)
	}
	frameW, frameH, err := frameSize(req.OutputRatio)
	if err != nil {
		return nil, err
	}
	full := types.Rect{X: 0, Y: 0, Width: frameW, Height: frameH}
	method := req.Method
	switch method {
	case "", types.FitCrop:
		method = types.FitCrop
	case types.FitPad, types.FitContain, types.FitStretch:
	default:
		return nil, fmt.Errorf("%w: method %q", errors.ErrInvalidOptions, req.Method)
	}
	return &types.CompositionPlan{
		FrameWidth:  frameW,
		FrameHeight: frameH,
		Placements: []types.Placement{
			{Source: 0, Frame: full, Mode: fitMode(req.Source, full, method)},
		},
		Audio:      types.AudioSource1,
		Background: req.Background,
	}, nil
}
