package types

// FitMode says how a source is mapped into its allocated rectangle.
type FitMode string

const (
	// FitStretch scales without letterboxing; used when the source aspect
	// already matches the rectangle within epsilon.
	FitStretch FitMode = "stretch"
	// FitCrop scales the source up to cover the rectangle and trims the
	// excess dimension symmetrically.
	FitCrop FitMode = "crop"
	// FitPad centers the source inside the rectangle and fills the
	// remainder with the background color.
	FitPad FitMode = "pad"
	// FitContain scales the source down to be fully contained, leaving
	// uniform padding ("fit" in the API).
	FitContain FitMode = "fit"
)

// AudioSource selects which input contributes audio to a composite.
type AudioSource string

const (
	AudioBoth    AudioSource = "both"
	AudioSource1 AudioSource = "source1"
	AudioSource2 AudioSource = "source2"
	AudioNone    AudioSource = "none"
)

// Rect is a sub-rectangle of the output frame, in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Placement positions one input source within the output frame.
type Placement struct {
	Source int     `json:"source"` // index into the plan's input list
	Frame  Rect    `json:"frame"`
	Mode   FitMode `json:"mode"`
}

// CompositionPlan is the geometry handed to the renderer: the output
// frame, one placement per input source, and the audio routing, which
// the planner carries through unchanged.
type CompositionPlan struct {
	FrameWidth  int         `json:"frame_width"`
	FrameHeight int         `json:"frame_height"`
	Placements  []Placement `json:"placements"`
	Audio       AudioSource `json:"audio"`
	Background  string      `json:"background,omitempty"` // hex color for pad/fit modes
}
