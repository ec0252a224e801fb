package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
)

type ProcessingFlow string

const (
	FlowAuto   ProcessingFlow = "auto"
	FlowFast   ProcessingFlow = "fast"
	FlowAI     ProcessingFlow = "ai"
	FlowFull   ProcessingFlow = "full"
	FlowCustom ProcessingFlow = "custom"
)

var knownFlows = map[ProcessingFlow]bool{
	FlowAuto: true, FlowFast: true, FlowAI: true, FlowFull: true, FlowCustom: true,
}

var knownVideoTypes = map[string]bool{
	"short": true, "highlight": true, "viral": true, "meme": true, "full": true, "reel": true,
}

// FeatureToggles are the boolean editing switches a processing flow
// expands to.
type FeatureToggles struct {
	Subtitles       bool `json:"add_subtitles" yaml:"add_subtitles"`
	Narration       bool `json:"add_narration" yaml:"add_narration"`
	RemoveWatermark bool `json:"remove_watermark" yaml:"remove_watermark"`
	Effects         bool `json:"add_effects" yaml:"add_effects"`
}

// PresetTable maps each non-custom flow to the toggle set it expands to.
type PresetTable map[ProcessingFlow]FeatureToggles

// DefaultPresets mirrors the flows the dashboard offers: auto optimizes
// for the platform, fast skips AI work, ai and full enable progressively
// more of it.
func DefaultPresets() PresetTable {
	return PresetTable{
		FlowAuto: {Subtitles: true, Narration: true, RemoveWatermark: true, Effects: false},
		FlowFast: {Subtitles: false, Narration: false, RemoveWatermark: true, Effects: false},
		FlowAI:   {Subtitles: true, Narration: true, RemoveWatermark: true, Effects: true},
		FlowFull: {Subtitles: true, Narration: true, RemoveWatermark: true, Effects: true},
	}
}

// LoadPresetTable reads a YAML preset table, falling back to the compiled
// defaults for flows the file does not mention.
func LoadPresetTable(path string) (PresetTable, error) {
	table := DefaultPresets()
	if path == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset table: %w", err)
	}
	var loaded map[ProcessingFlow]FeatureToggles
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse preset table: %w", err)
	}
	for flow, toggles := range loaded {
		if flow == FlowCustom || !knownFlows[flow] {
			return nil, fmt.Errorf("preset table: %w: flow %q", apperrors.ErrInvalidOptions, flow)
		}
		table[flow] = toggles
	}
	return table, nil
}

// JobOptions is the full editing directive set for one job. Toggles are
// meaningful only after Normalize has applied the flow preset.
type JobOptions struct {
	TargetPlatform string         `json:"target_platform"`
	VideoType      string         `json:"video_type"`
	Duration       int            `json:"duration"`
	Toggles        FeatureToggles `json:"toggles"`
	Flow           ProcessingFlow `json:"processing_flow"`

	// Free-form processing options: separate_audio, diarization, ocr,
	// auto_reup, publish_public.
	Processing map[string]bool `json:"processing_options,omitempty"`

	TTSVoice       string `json:"tts_voice,omitempty"`
	NarrationStyle string `json:"narration_style,omitempty"`
	HighlightCount int    `json:"num_highlights,omitempty"`
	BackgroundHex  string `json:"bg_color,omitempty"`
}

// Normalize applies the flow preset: choosing a non-custom flow
// deterministically overwrites the toggle set from the table. It is a
// pure function; the receiver is not mutated.
func (o JobOptions) Normalize(presets PresetTable) JobOptions {
	if o.Flow == "" {
		o.Flow = FlowAuto
	}
	if o.VideoType == "" {
		o.VideoType = "short"
	}
	if o.Duration == 0 {
		o.Duration = 60
	}
	if o.HighlightCount <= 0 {
		o.HighlightCount = 5
	}
	if o.Flow != FlowCustom {
		if toggles, ok := presets[o.Flow]; ok {
			o.Toggles = toggles
		}
	}
	return o
}

// WithToggle returns a copy with one toggle switched. Overriding any
// individual toggle reclassifies the options as a custom flow.
func (o JobOptions) WithToggle(apply func(*FeatureToggles)) JobOptions {
	apply(&o.Toggles)
	o.Flow = FlowCustom
	return o
}

// Validate rejects directives the pipeline cannot honor. It assumes
// Normalize has already run.
func (o JobOptions) Validate() error {
	if o.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", apperrors.ErrInvalidOptions, o.Duration)
	}
	if !knownFlows[o.Flow] {
		return fmt.Errorf("%w: unknown processing flow %q", apperrors.ErrInvalidOptions, o.Flow)
	}
	if !knownVideoTypes[o.VideoType] {
		return fmt.Errorf("%w: unknown video type %q", apperrors.ErrInvalidOptions, o.VideoType)
	}
	return nil
}
