package types

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
)

func TestNormalizeAppliesFlowPreset(t *testing.T) {
	presets := DefaultPresets()
	opts := JobOptions{Duration: 30, Flow: FlowFast, Toggles: FeatureToggles{Subtitles: true, Effects: true}}

	got := opts.Normalize(presets)
	want := presets[FlowFast]
	if got.Toggles != want {
		t.Fatalf("toggles = %+v, want preset %+v", got.Toggles, want)
	}
	if got.VideoType != "short" {
		t.Fatalf("video type default = %q, want short", got.VideoType)
	}
	if got.HighlightCount != 5 {
		t.Fatalf("highlight count default = %d, want 5", got.HighlightCount)
	}
}

func TestNormalizeKeepsCustomToggles(t *testing.T) {
	opts := JobOptions{Duration: 30, Flow: FlowCustom, Toggles: FeatureToggles{Narration: true}}
	got := opts.Normalize(DefaultPresets())
	if !got.Toggles.Narration || got.Toggles.Subtitles {
		t.Fatalf("custom toggles were overwritten: %+v", got.Toggles)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	presets := DefaultPresets()
	opts := JobOptions{Duration: 60, Flow: FlowAI}
	first := opts.Normalize(presets)
	for i := 0; i < 5; i++ {
		if got := opts.Normalize(presets); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %+v, first run %+v", i, got, first)
		}
	}
}

func TestNormalizeDefaultsDuration(t *testing.T) {
	got := JobOptions{}.Normalize(DefaultPresets())
	if got.Duration != 60 {
		t.Fatalf("duration default = %d, want 60", got.Duration)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("bare options invalid after normalize: %v", err)
	}
	// An explicit negative duration is not a missing one.
	bad := JobOptions{Duration: -5}.Normalize(DefaultPresets())
	if bad.Duration != -5 {
		t.Fatalf("negative duration rewritten to %d", bad.Duration)
	}
}

func TestWithToggleReclassifiesAsCustom(t *testing.T) {
	opts := JobOptions{Duration: 30, Flow: FlowAuto}.Normalize(DefaultPresets())
	got := opts.WithToggle(func(ft *FeatureToggles) { ft.Effects = true })
	if got.Flow != FlowCustom {
		t.Fatalf("flow = %q after toggle override, want custom", got.Flow)
	}
	if !got.Toggles.Effects {
		t.Fatal("toggle override not applied")
	}
}

func TestValidateRejectsBadOptions(t *testing.T) {
	presets := DefaultPresets()
	cases := []JobOptions{
		{Duration: -5, Flow: FlowAuto},
		{Duration: 30, Flow: "turbo"},
		{Duration: 30, Flow: FlowAuto, VideoType: "documentary"},
	}
	for _, opts := range cases {
		normalized := opts.Normalize(presets)
		if err := normalized.Validate(); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
			t.Fatalf("Validate(%+v) = %v, want ErrInvalidOptions", normalized, err)
		}
	}
	good := JobOptions{Duration: 30}.Normalize(presets)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestLoadPresetTableOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	yaml := "fast:\n  add_subtitles: true\n  add_narration: false\n  remove_watermark: false\n  add_effects: false\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write presets: %v", err)
	}
	table, err := LoadPresetTable(path)
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	if !table[FlowFast].Subtitles || table[FlowFast].RemoveWatermark {
		t.Fatalf("fast preset not overridden: %+v", table[FlowFast])
	}
	// Flows the file does not mention keep their defaults.
	if table[FlowAI] != DefaultPresets()[FlowAI] {
		t.Fatalf("ai preset changed unexpectedly: %+v", table[FlowAI])
	}
}

func TestLoadPresetTableRejectsUnknownFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("turbo:\n  add_subtitles: true\n"), 0o644); err != nil {
		t.Fatalf("write presets: %v", err)
	}
	if _, err := LoadPresetTable(path); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}
