// Package media holds the collaborator boundary of the job engine:
// downloading sources, analyzing them, synthesizing narration and
// rendering outputs. Everything behind these interfaces does real I/O;
// the engine only sees handles and errors.
package media

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/clipforge/clipforge-backend/internal/types"
)

// Handle points at a media file the engine can hand to the next stage.
type Handle struct {
	Path     string  `json:"path"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Analysis is what the analyzer produces for one downloaded source.
type Analysis struct {
	Summary        string          `json:"summary"`
	Category       string          `json:"category,omitempty"`
	Mood           string          `json:"mood,omitempty"`
	Score          float64         `json:"score"`
	Segments       []types.Segment `json:"segments,omitempty"`
	CopyrightRisks []string        `json:"copyright_risks,omitempty"`
	Transcript     string          `json:"transcript,omitempty"`
}

// StageError wraps a collaborator failure with a retryability verdict.
// Retryable failures are retried by the executor; permanent ones fail
// the job on the first attempt.
type StageError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *StageError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Retryable reports whether err should be retried. Errors that are not
// StageError are treated as retryable, matching how flaky external
// tools usually fail.
func Retryable(err error) bool {
	var se *StageError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return true
}

// Downloader fetches a source reference onto local disk.
type Downloader interface {
	Download(ctx context.Context, sourceRef string, destDir string) (*Handle, error)
}

// Analyzer inspects a downloaded source and scores it. Style biases
// the scoring ("engaging", "informative", "dramatic", "funny"); empty
// leaves it to the analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, src *Handle, style string) (*Analysis, error)
}

// SpeechSynthesizer turns narration text into an audio handle.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Handle, error)
}

// Renderer executes the media transforms the process stage plans.
type Renderer interface {
	// Trim cuts the listed segments out of src and concatenates them.
	Trim(ctx context.Context, src *Handle, segments []types.Segment, destDir string) (*Handle, error)
	// Compose renders a geometry plan over one or two sources.
	Compose(ctx context.Context, plan *types.CompositionPlan, sources []*Handle, destDir string) (*Handle, error)
	// BurnSubtitles renders a subtitle track onto the video.
	BurnSubtitles(ctx context.Context, src *Handle, transcript string, destDir string) (*Handle, error)
	// RemoveWatermark crops or covers a detected watermark region.
	RemoveWatermark(ctx context.Context, src *Handle, destDir string) (*Handle, error)
	// MuxAudio replaces or mixes the narration track into the video.
	MuxAudio(ctx context.Context, video, audio *Handle, destDir string) (*Handle, error)
}
