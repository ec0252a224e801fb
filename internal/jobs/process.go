package jobs

import (
	"context"

	"github.com/clipforge/clipforge-backend/internal/composition"
	"github.com/clipforge/clipforge-backend/internal/media"
	"github.com/clipforge/clipforge-backend/internal/selector"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// runProcess is the process stage sub-pipeline. Ordering: edits derived
// from the transcript and analysis first (subtitles, narration), then
// visual composition (watermark removal, highlight cut, aspect
// conversion), then the final audio mux. A sub-step failure fails the
// whole run; nothing partial is ever marked completed.
func (e *Executor) runProcess(ctx context.Context, job *types.VideoJob, src *media.Handle, analysis *media.Analysis) (string, error) {
	opts, err := job.DecodeOptions()
	if err != nil {
		return "", &media.StageError{Op: "process", Retryable: false, Err: err}
	}

	current := src
	var narration *media.Handle

	checkpoint := func(pct int, step string) error {
		if cancelled, err := e.checkCancelled(ctx, job); err != nil {
			return err
		} else if cancelled {
			return errCancelled
		}
		e.progress(ctx, job, types.JobStatusProcessing, pct, step)
		return nil
	}

	if opts.Toggles.Subtitles && analysis.Transcript != "" {
		if err := checkpoint(10, "Adding subtitles"); err != nil {
			return "", err
		}
		current, err = e.render.BurnSubtitles(ctx, current, analysis.Transcript, e.tempDir)
		if err != nil {
			return "", err
		}
	}

	if opts.Toggles.Narration && analysis.Summary != "" {
		if err := checkpoint(25, "Synthesizing narration"); err != nil {
			return "", err
		}
		narration, err = e.speech.Synthesize(ctx, analysis.Summary, opts.TTSVoice)
		if err != nil {
			return "", err
		}
	}

	if opts.Toggles.RemoveWatermark {
		if err := checkpoint(40, "Removing watermark"); err != nil {
			return "", err
		}
		current, err = e.render.RemoveWatermark(ctx, current, e.tempDir)
		if err != nil {
			return "", err
		}
	}

	// Full-length outputs skip the highlight cut.
	if opts.VideoType != "full" && len(analysis.Segments) > 0 {
		if err := checkpoint(55, "Cutting highlights"); err != nil {
			return "", err
		}
		chosen := selector.Select(analysis.Segments, selector.Params{
			TargetDuration: float64(opts.Duration),
			MaxCount:       opts.HighlightCount,
			SourceDuration: src.Duration,
		})
		current, err = e.render.Trim(ctx, current, chosen, e.tempDir)
		if err != nil {
			return "", err
		}
	}

	if err := checkpoint(75, "Converting aspect ratio"); err != nil {
		return "", err
	}
	plan, err := composition.PlanAspectConversion(composition.ConvertRequest{
		Source:      composition.Source{Width: dimOr(current.Width, 1920), Height: dimOr(current.Height, 1080)},
		OutputRatio: media.DefaultRatioFor(opts.TargetPlatform),
		Background:  opts.BackgroundHex,
	})
	if err != nil {
		return "", &media.StageError{Op: "process", Retryable: false, Err: err}
	}
	// The aspect conversion is the last video transform, so it renders
	// straight into the output dir unless a narration mux follows.
	composeDir := e.outDir
	if narration != nil {
		composeDir = e.tempDir
	}
	current, err = e.render.Compose(ctx, plan, []*media.Handle{current}, composeDir)
	if err != nil {
		return "", err
	}

	if narration != nil {
		if err := checkpoint(90, "Mixing narration"); err != nil {
			return "", err
		}
		current, err = e.render.MuxAudio(ctx, current, narration, e.outDir)
		if err != nil {
			return "", err
		}
	}

	if err := checkpoint(100, "Finalizing"); err != nil {
		return "", err
	}
	return current.Path, nil
}

func dimOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
