// Package jobs runs claimed video jobs through the download, analyze
// and process stages, with per-stage retry, cooperative cancellation
// and guarded row updates so a cancelled job is never overwritten.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/media"
	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// Stage progress windows: each stage reports 0-100 internally and maps
// into its slice of the job's overall progress.
var stageWindows = map[types.JobStatus][2]int{
	types.JobStatusDownloading: {0, 30},
	types.JobStatusAnalyzing:   {30, 55},
	types.JobStatusProcessing:  {55, 100},
}

// overallProgress maps a stage-local percentage into the job's 0-100
// scale.
func overallProgress(stage types.JobStatus, pct int) int {
	w, ok := stageWindows[stage]
	if !ok {
		return pct
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return w[0] + (w[1]-w[0])*pct/100
}

var terminalStatuses = []types.JobStatus{
	types.JobStatusCompleted,
	types.JobStatusFailed,
	types.JobStatusCancelled,
}

// errCancelled is the internal signal that a cancellation checkpoint
// fired; it never reaches a persisted row.
var errCancelled = fmt.Errorf("job cancelled")

// Executor drives one claimed job through its stages.
type Executor struct {
	log      *logger.Logger
	jobs     repos.JobRepo
	notify   services.JobNotifier
	download media.Downloader
	analyze  media.Analyzer
	render   media.Renderer
	speech   media.SpeechSynthesizer
	limiter  PlatformLimiter

	tempDir string
	outDir  string

	maxAttempts int
	baseDelay   time.Duration

	// sleep is time-based backoff, injected so tests run instantly.
	sleep func(ctx context.Context, d time.Duration) error

	// onBatchChange fires after a batch child reaches a terminal state.
	onBatchChange func(ctx context.Context, batchID uuid.UUID)
}

type ExecutorConfig struct {
	TempDir     string
	OutDir      string
	MaxAttempts int
	BaseDelay   time.Duration
}

func NewExecutor(log *logger.Logger, jobRepo repos.JobRepo, notify services.JobNotifier,
	download media.Downloader, analyze media.Analyzer, render media.Renderer,
	speech media.SpeechSynthesizer, limiter PlatformLimiter, cfg ExecutorConfig) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	return &Executor{
		log:         log.With("component", "JobExecutor"),
		jobs:        jobRepo,
		notify:      notify,
		download:    download,
		analyze:     analyze,
		render:      render,
		speech:      speech,
		limiter:     limiter,
		tempDir:     cfg.TempDir,
		outDir:      cfg.OutDir,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		sleep:       sleepCtx,
	}
}

// OnBatchChange registers the hook used to push batch SSE updates when
// a child job finishes.
func (e *Executor) OnBatchChange(fn func(ctx context.Context, batchID uuid.UUID)) {
	e.onBatchChange = fn
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs a job the worker already claimed (status=downloading).
// It always leaves the row in a terminal state or cancelled; errors are
// persisted, not returned.
func (e *Executor) Execute(ctx context.Context, job *types.VideoJob) {
	log := e.log.With("jobID", job.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r)
			e.fail(ctx, job, fmt.Errorf("panic: %v", r))
		}
	}()

	src, err := e.runDownload(ctx, job)
	if err != nil {
		e.finish(ctx, job, err)
		return
	}

	analysis, err := e.runAnalyze(ctx, job, src)
	if err != nil {
		e.finish(ctx, job, err)
		return
	}

	outputRef, err := e.runProcessStage(ctx, job, src, analysis)
	if err != nil {
		e.finish(ctx, job, err)
		return
	}

	e.succeed(ctx, job, outputRef)
}

func (e *Executor) runDownload(ctx context.Context, job *types.VideoJob) (*media.Handle, error) {
	var src *media.Handle
	err := e.retryStage(ctx, job, types.JobStatusDownloading, func(ctx context.Context) error {
		release, err := e.limiter.Acquire(ctx, job.SourcePlatform)
		if err != nil {
			return err
		}
		defer release()
		e.progress(ctx, job, types.JobStatusDownloading, 10, "Downloading video")
		h, err := e.download.Download(ctx, job.SourceRef, e.tempDir)
		if err != nil {
			return err
		}
		src = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.progress(ctx, job, types.JobStatusDownloading, 100, "Download complete")
	return src, nil
}

func (e *Executor) runAnalyze(ctx context.Context, job *types.VideoJob, src *media.Handle) (*media.Analysis, error) {
	if err := e.transition(ctx, job, types.JobStatusAnalyzing, "Analyzing video"); err != nil {
		return nil, err
	}
	var analysis *media.Analysis
	err := e.retryStage(ctx, job, types.JobStatusAnalyzing, func(ctx context.Context) error {
		e.progress(ctx, job, types.JobStatusAnalyzing, 20, "Analyzing video")
		a, err := e.analyze.Analyze(ctx, src, "")
		if err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, &media.StageError{Op: "analyze", Retryable: false, Err: err}
	}
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, terminalStatuses,
		map[string]interface{}{"analysis": raw})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCancelled
	}
	job.Analysis = raw
	e.progress(ctx, job, types.JobStatusAnalyzing, 100, "Analysis complete")
	return analysis, nil
}

func (e *Executor) runProcessStage(ctx context.Context, job *types.VideoJob, src *media.Handle, analysis *media.Analysis) (string, error) {
	if err := e.transition(ctx, job, types.JobStatusProcessing, "Processing video"); err != nil {
		return "", err
	}
	var outputRef string
	err := e.retryStage(ctx, job, types.JobStatusProcessing, func(ctx context.Context) error {
		ref, err := e.runProcess(ctx, job, src, analysis)
		if err != nil {
			return err
		}
		outputRef = ref
		return nil
	})
	if err != nil {
		return "", err
	}
	return outputRef, nil
}

// retryStage runs fn with exponential backoff. Permanent stage errors
// and exhausted attempts surface to the caller; a cancellation observed
// between attempts stops retrying immediately.
func (e *Executor) retryStage(ctx context.Context, job *types.VideoJob, stage types.JobStatus, fn func(ctx context.Context) error) error {
	delay := e.baseDelay
	for attempt := 1; ; attempt++ {
		if cancelled, err := e.checkCancelled(ctx, job); err != nil {
			return err
		} else if cancelled {
			return errCancelled
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if err == errCancelled || ctx.Err() != nil {
			return errCancelled
		}
		if !media.Retryable(err) || attempt >= e.maxAttempts {
			return err
		}
		e.log.Warn("stage attempt failed, retrying",
			"jobID", job.ID, "stage", stage, "attempt", attempt, "delay", delay, "error", err)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return errCancelled
		}
		delay *= 2
	}
}

// checkCancelled reloads the row and reports whether a cancel was
// requested or applied since the last checkpoint.
func (e *Executor) checkCancelled(ctx context.Context, job *types.VideoJob) (bool, error) {
	if ctx.Err() != nil {
		return true, nil
	}
	fresh, err := e.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil {
		return false, err
	}
	if fresh == nil {
		return true, nil
	}
	return fresh.CancelRequested || fresh.Status == types.JobStatusCancelled, nil
}

// transition moves the job into the next stage. The guard rejects the
// write if the row went terminal underneath us, which we treat as
// cancellation.
func (e *Executor) transition(ctx context.Context, job *types.VideoJob, stage types.JobStatus, step string) error {
	if cancelled, err := e.checkCancelled(ctx, job); err != nil {
		return err
	} else if cancelled {
		return errCancelled
	}
	now := time.Now()
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, terminalStatuses,
		map[string]interface{}{
			"status":       stage,
			"current_step": step,
			"progress":     overallProgress(stage, 0),
			"heartbeat_at": now,
		})
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}
	job.Status = stage
	job.CurrentStep = step
	job.Progress = overallProgress(stage, 0)
	return nil
}

// progress persists a stage-local percentage, guarded the same way as
// transitions. Failed guard writes are ignored here; the next
// checkpoint will observe the cancellation.
func (e *Executor) progress(ctx context.Context, job *types.VideoJob, stage types.JobStatus, pct int, step string) {
	now := time.Now()
	overall := overallProgress(stage, pct)
	// A retried attempt replays earlier checkpoints; within one run
	// progress only moves forward. Only an explicit Retry resets it.
	if overall < job.Progress {
		overall = job.Progress
	}
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, terminalStatuses,
		map[string]interface{}{
			"progress":     overall,
			"current_step": step,
			"heartbeat_at": now,
		})
	if err != nil || !ok {
		return
	}
	job.Progress = overall
	job.CurrentStep = step
	if e.notify != nil {
		e.notify.JobProgress(job)
	}
}

// finish routes a stage error into the failed or cancelled terminal
// state.
func (e *Executor) finish(ctx context.Context, job *types.VideoJob, err error) {
	if err == errCancelled {
		e.cancelTerminal(ctx, job)
		return
	}
	e.fail(ctx, job, err)
}

func (e *Executor) fail(ctx context.Context, job *types.VideoJob, cause error) {
	now := time.Now()
	msg := cause.Error()
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID,
		[]types.JobStatus{types.JobStatusCancelled, types.JobStatusCompleted},
		map[string]interface{}{
			"status":        types.JobStatusFailed,
			"error_message": msg,
			"locked_at":     nil,
			"completed_at":  now,
		})
	if err != nil {
		e.log.Error("failed to persist job failure", "jobID", job.ID, "error", err)
		return
	}
	if !ok {
		return
	}
	job.Status = types.JobStatusFailed
	job.ErrorMessage = msg
	e.log.Warn("job failed", "jobID", job.ID, "error", msg)
	if e.notify != nil {
		e.notify.JobFailed(job, msg)
	}
	e.batchChanged(ctx, job)
}

func (e *Executor) cancelTerminal(ctx context.Context, job *types.VideoJob) {
	now := time.Now()
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID, terminalStatuses,
		map[string]interface{}{
			"status":       types.JobStatusCancelled,
			"enqueued":     false,
			"locked_at":    nil,
			"completed_at": now,
		})
	if err != nil {
		e.log.Error("failed to persist job cancellation", "jobID", job.ID, "error", err)
		return
	}
	if ok {
		job.Status = types.JobStatusCancelled
		e.log.Info("job cancelled", "jobID", job.ID)
		if e.notify != nil {
			e.notify.JobCancelled(job)
		}
	}
	e.batchChanged(ctx, job)
}

func (e *Executor) succeed(ctx context.Context, job *types.VideoJob, outputRef string) {
	now := time.Now()
	ok, err := e.jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, job.ID,
		[]types.JobStatus{types.JobStatusCancelled},
		map[string]interface{}{
			"status":       types.JobStatusCompleted,
			"current_step": "Done",
			"progress":     100,
			"output_ref":   outputRef,
			"locked_at":    nil,
			"completed_at": now,
		})
	if err != nil {
		e.log.Error("failed to persist job completion", "jobID", job.ID, "error", err)
		return
	}
	if !ok {
		return
	}
	job.Status = types.JobStatusCompleted
	job.Progress = 100
	job.OutputRef = outputRef
	e.log.Info("job completed", "jobID", job.ID, "output", outputRef)
	if e.notify != nil {
		e.notify.JobCompleted(job)
	}
	e.batchChanged(ctx, job)
}

func (e *Executor) batchChanged(ctx context.Context, job *types.VideoJob) {
	if job.BatchID != nil && e.onBatchChange != nil {
		e.onBatchChange(ctx, *job.BatchID)
	}
}
