package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/media"
	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// CreateJobRequest is the validated payload for a single job.
type CreateJobRequest struct {
	Title     string
	SourceRef string
	Options   types.JobOptions
}

// JobService owns job rows: creation, reads, and the two explicit
// user-driven transitions (retry and cancel). Stage execution writes
// rows through the executor, never through this service.
type JobService interface {
	Create(ctx context.Context, req CreateJobRequest) (*types.VideoJob, error)
	// CreateForBatch persists a child job without enqueueing it; the
	// batch Start call flips the enqueued flag later.
	CreateForBatch(dbc dbctx.Context, batchID uuid.UUID, req CreateJobRequest) (*types.VideoJob, error)
	Get(ctx context.Context, id uuid.UUID) (*types.VideoJob, error)
	List(ctx context.Context, filter repos.JobListFilter) ([]*types.VideoJob, int64, error)
	Retry(ctx context.Context, id uuid.UUID) (*types.VideoJob, error)
	Cancel(ctx context.Context, id uuid.UUID) (*types.VideoJob, error)
}

type jobService struct {
	log      *logger.Logger
	jobs     repos.JobRepo
	presets  types.PresetTable
	notifier JobNotifier
}

func NewJobService(log *logger.Logger, jobRepo repos.JobRepo, presets types.PresetTable, notifier JobNotifier) JobService {
	return &jobService{
		log:      log.With("service", "JobService"),
		jobs:     jobRepo,
		presets:  presets,
		notifier: notifier,
	}
}

func (s *jobService) build(req CreateJobRequest, batchID *uuid.UUID, enqueued bool) (*types.VideoJob, error) {
	if req.SourceRef == "" {
		return nil, fmt.Errorf("%w: source_ref is required", apperrors.ErrInvalidOptions)
	}
	opts := req.Options.Normalize(s.presets)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	return &types.VideoJob{
		ID:             uuid.New(),
		Title:          req.Title,
		SourceRef:      req.SourceRef,
		SourcePlatform: media.DetectPlatform(req.SourceRef),
		TargetPlatform: opts.TargetPlatform,
		BatchID:        batchID,
		Status:         types.JobStatusPending,
		Options:        raw,
		Enqueued:       enqueued,
	}, nil
}

func (s *jobService) Create(ctx context.Context, req CreateJobRequest) (*types.VideoJob, error) {
	job, err := s.build(req, nil, true)
	if err != nil {
		return nil, err
	}
	created, err := s.jobs.Create(dbctx.Context{Ctx: ctx}, []*types.VideoJob{job})
	if err != nil {
		return nil, err
	}
	s.log.Info("job created", "jobID", job.ID, "platform", job.SourcePlatform)
	return created[0], nil
}

func (s *jobService) CreateForBatch(dbc dbctx.Context, batchID uuid.UUID, req CreateJobRequest) (*types.VideoJob, error) {
	job, err := s.build(req, &batchID, false)
	if err != nil {
		return nil, err
	}
	created, err := s.jobs.Create(dbc, []*types.VideoJob{job})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*types.VideoJob, error) {
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, id)
	}
	return job, nil
}

func (s *jobService) List(ctx context.Context, filter repos.JobListFilter) ([]*types.VideoJob, int64, error) {
	return s.jobs.List(dbctx.Context{Ctx: ctx}, filter)
}

// Retry moves a failed job back to pending with its error cleared. The
// status guard makes retrying anything but a failed job an
// ErrInvalidState, and makes concurrent retries idempotent.
func (s *jobService) Retry(ctx context.Context, id uuid.UUID) (*types.VideoJob, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.jobs.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, id)
	}
	ok, err := s.jobs.UpdateFieldsWhereStatus(dbc, id,
		[]types.JobStatus{types.JobStatusFailed},
		map[string]interface{}{
			"status":           types.JobStatusPending,
			"error_message":    "",
			"progress":         0,
			"current_step":     "",
			"output_ref":       "",
			"retry_count":      job.RetryCount + 1,
			"cancel_requested": false,
			"enqueued":         true,
			"locked_at":        nil,
			"heartbeat_at":     nil,
			"completed_at":     nil,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: job %s is %s, only failed jobs can be retried", apperrors.ErrInvalidState, id, job.Status)
	}
	s.log.Info("job retried", "jobID", id, "attempt", job.RetryCount+1)
	return s.Get(ctx, id)
}

// Cancel requests cancellation. A still-pending job is cancelled
// directly; a running one gets cancel_requested set and stops at its
// next checkpoint. Cancelling a terminal job is a no-op.
func (s *jobService) Cancel(ctx context.Context, id uuid.UUID) (*types.VideoJob, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.jobs.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return job, nil
	}

	now := time.Now()
	ok, err := s.jobs.UpdateFieldsWhereStatus(dbc, id,
		[]types.JobStatus{types.JobStatusPending},
		map[string]interface{}{
			"status":           types.JobStatusCancelled,
			"cancel_requested": true,
			"enqueued":         false,
			"completed_at":     now,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Already claimed by a worker: flag it and let the running stage
		// observe the flag at its next checkpoint. Guarded so a job that
		// finished in the meantime keeps its terminal row untouched.
		if _, err := s.jobs.UpdateFieldsUnlessStatus(dbc, id,
			[]types.JobStatus{types.JobStatusCompleted, types.JobStatusFailed, types.JobStatusCancelled},
			map[string]interface{}{"cancel_requested": true}); err != nil {
			return nil, err
		}
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated.Status == types.JobStatusCancelled && s.notifier != nil {
		s.notifier.JobCancelled(updated)
	}
	s.log.Info("job cancel requested", "jobID", id, "status", updated.Status)
	return updated, nil
}
