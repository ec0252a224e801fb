package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// BatchService groups jobs created from one request and derives batch
// status from its children on every read. Batch rows store only the
// child id list and the started flag; everything else is recomputed.
type BatchService interface {
	// Create persists the batch and all children in one transaction.
	// Children are created pending but not enqueued; Start releases them.
	Create(ctx context.Context, reqs []CreateJobRequest) (*types.BatchView, error)
	// Start releases the batch's children to the worker pool. Calling it
	// again is a no-op.
	Start(ctx context.Context, id uuid.UUID) (*types.BatchView, error)
	// Cancel requests cancellation of every non-terminal child. A child
	// that cannot be cancelled never aborts its siblings.
	Cancel(ctx context.Context, id uuid.UUID) (*types.BatchView, error)
	Status(ctx context.Context, id uuid.UUID) (*types.BatchView, error)
}

type batchService struct {
	log       *logger.Logger
	db        *gorm.DB
	batches   repos.BatchRepo
	jobs      repos.JobRepo
	jobSvc    JobService
	notifier  JobNotifier
	threshold float64
}

func NewBatchService(log *logger.Logger, db *gorm.DB, batchRepo repos.BatchRepo, jobRepo repos.JobRepo, jobSvc JobService, notifier JobNotifier, scoreThreshold float64) BatchService {
	return &batchService{
		log:       log.With("service", "BatchService"),
		db:        db,
		batches:   batchRepo,
		jobs:      jobRepo,
		jobSvc:    jobSvc,
		notifier:  notifier,
		threshold: scoreThreshold,
	}
}

func (s *batchService) Create(ctx context.Context, reqs []CreateJobRequest) (*types.BatchView, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: batch needs at least one job", apperrors.ErrInvalidOptions)
	}

	batchID := uuid.New()
	ids := make([]uuid.UUID, 0, len(reqs))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, req := range reqs {
			job, err := s.jobSvc.CreateForBatch(dbc, batchID, req)
			if err != nil {
				return err
			}
			ids = append(ids, job.ID)
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		_, err = s.batches.Create(dbc, &types.Batch{ID: batchID, JobIDs: raw})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("batch created", "batchID", batchID, "jobs", len(ids))
	return s.Status(ctx, batchID)
}

func (s *batchService) Start(ctx context.Context, id uuid.UUID) (*types.BatchView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := s.batches.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, id)
	}
	if !batch.Started {
		ids, err := batch.ChildIDs()
		if err != nil {
			return nil, err
		}
		// MarkEnqueued only touches rows still un-enqueued, so a repeated
		// Start (or one racing a cancel) releases nothing twice.
		if err := s.jobs.MarkEnqueued(dbc, ids); err != nil {
			return nil, err
		}
		if err := s.batches.UpdateFields(dbc, id, map[string]interface{}{"started": true}); err != nil {
			return nil, err
		}
		s.log.Info("batch started", "batchID", id, "jobs", len(ids))
	}
	return s.Status(ctx, id)
}

func (s *batchService) Cancel(ctx context.Context, id uuid.UUID) (*types.BatchView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := s.batches.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, id)
	}
	ids, err := batch.ChildIDs()
	if err != nil {
		return nil, err
	}
	for _, jobID := range ids {
		if _, err := s.jobSvc.Cancel(ctx, jobID); err != nil {
			s.log.Warn("batch child cancel failed", "batchID", id, "jobID", jobID, "error", err)
		}
	}
	return s.Status(ctx, id)
}

func (s *batchService) Status(ctx context.Context, id uuid.UUID) (*types.BatchView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := s.batches.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, id)
	}
	ids, err := batch.ChildIDs()
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	view := deriveBatchView(batch, ids, jobs, s.threshold)
	return view, nil
}

// deriveBatchView recomputes counts and status from child rows. Status
// rules: not started yet is created; any live child keeps the batch
// running; with all children terminal, every one failed is failed, any
// cancellation wins over completion, otherwise completed.
func deriveBatchView(batch *types.Batch, ids []uuid.UUID, jobs []*types.VideoJob, threshold float64) *types.BatchView {
	byID := make(map[uuid.UUID]*types.VideoJob, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	var counts types.BatchCounts
	counts.Total = len(ids)
	progressSum := 0
	terminal := 0
	for _, jobID := range ids {
		j, ok := byID[jobID]
		if !ok {
			counts.Pending++
			continue
		}
		progressSum += j.Progress
		switch j.Status {
		case types.JobStatusPending, types.JobStatusDownloading, types.JobStatusAnalyzing:
			counts.Pending++
		case types.JobStatusProcessing:
			counts.Analyzed++
		case types.JobStatusCompleted:
			counts.Processed++
			terminal++
		case types.JobStatusFailed:
			counts.Failed++
			terminal++
		case types.JobStatusCancelled:
			counts.Cancelled++
			terminal++
		}
		if j.AnalysisScore() >= threshold && len(j.Analysis) > 0 {
			counts.Recommended++
		}
	}

	status := types.BatchStatusCreated
	switch {
	case terminal == counts.Total && counts.Total > 0:
		switch {
		case counts.Failed == counts.Total:
			status = types.BatchStatusFailed
		case counts.Cancelled > 0:
			status = types.BatchStatusCancelled
		default:
			status = types.BatchStatusCompleted
		}
	case batch.Started:
		status = types.BatchStatusRunning
	}

	progress := 0
	if counts.Total > 0 {
		progress = progressSum / counts.Total
	}
	return &types.BatchView{
		ID:        batch.ID,
		Status:    status,
		JobIDs:    ids,
		Counts:    counts,
		Progress:  progress,
		CreatedAt: batch.CreatedAt,
	}
}
