package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// JobListFilter narrows List results. Page is 1-based.
type JobListFilter struct {
	Status   types.JobStatus
	Platform string
	Page     int
	Size     int
}

type JobRepo interface {
	Create(dbc dbctx.Context, jobs []*types.VideoJob) ([]*types.VideoJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoJob, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.VideoJob, error)
	List(dbc dbctx.Context, filter JobListFilter) ([]*types.VideoJob, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsWhereStatus applies updates only if the row currently has
	// one of the allowed statuses; reports whether a row was updated.
	UpdateFieldsWhereStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.JobStatus, updates map[string]interface{}) (bool, error)
	// UpdateFieldsUnlessStatus applies updates unless the row has one of the
	// disallowed statuses. Used so in-flight stage writes never overwrite a
	// cancelled or otherwise terminal row.
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []types.JobStatus, updates map[string]interface{}) (bool, error)
	// ClaimNextRunnable picks the oldest enqueued pending job and atomically
	// moves it into the downloading stage. Returns nil when nothing is
	// runnable.
	ClaimNextRunnable(dbc dbctx.Context) (*types.VideoJob, error)
	MarkEnqueued(dbc dbctx.Context, ids []uuid.UUID) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobRepo) Create(dbc dbctx.Context, jobs []*types.VideoJob) ([]*types.VideoJob, error) {
	if len(jobs) == 0 {
		return []*types.VideoJob{}, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoJob, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.VideoJob
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.VideoJob, error) {
	var out []*types.VideoJob
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) List(dbc dbctx.Context, filter JobListFilter) ([]*types.VideoJob, int64, error) {
	q := r.conn(dbc).WithContext(dbc.Ctx).Model(&types.VideoJob{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Platform != "" {
		q = q.Where("target_platform = ?", filter.Platform)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size < 1 {
		size = 20
	}

	var out []*types.VideoJob
	err := q.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.VideoJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRepo) UpdateFieldsWhereStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.JobStatus, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.VideoJob{}).
		Where("id = ?", id)
	if len(allowed) == 1 {
		q = q.Where("status = ?", allowed[0])
	} else if len(allowed) > 1 {
		q = q.Where("status IN ?", allowed)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []types.JobStatus, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.VideoJob{}).
		Where("id = ?", id)
	if len(disallowed) == 1 {
		q = q.Where("status <> ?", disallowed[0])
	} else if len(disallowed) > 1 {
		q = q.Where("status NOT IN ?", disallowed)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) ClaimNextRunnable(dbc dbctx.Context) (*types.VideoJob, error) {
	now := time.Now()
	var claimed *types.VideoJob
	err := r.conn(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&types.VideoJob{})
		// SKIP LOCKED keeps concurrent workers from claiming the same row;
		// sqlite (used in tests) has no row locking, so only apply it on
		// postgres.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var job types.VideoJob
		qErr := q.
			Where("status = ? AND enqueued AND NOT cancel_requested", types.JobStatusPending).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := tx.Model(&types.VideoJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusDownloading,
				"current_step": "Downloading video",
				"progress":     0,
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusDownloading
		job.CurrentStep = "Downloading video"
		job.Progress = 0
		job.LockedAt = &now
		job.HeartbeatAt = &now
		job.UpdatedAt = now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) MarkEnqueued(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.VideoJob{}).
		Where("id IN ? AND NOT enqueued", ids).
		Updates(map[string]interface{}{
			"enqueued":   true,
			"updated_at": time.Now(),
		}).Error
}

func (r *jobRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{"heartbeat_at": time.Now()})
}
