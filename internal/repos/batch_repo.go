package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/types"
)

type BatchRepo interface {
	Create(dbc dbctx.Context, batch *types.Batch) (*types.Batch, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Batch, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	return &batchRepo{
		db:  db,
		log: baseLog.With("repo", "BatchRepo"),
	}
}

func (r *batchRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *batchRepo) Create(dbc dbctx.Context, batch *types.Batch) (*types.Batch, error) {
	if batch == nil {
		return nil, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *batchRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Batch, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var batch types.Batch
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Batch{}).
		Where("id = ?", id).
		Updates(updates).Error
}
