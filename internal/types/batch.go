package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type BatchStatus string

const (
	BatchStatusCreated   BatchStatus = "created"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Batch groups jobs created together from one request. Its status and
// counts are derived from the child jobs on every read; only the child
// id list and the started flag are stored.
type Batch struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobIDs    datatypes.JSON `gorm:"column:job_ids;type:jsonb" json:"-"`
	Started   bool           `gorm:"column:started;not null;default:false" json:"started"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Batch) TableName() string { return "batch" }

// ChildIDs decodes the ordered child job id list (insertion order is
// creation order).
func (b *Batch) ChildIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(b.JobIDs) == 0 {
		return ids, nil
	}
	err := json.Unmarshal(b.JobIDs, &ids)
	return ids, err
}

// BatchCounts are the derived aggregates recomputed from child job
// statuses on every Status read.
type BatchCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Analyzed    int `json:"analyzed"`
	Processed   int `json:"processed"`
	Failed      int `json:"failed"`
	Cancelled   int `json:"cancelled"`
	Recommended int `json:"recommended"`
}

// BatchView is the read model returned by batch status calls.
type BatchView struct {
	ID        uuid.UUID   `json:"id"`
	Status    BatchStatus `json:"status"`
	JobIDs    []uuid.UUID `json:"job_ids"`
	Counts    BatchCounts `json:"counts"`
	Progress  int         `json:"progress"`
	CreatedAt time.Time   `json:"created_at"`
}
