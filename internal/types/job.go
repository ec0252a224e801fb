package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusAnalyzing   JobStatus = "analyzing"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions
// other than the explicit failed->pending retry.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// VideoJob is one unit of work transforming one source into one output.
// It is owned by the job service; stage execution mutates it only through
// guarded repo updates so a cancelled row is never overwritten.
type VideoJob struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"column:title" json:"title,omitempty"`
	SourceRef       string         `gorm:"column:source_ref;not null" json:"source_ref"`
	SourcePlatform  string         `gorm:"column:source_platform;index" json:"source_platform"`
	TargetPlatform  string         `gorm:"column:target_platform;index" json:"target_platform"`
	BatchID         *uuid.UUID     `gorm:"type:uuid;column:batch_id;index" json:"batch_id,omitempty"`
	Status          JobStatus      `gorm:"column:status;not null;index" json:"status"`
	Progress        int            `gorm:"column:progress;not null;default:0" json:"progress"`
	CurrentStep     string         `gorm:"column:current_step" json:"current_step"`
	Options         datatypes.JSON `gorm:"column:options;type:jsonb" json:"options"`
	Analysis        datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`
	OutputRef       string         `gorm:"column:output_ref" json:"output_ref,omitempty"`
	ErrorMessage    string         `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount      int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	Enqueued        bool           `gorm:"column:enqueued;not null;default:false;index" json:"-"`
	CancelRequested bool           `gorm:"column:cancel_requested;not null;default:false" json:"-"`
	LockedAt        *time.Time     `gorm:"column:locked_at;index" json:"-"`
	HeartbeatAt     *time.Time     `gorm:"column:heartbeat_at" json:"-"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (VideoJob) TableName() string { return "video_job" }

// DecodeOptions unmarshals the persisted editing directives. A job row
// always carries options written by the job service, so decode failures
// indicate corruption and are surfaced to the caller.
func (j *VideoJob) DecodeOptions() (JobOptions, error) {
	var opts JobOptions
	if len(j.Options) == 0 {
		return opts, nil
	}
	err := json.Unmarshal(j.Options, &opts)
	return opts, err
}

// AnalysisScore extracts the analyzer's overall quality score, or 0 when
// the job has not been analyzed yet.
func (j *VideoJob) AnalysisScore() float64 {
	if len(j.Analysis) == 0 {
		return 0
	}
	var a struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(j.Analysis, &a); err != nil {
		return 0
	}
	return a.Score
}
