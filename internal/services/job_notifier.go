package services

import (
	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/sse"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// JobNotifier publishes lifecycle events to anyone watching a job or
// its batch over SSE.
type JobNotifier interface {
	JobProgress(job *types.VideoJob)
	JobCompleted(job *types.VideoJob)
	JobFailed(job *types.VideoJob, errorMessage string)
	JobCancelled(job *types.VideoJob)
	BatchUpdated(batchID uuid.UUID, view *types.BatchView)
}

type jobNotifier struct {
	hub *sse.Hub
}

func NewJobNotifier(hub *sse.Hub) JobNotifier {
	return &jobNotifier{hub: hub}
}

func (n *jobNotifier) JobProgress(job *types.VideoJob) {
	n.hub.Broadcast(sse.Message{
		Channel: sse.JobChannel(job.ID),
		Event:   sse.EventJobProgress,
		Data: map[string]any{
			"job_id":       job.ID,
			"status":       job.Status,
			"progress":     job.Progress,
			"current_step": job.CurrentStep,
		},
	})
}

func (n *jobNotifier) JobCompleted(job *types.VideoJob) {
	n.hub.Broadcast(sse.Message{
		Channel: sse.JobChannel(job.ID),
		Event:   sse.EventJobCompleted,
		Data: map[string]any{
			"job_id":     job.ID,
			"output_ref": job.OutputRef,
		},
	})
}

func (n *jobNotifier) JobFailed(job *types.VideoJob, errorMessage string) {
	n.hub.Broadcast(sse.Message{
		Channel: sse.JobChannel(job.ID),
		Event:   sse.EventJobFailed,
		Data: map[string]any{
			"job_id": job.ID,
			"error":  errorMessage,
		},
	})
}

func (n *jobNotifier) JobCancelled(job *types.VideoJob) {
	n.hub.Broadcast(sse.Message{
		Channel: sse.JobChannel(job.ID),
		Event:   sse.EventJobCancelled,
		Data:    map[string]any{"job_id": job.ID},
	})
}

func (n *jobNotifier) BatchUpdated(batchID uuid.UUID, view *types.BatchView) {
	n.hub.Broadcast(sse.Message{
		Channel: sse.BatchChannel(batchID),
		Event:   sse.EventBatchUpdated,
		Data:    view,
	})
}
