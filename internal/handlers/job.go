package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/types"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateJobBody is the wire shape of a job creation request.
type CreateJobBody struct {
	Title             string               `json:"title"`
	SourceRef         string               `json:"source_ref" binding:"required"`
	TargetPlatform    string               `json:"target_platform"`
	VideoType         string               `json:"video_type"`
	Duration          int                  `json:"duration"`
	FeatureToggles    types.FeatureToggles `json:"feature_toggles"`
	ProcessingFlow    types.ProcessingFlow `json:"processing_flow"`
	ProcessingOptions map[string]bool      `json:"processing_options"`
	TTSVoice          string               `json:"tts_voice"`
	NarrationStyle    string               `json:"narration_style"`
	NumHighlights     int                  `json:"num_highlights"`
	BackgroundColor   string               `json:"bg_color"`
}

func (b CreateJobBody) toRequest() services.CreateJobRequest {
	return services.CreateJobRequest{
		Title:     b.Title,
		SourceRef: b.SourceRef,
		Options: types.JobOptions{
			TargetPlatform: b.TargetPlatform,
			VideoType:      b.VideoType,
			Duration:       b.Duration,
			Toggles:        b.FeatureToggles,
			Flow:           b.ProcessingFlow,
			Processing:     b.ProcessingOptions,
			TTSVoice:       b.TTSVoice,
			NarrationStyle: b.NarrationStyle,
			HighlightCount: b.NumHighlights,
			BackgroundHex:  b.BackgroundColor,
		},
	}
}

// POST /api/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var body CreateJobBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), body.toRequest())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs?status=&platform=&page=&size=
func (h *JobHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	jobs, total, err := h.jobs.List(c.Request.Context(), repos.JobListFilter{
		Status:   types.JobStatus(c.Query("status")),
		Platform: c.Query("platform"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs, "total": total, "page": page, "size": size})
}

// POST /api/jobs/:id/retry
func (h *JobHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Retry(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Cancel(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}
