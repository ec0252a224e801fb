package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/services"
)

type BatchHandler struct {
	batches services.BatchService
}

func NewBatchHandler(batches services.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

type CreateBatchBody struct {
	Jobs []CreateJobBody `json:"jobs" binding:"required"`
}

// POST /api/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var body CreateBatchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	reqs := make([]services.CreateJobRequest, 0, len(body.Jobs))
	for _, jb := range body.Jobs {
		reqs = append(reqs, jb.toRequest())
	}
	view, err := h.batches.Create(c.Request.Context(), reqs)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batch": view})
}

func (h *BatchHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/batches/:id/start
func (h *BatchHandler) Start(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	view, err := h.batches.Start(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batch": view})
}

// POST /api/batches/:id/cancel
func (h *BatchHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	view, err := h.batches.Cancel(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batch": view})
}

// GET /api/batches/:id
func (h *BatchHandler) Status(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	view, err := h.batches.Status(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batch": view})
}
