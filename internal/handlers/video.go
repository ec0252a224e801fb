package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge-backend/internal/composition"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// VideoHandler exposes the synchronous video operations: highlight
// extraction, split-screen merging and aspect conversion.
type VideoHandler struct {
	highlights services.HighlightService
	merges     services.MergeService
}

func NewVideoHandler(highlights services.HighlightService, merges services.MergeService) *VideoHandler {
	return &VideoHandler{highlights: highlights, merges: merges}
}

type ExtractHighlightsBody struct {
	SourceRef      string  `json:"source_ref" binding:"required"`
	TargetDuration float64 `json:"target_duration" binding:"required"`
	NumHighlights  int     `json:"num_highlights"`
	Style          string  `json:"style"`
}

// POST /api/video/extract-highlights
func (h *VideoHandler) ExtractHighlights(c *gin.Context) {
	var body ExtractHighlightsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.highlights.Extract(c.Request.Context(), services.ExtractHighlightsRequest{
		SourceRef:      body.SourceRef,
		TargetDuration: body.TargetDuration,
		NumHighlights:  body.NumHighlights,
		Style:          body.Style,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

type MergeSplitScreenBody struct {
	Source1     string `json:"source1" binding:"required"`
	Source2     string `json:"source2" binding:"required"`
	Layout      string `json:"layout"`
	SplitRatio  string `json:"split_ratio"`
	OutputRatio string `json:"output_ratio"`
	AudioSource string `json:"audio_source"`
	Background  string `json:"bg_color"`
}

// POST /api/video/merge-split-screen
func (h *VideoHandler) MergeSplitScreen(c *gin.Context) {
	var body MergeSplitScreenBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if body.SplitRatio == "" {
		body.SplitRatio = "1:1"
	}
	if body.OutputRatio == "" {
		body.OutputRatio = "9:16"
	}
	result, err := h.merges.MergeSplitScreen(c.Request.Context(), services.MergeSplitScreenRequest{
		Source1:     body.Source1,
		Source2:     body.Source2,
		Layout:      composition.Layout(body.Layout),
		SplitRatio:  body.SplitRatio,
		OutputRatio: body.OutputRatio,
		Audio:       types.AudioSource(body.AudioSource),
		Background:  body.Background,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

type ConvertBody struct {
	SourceRef      string `json:"source_ref" binding:"required"`
	TargetPlatform string `json:"target_platform"`
	OutputRatio    string `json:"output_ratio"`
	Method         string `json:"method"`
	Background     string `json:"bg_color"`
}

// POST /api/video/convert
func (h *VideoHandler) Convert(c *gin.Context) {
	var body ConvertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.merges.ConvertForPlatform(c.Request.Context(), services.ConvertRequest{
		SourceRef:      body.SourceRef,
		TargetPlatform: body.TargetPlatform,
		OutputRatio:    body.OutputRatio,
		Method:         types.FitMode(body.Method),
		Background:     body.Background,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
