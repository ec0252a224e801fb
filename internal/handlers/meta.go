package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge-backend/internal/composition"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// MetaHandler serves the static catalogues the dashboard builds its
// pickers from: processing flows and supported aspect ratios.
type MetaHandler struct {
	presets types.PresetTable
}

func NewMetaHandler(presets types.PresetTable) *MetaHandler {
	return &MetaHandler{presets: presets}
}

type flowEntry struct {
	Flow    types.ProcessingFlow `json:"flow"`
	Toggles types.FeatureToggles `json:"toggles"`
}

// GET /api/processing-flows
func (h *MetaHandler) ProcessingFlows(c *gin.Context) {
	order := []types.ProcessingFlow{types.FlowAuto, types.FlowFast, types.FlowAI, types.FlowFull}
	flows := make([]flowEntry, 0, len(order))
	for _, flow := range order {
		flows = append(flows, flowEntry{Flow: flow, Toggles: h.presets[flow]})
	}
	c.JSON(http.StatusOK, gin.H{
		"flows":  flows,
		"custom": types.FlowCustom,
	})
}

// GET /api/aspect-ratios
func (h *MetaHandler) AspectRatios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ratios":  composition.RatioPresets(),
		"methods": composition.ConversionMethods(),
	})
}
