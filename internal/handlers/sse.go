package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge-backend/internal/sse"
)

// SSEHandler streams job and batch events. Clients pass the channels
// they want as repeated ?channel= query params, e.g.
// /sse/stream?channel=job:<id>&channel=batch:<id>.
type SSEHandler struct {
	hub *sse.Hub
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// GET /sse/stream
func (h *SSEHandler) Stream(c *gin.Context) {
	channels := c.QueryArray("channel")
	if len(channels) == 0 {
		RespondError(c, http.StatusBadRequest, "missing_channel", nil)
		return
	}
	client := h.hub.NewClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
