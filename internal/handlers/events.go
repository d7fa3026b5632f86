package handlers

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/middleware"
)

// PanelEvent is the SSE event name of a panel update.
const PanelEvent = "panel"

// Stream serves panel updates as server-sent events, for browsers that
// cannot open the websocket.
func (h *PanelHandler) Stream(c *gin.Context) {
	s := middleware.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusGone, gin.H{"error": "session expired"})
		return
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	messages, cancel := h.hub.Subscribe(s.ID())
	defer cancel()
	s.Replay()
	s.Attach()
	defer s.Detach()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			s.Touch()
			_ = sse.Encode(w, sse.Event{Event: PanelEvent, Data: msg})
			return true
		}
	})
}
