package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/version"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// VersionHandler reports the dashboard build.
type VersionHandler struct {
	sessions SessionCounter
}

// NewVersionHandler creates a new VersionHandler instance.
func NewVersionHandler(sessions SessionCounter) *VersionHandler {
	return &VersionHandler{sessions: sessions}
}

// Version returns build information and the live session count.
// GET /api/version
func (h *VersionHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, struct {
		version.Build
		Sessions int `json:"sessions"`
	}{version.Current(), h.sessions.Len()})
}
