package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/dashboard"
	"github.com/knx2openhab/dashboard/internal/middleware"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
	"github.com/knx2openhab/dashboard/internal/view"
)

// SessionCookieMaxAge is how long the browser keeps the session cookie.
const SessionCookieMaxAge = 7 * 24 * 3600

// WebHandler handles web page rendering.
type WebHandler struct {
	sessions     *dashboard.Manager
	pathPrefix   string
	secureCookie bool
}

// NewWebHandler creates a new WebHandler instance.
func NewWebHandler(sessions *dashboard.Manager, pathPrefix string, secureCookie bool) *WebHandler {
	return &WebHandler{
		sessions:     sessions,
		pathPrefix:   pathPrefix,
		secureCookie: secureCookie,
	}
}

// Dashboard renders the dashboard page for the browser's session,
// restoring or creating it as needed.
func (h *WebHandler) Dashboard(c *gin.Context) {
	id, _ := c.Cookie(middleware.SessionCookieName)

	s, created, err := h.sessions.Acquire(c.Request.Context(), id)
	if err != nil {
		log.Printf("[Web] Failed to open session: %v", err)
		c.String(http.StatusInternalServerError, "failed to open session")
		return
	}
	if created || id != s.ID() {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middleware.SessionCookieName, s.ID(), SessionCookieMaxAge, h.pathPrefix+"/", "", h.secureCookie, true)
	}

	c.HTML(http.StatusOK, view.PageTemplate, PageData(h.pathPrefix, s.Snapshot()))
}

// PageData converts a session snapshot into the page model.
func PageData(pathPrefix string, snap dashboard.Snapshot) view.PageView {
	return view.PageView{
		PathPrefix: pathPrefix,
		SessionID:  snap.ID,
		Header:     snap.Header,
		Status:     view.StatusView{Message: snap.Status, Error: snap.StatusErr},
		Jobs:       view.JobListView{Jobs: view.SortJobs(snap.Jobs), Selected: snap.JobID},
		Job:        view.NewJobView(snap.Job, snap.Streaming),
		Log: view.LogView{
			Entries: snap.Log,
			Filter:  snap.Filter,
			Levels:  models.Levels,
			Total:   snap.LogTotal,
		},
		Stats:    stats.BuildTable(snap.Stats),
		Services: snap.Services,
		Version: view.VersionView{
			Info:  snap.Version.Info,
			Check: snap.Version.Check,
			Log:   snap.UpdateLog,
		},
	}
}
