// Package middleware provides the HTTP middleware of the dashboard server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/dashboard"
)

const (
	// SessionCookieName is the name of the dashboard session cookie.
	SessionCookieName = "dashboard_session"
	// SessionContextKey is the key for storing the session in request context.
	SessionContextKey = "dashboard_session"
)

// SessionLookup finds a live session.
type SessionLookup interface {
	Get(id string) (*dashboard.Session, bool)
}

// SessionRequired resolves the :id route parameter to a live session. The
// id must match the session cookie of the browser.
func SessionRequired(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie == "" || cookie != id {
			abort(c, http.StatusForbidden, "session mismatch")
			return
		}

		s, ok := sessions.Get(id)
		if !ok {
			abort(c, http.StatusGone, "session expired, reload the page")
			return
		}

		c.Set(SessionContextKey, s)
		c.Next()
	}
}

// CurrentSession returns the session resolved by SessionRequired.
func CurrentSession(c *gin.Context) *dashboard.Session {
	v, ok := c.Get(SessionContextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*dashboard.Session)
	return s
}

func isAPIRequest(c *gin.Context) bool {
	return strings.Contains(c.Request.URL.Path, "/api/") ||
		c.GetHeader("Accept") == "application/json" ||
		c.GetHeader("Content-Type") == "application/json"
}

func abort(c *gin.Context, status int, message string) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(status, gin.H{"error": message})
		return
	}
	c.AbortWithStatus(status)
}
