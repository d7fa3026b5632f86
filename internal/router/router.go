// Package router wires the HTTP routes of the dashboard server.
package router

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/assets"
	"github.com/knx2openhab/dashboard/internal/config"
	"github.com/knx2openhab/dashboard/internal/dashboard"
	"github.com/knx2openhab/dashboard/internal/handlers"
	"github.com/knx2openhab/dashboard/internal/middleware"
	"github.com/knx2openhab/dashboard/internal/services"
	"github.com/knx2openhab/dashboard/internal/view"
)

// Deps are the components served by the router.
type Deps struct {
	Sessions *dashboard.Manager
	Hub      *handlers.Hub
	Renderer *view.Renderer
	Journal  *services.JournalService
}

// New builds the engine. Background helpers of the middleware stop when
// ctx is done.
func New(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	pathPrefix := cfg.Server.PathPrefix

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(pathPrefix+"/static/", pathPrefix+"/ws/"))
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.SecureCookie {
		r.Use(middleware.StrictTransportSecurity(31536000))
	}

	r.SetHTMLTemplate(d.Renderer.Template())

	// Serve static files from embedded filesystem
	staticFS, _ := fs.Sub(assets.EmbeddedFiles, "web/static")
	staticHandler := http.FileServer(http.FS(staticFS))
	r.GET(pathPrefix+"/static/*filepath", func(c *gin.Context) {
		c.Request.URL.Path = c.Param("filepath")
		staticHandler.ServeHTTP(c.Writer, c.Request)
	})

	csrf := middleware.NewCSRFStore(ctx, cfg.Dashboard.GetSessionMaxAge())
	uploadLimiter := middleware.NewRateLimiter(ctx, cfg.Upload.RateLimit, cfg.Upload.GetRateWindow())

	webHandler := handlers.NewWebHandler(d.Sessions, pathPrefix, cfg.Server.SecureCookie)
	panelHandler := handlers.NewPanelHandler(d.Hub)
	actionHandler := handlers.NewActionHandler(cfg.Upload.MaxSize)
	journalHandler := handlers.NewJournalHandler(d.Journal)
	versionHandler := handlers.NewVersionHandler(d.Sessions)

	prefix := r.Group(pathPrefix)
	prefix.Use(middleware.CSRFProtection(csrf, pathPrefix, cfg.Server.SecureCookie))

	prefix.GET("/", webHandler.Dashboard)
	prefix.GET("/ws/:id", middleware.SessionRequired(d.Sessions), panelHandler.HandleWebSocket)

	api := prefix.Group("/api")
	{
		api.GET("/version", versionHandler.Version)
		api.GET("/journal", journalHandler.List)

		session := api.Group("/session/:id")
		session.Use(middleware.SessionRequired(d.Sessions))
		{
			session.GET("/events", panelHandler.Stream)
			session.POST("/action", middleware.ActionBodyLimit(), actionHandler.Action)
			session.POST("/config", middleware.ActionBodyLimit(), actionHandler.SaveConfig)

			uploads := session.Group("")
			uploads.Use(middleware.UploadBodyLimit(cfg.Upload.MaxSize), uploadLimiter.Middleware())
			uploads.POST("/upload", actionHandler.Upload)
			uploads.POST("/project/preview", actionHandler.ProjectPreview)
		}
	}

	// Redirect root to path prefix (only if prefix is not empty)
	if pathPrefix != "" {
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, pathPrefix+"/")
		})
	}

	return r
}
