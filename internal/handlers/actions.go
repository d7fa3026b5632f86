package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/dashboard"
	"github.com/knx2openhab/dashboard/internal/logstore"
	"github.com/knx2openhab/dashboard/internal/middleware"
	"github.com/knx2openhab/dashboard/internal/validation"
)

// Actions accepted by the action endpoint.
const (
	ActionShowJob        = "show_job"
	ActionRefresh        = "refresh"
	ActionRerun          = "rerun"
	ActionDeploy         = "deploy"
	ActionJobPreview     = "job_preview"
	ActionDeleteJob      = "delete_job"
	ActionRollback       = "rollback"
	ActionLogFilter      = "log_filter"
	ActionPreviewFile    = "preview_file"
	ActionClosePreview   = "close_preview"
	ActionCloseProject   = "close_project"
	ActionLoadConfig     = "load_config"
	ActionCloseConfig    = "close_config"
	ActionRestartService = "restart_service"
	ActionUpdate         = "update"
)

// ActionRequest is the body of POST /api/session/:id/action.
type ActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Job     string `json:"job"`
	File    string `json:"file"`
	Service string `json:"service"`
	Backup  string `json:"backup"`
	Level   string `json:"level"`
}

// ErrUnknownAction is returned for an action name the dashboard does not know.
var ErrUnknownAction = errors.New("unknown action")

// ActionHandler turns browser requests into session operations. The result
// of every operation reaches the page through the panel stream; responses
// only acknowledge.
type ActionHandler struct {
	maxUpload int64
}

// NewActionHandler creates a new ActionHandler instance.
func NewActionHandler(maxUpload int64) *ActionHandler {
	return &ActionHandler{maxUpload: maxUpload}
}

// Action runs one named action.
func (h *ActionHandler) Action(c *gin.Context) {
	s := middleware.CurrentSession(c)
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Dispatch(c, s, req); err != nil {
		c.JSON(statusFor(err), gin.H{"error": client.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Dispatch runs req against s.
func Dispatch(c *gin.Context, s *dashboard.Session, req ActionRequest) error {
	ctx := c.Request.Context()
	switch req.Action {
	case ActionShowJob:
		return s.ShowJob(ctx, req.Job)
	case ActionRefresh:
		return s.RefreshJobs(ctx)
	case ActionRerun:
		_, err := s.Rerun(ctx, req.Job)
		return err
	case ActionDeploy:
		return s.Deploy(ctx, req.Job)
	case ActionJobPreview:
		return s.JobPreview(ctx, req.Job)
	case ActionDeleteJob:
		return s.DeleteJob(ctx, req.Job)
	case ActionRollback:
		if req.Job != "" && req.Job != s.CurrentJob() {
			if err := s.ShowJob(ctx, req.Job); err != nil {
				return err
			}
		}
		return s.Rollback(ctx, req.Backup)
	case ActionLogFilter:
		return s.SetLogFilter(req.Level)
	case ActionPreviewFile:
		_, err := s.PreviewFile(ctx, req.File)
		return err
	case ActionClosePreview:
		s.ClosePreview()
	case ActionCloseProject:
		s.CloseProject()
	case ActionLoadConfig:
		return s.LoadConfig(ctx)
	case ActionCloseConfig:
		s.CloseConfig()
	case ActionRestartService:
		return s.RestartService(ctx, req.Service)
	case ActionUpdate:
		return s.Update(ctx)
	default:
		return ErrUnknownAction
	}
	return nil
}

// Upload forwards a project export and starts a job.
func (h *ActionHandler) Upload(c *gin.Context) {
	s := middleware.CurrentSession(c)
	u, closeFn, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	job, err := s.Upload(c.Request.Context(), u)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": client.Message(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// ProjectPreview parses an export without starting a job.
func (h *ActionHandler) ProjectPreview(c *gin.Context) {
	s := middleware.CurrentSession(c)
	u, closeFn, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	if err := s.PreviewProject(c.Request.Context(), u); err != nil {
		c.JSON(statusFor(err), gin.H{"error": client.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ActionHandler) readUpload(c *gin.Context) (client.Upload, func(), bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return client.Upload{}, nil, false
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return client.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return client.Upload{}, nil, false
	}
	return client.Upload{
		Filename: fh.Filename,
		Body:     f,
		Password: c.PostForm("password"),
	}, func() { _ = f.Close() }, true
}

// fieldErrorJSON is one rejected configuration field.
type fieldErrorJSON struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// SaveConfig saves the submitted configuration form. mode=reprocess reruns
// the selected job after saving.
func (h *ActionHandler) SaveConfig(c *gin.Context) {
	s := middleware.CurrentSession(c)
	mode := c.DefaultQuery("mode", "save")
	if mode != "save" && mode != "reprocess" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be save or reprocess"})
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form := c.Request.PostForm
	form.Del("_csrf")

	fieldErrs, err := s.SaveConfig(c.Request.Context(), form, mode == "reprocess")
	body := gin.H{"field_errors": fieldErrors(fieldErrs)}
	if err != nil {
		body["error"] = client.Message(err)
		c.JSON(statusFor(err), body)
		return
	}
	body["ok"] = true
	c.JSON(http.StatusOK, body)
}

func fieldErrors(errs []configform.FieldError) []fieldErrorJSON {
	out := make([]fieldErrorJSON, 0, len(errs))
	for _, e := range errs {
		out = append(out, fieldErrorJSON{Key: e.Key, Error: e.Err.Error()})
	}
	return out
}

func statusFor(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, ErrUnknownAction),
		errors.Is(err, logstore.ErrUnknownLevel),
		errors.Is(err, validation.ErrInputEmpty),
		errors.Is(err, validation.ErrInputTooLong),
		errors.Is(err, validation.ErrInputInvalid),
		errors.Is(err, validation.ErrUnknownService),
		errors.Is(err, validation.ErrUnsupportedUpload):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNoJobSelected),
		errors.Is(err, dashboard.ErrConfigNotLoaded),
		errors.Is(err, dashboard.ErrUpdateRunning):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrSessionClosed):
		return http.StatusGone
	case client.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
