// Package dashboard holds the per-browser session controller. A Session
// owns the state of one dashboard (selected job, live event channel, open
// preview, loaded configuration) and turns user actions into backend calls
// and view updates.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/events"
	"github.com/knx2openhab/dashboard/internal/logstore"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/services"
	"github.com/knx2openhab/dashboard/internal/stats"
	"github.com/knx2openhab/dashboard/internal/updater"
)

var (
	// ErrNoJobSelected is returned by actions that need a current job.
	ErrNoJobSelected = errors.New("no job selected")
	// ErrConfigNotLoaded is returned when saving before loading.
	ErrConfigNotLoaded = errors.New("configuration not loaded")
	// ErrUpdateRunning is returned when an update is already being followed.
	ErrUpdateRunning = errors.New("update already running")
	// ErrSessionClosed is returned by actions on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Backend is the generation backend API.
type Backend interface {
	events.Source
	updater.Backend

	ListJobs(ctx context.Context) ([]models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	PatchJobLog(ctx context.Context, id string, entries []models.LogEntry) error
	DeleteJob(ctx context.Context, id string) error
	Rollback(ctx context.Context, id, backup string) (models.OpResult, error)
	Rerun(ctx context.Context, id string) (*models.Job, error)
	Deploy(ctx context.Context, id string) (models.OpResult, error)
	JobPreview(ctx context.Context, id string) (*models.ProjectPreview, error)
	FileDiff(ctx context.Context, id, path string) ([]models.DiffEntry, error)
	FilePreview(ctx context.Context, path, backup, jobID string) (*models.FileContent, error)
	UploadProject(ctx context.Context, u client.Upload) (*models.Job, error)
	PreviewProject(ctx context.Context, u client.Upload) (*models.ProjectPreview, error)
	GetConfig(ctx context.Context) (map[string]any, error)
	GetConfigSchema(ctx context.Context) (json.RawMessage, error)
	SaveConfig(ctx context.Context, doc map[string]any) error
	ServiceStatus(ctx context.Context, name string) (*models.ServiceStatus, error)
	RestartService(ctx context.Context, name string) (models.OpResult, error)
	Status(ctx context.Context) (*models.BackendStatus, error)
}

// View receives every state change of a session.
type View interface {
	Status(message string, isErr bool)
	Header(st *models.BackendStatus)
	Jobs(jobs []models.Job, selected string)
	Job(job *models.Job, streaming bool)
	Log(entries []models.LogEntry, filter string, total int)
	Preview(p *models.PreviewData)
	Project(title string, p *models.ProjectPreview)
	Config(fields []configform.Field, errs []configform.FieldError, jobID string)
	Services(list []models.ServiceStatus)
	Version(info *models.VersionInfo, check *models.UpdateCheck, updateLog string)
	StatsPanel() stats.Panel
	StatsBuilder() stats.Builder
}

// Journal records user actions.
type Journal interface {
	Record(e services.JournalEntry) error
}

// Mirror keeps a local copy of job logs.
type Mirror interface {
	Save(jobID string, entries []models.LogEntry) error
	Load(jobID string) ([]models.LogEntry, error)
	Delete(jobID string) error
}

// SessionStore persists the selection of a session.
type SessionStore interface {
	Create() (*services.SessionRecord, error)
	Get(id string) (*services.SessionRecord, error)
	SetCurrentJob(id, jobID string) error
	SetLogFilter(id, level string) error
	Purge(maxAge time.Duration) (int64, error)
}

// Options tunes a session.
type Options struct {
	StatsRetry     time.Duration
	DiffStrategy   diff.Strategy
	Services       []string
	UpdatePoll     time.Duration
	ReconnectDelay time.Duration
	Debug          bool
}

// Deps are the collaborators shared by all sessions. Journal, Mirror and
// Sessions may be nil.
type Deps struct {
	Backend  Backend
	Journal  Journal
	Mirror   Mirror
	Sessions SessionStore
}

// Session is the controller of one dashboard.
type Session struct {
	id      string
	deps    Deps
	opts    Options
	view    View
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logstore.Store
	stream  *events.Controller
	gate    *stats.Gate
	binder  *configform.Binder
	updater *updater.Updater

	updating atomic.Bool
	lastSeen atomic.Int64
	wg       sync.WaitGroup

	// viewMu serializes Attach and Detach.
	viewMu   sync.Mutex
	viewers  int
	detached bool

	mu       sync.Mutex
	closed   bool
	jobID    string
	job      *models.Job
	jobs     []models.Job
	preview  *models.PreviewData
	header   *models.BackendStatus
	services []models.ServiceStatus
	version  updater.Status
	updLog   string
	status   string
	statusOK bool
}

// NewSession creates a session bound to view. The session lives until
// Close or until ctx is cancelled.
func NewSession(ctx context.Context, id string, deps Deps, view View, opts Options) *Session {
	if opts.StatsRetry <= 0 {
		opts.StatsRetry = stats.DefaultRetryDelay
	}
	if opts.DiffStrategy == "" {
		opts.DiffStrategy = diff.StrategyLookahead
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:      id,
		deps:    deps,
		opts:    opts,
		view:    view,
		ctx:     sctx,
		cancel:  cancel,
		log:     logstore.New(),
		binder:  configform.NewBinder(),
		updater: updater.New(deps.Backend, opts.UpdatePoll),
	}
	s.gate = stats.NewGate(view.StatsPanel(), view.StatsBuilder(), opts.StatsRetry)
	s.stream = events.NewController(deps.Backend, events.Handler{
		OnMessage: s.onStreamMessage,
		OnDone:    s.onStreamDone,
		OnError:   s.onStreamError,
	})
	if opts.ReconnectDelay > 0 {
		s.stream.SetReconnectDelay(opts.ReconnectDelay)
	}
	s.log.OnChange(s.renderLog)
	s.Touch()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// CurrentJob returns the selected job id.
func (s *Session) CurrentJob() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

// LogStore exposes the log of the selected job.
func (s *Session) LogStore() *logstore.Store {
	return s.log
}

// Streaming reports whether an event channel is open and for which job.
func (s *Session) Streaming() (string, bool) {
	return s.stream.ActiveJob()
}

// Close stops the event channel and background work and waits for pending
// renders and log writes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.stream.Stop()
	s.cancel()
	s.wg.Wait()
	s.gate.Wait()
	s.log.Flush()
	log.Printf("[Session] Closed %s", s.id)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Start loads the initial state: job list, services, version and, when
// restoring, the previously selected job and log filter.
func (s *Session) Start(ctx context.Context, restoreJob, restoreFilter string) {
	if restoreFilter != "" {
		if err := s.log.SetFilter(restoreFilter); err != nil {
			log.Printf("[Session] Ignoring stored filter %q: %v", restoreFilter, err)
		}
	}
	_ = s.RefreshJobs(ctx)
	if restoreJob != "" {
		if err := s.ShowJob(ctx, restoreJob); err != nil && client.IsNotFound(err) {
			s.persistSelection("")
		}
	}
	_ = s.RefreshServices(ctx)
	_ = s.CheckVersion(ctx)
}

// Replay pushes the complete current state to the view, used when a new
// view attaches to an existing session.
func (s *Session) Replay() {
	s.mu.Lock()
	jobs := append([]models.Job(nil), s.jobs...)
	jobID := s.jobID
	job := s.job
	preview := s.preview
	header := s.header
	svc := append([]models.ServiceStatus(nil), s.services...)
	version := s.version
	updLog := s.updLog
	status, statusOK := s.status, s.statusOK
	s.mu.Unlock()

	_, streaming := s.stream.ActiveJob()
	s.view.Header(header)
	s.view.Status(status, !statusOK && status != "")
	s.view.Jobs(jobs, jobID)
	s.view.Job(job, streaming)
	s.renderLog()
	s.gate.Render(s.gate.Last())
	s.view.Preview(preview)
	s.view.Services(svc)
	s.view.Version(version.Info, version.Check, updLog)
	if s.binder.Loaded() {
		s.view.Config(s.binder.Fields(), nil, jobID)
	}
}

func (s *Session) renderLog() {
	entries := s.log.Visible()
	s.view.Log(entries, s.log.Filter(), s.log.Len())
}

// info publishes a status message.
func (s *Session) info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.mu.Lock()
	s.status, s.statusOK = msg, true
	s.mu.Unlock()
	s.view.Status(msg, false)
}

// fail publishes err as the status message of action and returns it.
func (s *Session) fail(action string, err error) error {
	msg := fmt.Sprintf("%s failed: %s", action, client.Message(err))
	s.mu.Lock()
	s.status, s.statusOK = msg, false
	s.mu.Unlock()
	s.view.Status(msg, true)
	log.Printf("[Session] %s: %s: %v", s.id, action, err)
	return err
}

func (s *Session) debugf(format string, args ...any) {
	if s.opts.Debug {
		log.Printf("[Session] "+format, args...)
	}
}

func (s *Session) record(action, jobID, target string, ok bool, message string) {
	if s.deps.Journal == nil {
		return
	}
	_ = s.deps.Journal.Record(services.JournalEntry{
		SessionID: s.id,
		Action:    action,
		JobID:     jobID,
		Target:    target,
		OK:        ok,
		Message:   message,
	})
}

func (s *Session) persistSelection(jobID string) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.SetCurrentJob(s.id, jobID); err != nil {
		s.debugf("%s: failed to store selection: %v", s.id, err)
	}
}

// background runs fn on the session context until the session closes.
func (s *Session) background(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

// inline runs fn on the calling goroutine, counted as background work so
// Close waits for it.
func (s *Session) inline(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	fn(s.ctx)
}
