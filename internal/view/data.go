package view

import (
	"sort"

	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

// StatusView is the status line.
type StatusView struct {
	Message string
	Error   bool
}

// JobListView is the job list panel.
type JobListView struct {
	Jobs     []models.Job
	Selected string
}

// SortJobs returns jobs newest first. Jobs created in the same second keep
// their relative order.
func SortJobs(jobs []models.Job) []models.Job {
	out := append([]models.Job(nil), jobs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created > out[j].Created
	})
	return out
}

// BackupOption is one entry of the rollback selector.
type BackupOption struct {
	Name   string
	Label  string
	Latest bool
}

// JobView is the job detail panel.
type JobView struct {
	Job       *models.Job
	Backups   []BackupOption
	Streaming bool
}

// NewJobView builds the detail panel with backups labelled "name (ts)".
// The latest backup is preselected.
func NewJobView(job *models.Job, streaming bool) JobView {
	v := JobView{Job: job, Streaming: streaming}
	if job == nil {
		return v
	}
	for i, b := range job.Backups {
		label := b.Name
		if b.TS != "" {
			label += " (" + b.TS + ")"
		}
		v.Backups = append(v.Backups, BackupOption{
			Name:   b.Name,
			Label:  label,
			Latest: i == len(job.Backups)-1,
		})
	}
	return v
}

// LogView is the log panel.
type LogView struct {
	Entries []models.LogEntry
	Filter  string
	Levels  []models.LogLevel
	Total   int
}

// PreviewView is the file preview dialog.
type PreviewView struct {
	Filename string
	Current  models.FileContent
	Original *models.FileContent
	Rows     []diff.Row
	Summary  diff.Summary
	Computed bool
}

// NewPreviewView derives display rows and counters from a preview payload.
func NewPreviewView(p *models.PreviewData) *PreviewView {
	if p == nil {
		return nil
	}
	return &PreviewView{
		Filename: p.Filename,
		Current:  p.Current,
		Original: p.Original,
		Rows:     diff.Rows(p.Diff),
		Summary:  diff.Summarize(p.Diff),
		Computed: p.Computed,
	}
}

// ProjectView is the building tree dialog.
type ProjectView struct {
	Title   string
	Preview *models.ProjectPreview
	Floors  int
	Rooms   int
}

// NewProjectView counts floors and rooms of p.
func NewProjectView(title string, p *models.ProjectPreview) ProjectView {
	v := ProjectView{Title: title, Preview: p}
	if p != nil {
		v.Floors, v.Rooms = p.Counts()
		if p.Metadata.ProjectName != "" {
			v.Title = p.Metadata.ProjectName
		}
	}
	return v
}

// ConfigView is the configuration form.
type ConfigView struct {
	Fields []configform.Field
	Errors []configform.FieldError
	JobID  string
}

// VersionView is the version badge and update state.
type VersionView struct {
	Info  *models.VersionInfo
	Check *models.UpdateCheck
	Log   string
}

// PageView is the initial full page.
type PageView struct {
	PathPrefix string
	SessionID  string
	Header     *models.BackendStatus
	Status     StatusView
	Jobs       JobListView
	Job        JobView
	Log        LogView
	Stats      stats.Table
	Services   []models.ServiceStatus
	Version    VersionView
}
