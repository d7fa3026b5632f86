package view

import (
	"log"

	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

// Sink delivers a rendered fragment to whatever displays the page.
type Sink interface {
	Push(target, html string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(target, html string)

// Push calls f.
func (f SinkFunc) Push(target, html string) { f(target, html) }

// Presenter renders session state into HTML fragments and pushes each one
// to its target element.
type Presenter struct {
	r    *Renderer
	sink Sink
}

// NewPresenter creates a presenter rendering with r into sink.
func NewPresenter(r *Renderer, sink Sink) *Presenter {
	return &Presenter{r: r, sink: sink}
}

func (p *Presenter) push(target string, data any) {
	html, err := p.r.Render(target, data)
	if err != nil {
		log.Printf("[View] %v", err)
		return
	}
	p.sink.Push(target, html)
}

func (p *Presenter) Status(message string, isErr bool) {
	p.push(TargetStatus, StatusView{Message: message, Error: isErr})
}

func (p *Presenter) Header(st *models.BackendStatus) {
	p.push(TargetHeader, st)
}

func (p *Presenter) Jobs(jobs []models.Job, selected string) {
	p.push(TargetJobs, JobListView{Jobs: SortJobs(jobs), Selected: selected})
}

func (p *Presenter) Job(job *models.Job, streaming bool) {
	p.push(TargetJob, NewJobView(job, streaming))
}

func (p *Presenter) Log(entries []models.LogEntry, filter string, total int) {
	p.push(TargetLog, LogView{Entries: entries, Filter: filter, Levels: models.Levels, Total: total})
}

func (p *Presenter) Preview(data *models.PreviewData) {
	p.push(TargetPreview, NewPreviewView(data))
}

func (p *Presenter) Project(title string, data *models.ProjectPreview) {
	p.push(TargetProject, NewProjectView(title, data))
}

func (p *Presenter) Config(fields []configform.Field, errs []configform.FieldError, jobID string) {
	p.push(TargetConfig, ConfigView{Fields: fields, Errors: errs, JobID: jobID})
}

func (p *Presenter) Services(list []models.ServiceStatus) {
	p.push(TargetServices, list)
}

func (p *Presenter) Version(info *models.VersionInfo, check *models.UpdateCheck, updateLog string) {
	p.push(TargetVersion, VersionView{Info: info, Check: check, Log: updateLog})
}

// StatsPanel pushes the finished statistics table.
func (p *Presenter) StatsPanel() stats.Panel {
	return stats.PanelFunc(func(html string) {
		p.sink.Push(TargetStats, html)
	})
}

func (p *Presenter) StatsBuilder() stats.Builder {
	return p.r.StatsBuilder()
}
