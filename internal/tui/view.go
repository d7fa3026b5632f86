// Package tui is the terminal front end of a dashboard session.
package tui

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

type statusMsg struct {
	text  string
	isErr bool
}

type headerMsg struct{ status *models.BackendStatus }

type jobsMsg struct {
	jobs     []models.Job
	selected string
}

type jobMsg struct {
	job       *models.Job
	streaming bool
}

type logMsg struct {
	entries []models.LogEntry
	filter  string
	total   int
}

type statsMsg struct {
	text string
	rows []stats.Row
}

type previewMsg struct{ preview *models.PreviewData }

type projectMsg struct {
	title   string
	preview *models.ProjectPreview
}

type servicesMsg struct{ list []models.ServiceStatus }

type versionMsg struct {
	info      *models.VersionInfo
	check     *models.UpdateCheck
	updateLog string
}

// View forwards session updates into the running program. It satisfies
// the session view contract.
type View struct {
	send func(tea.Msg)

	mu   sync.Mutex
	rows []stats.Row
}

// NewView creates a view delivering messages through send, usually
// (*tea.Program).Send.
func NewView(send func(tea.Msg)) *View {
	return &View{send: send}
}

func (v *View) Status(message string, isErr bool) {
	v.send(statusMsg{text: message, isErr: isErr})
}

func (v *View) Header(st *models.BackendStatus) {
	v.send(headerMsg{status: st})
}

func (v *View) Jobs(jobs []models.Job, selected string) {
	v.send(jobsMsg{jobs: jobs, selected: selected})
}

func (v *View) Job(job *models.Job, streaming bool) {
	v.send(jobMsg{job: job, streaming: streaming})
}

func (v *View) Log(entries []models.LogEntry, filter string, total int) {
	v.send(logMsg{entries: entries, filter: filter, total: total})
}

func (v *View) Preview(p *models.PreviewData) {
	v.send(previewMsg{preview: p})
}

func (v *View) Project(title string, p *models.ProjectPreview) {
	v.send(projectMsg{title: title, preview: p})
}

// Config is not shown in the terminal; the configuration form is edited
// in the browser.
func (v *View) Config(fields []configform.Field, errs []configform.FieldError, jobID string) {}

func (v *View) Services(list []models.ServiceStatus) {
	v.send(servicesMsg{list: list})
}

func (v *View) Version(info *models.VersionInfo, check *models.UpdateCheck, updateLog string) {
	v.send(versionMsg{info: info, check: check, updateLog: updateLog})
}

// StatsPanel sends the rendered table together with the rows it was
// built from, so files can be selected for preview.
func (v *View) StatsPanel() stats.Panel {
	return stats.PanelFunc(func(text string) {
		v.mu.Lock()
		rows := v.rows
		v.mu.Unlock()
		v.send(statsMsg{text: text, rows: rows})
	})
}

func (v *View) StatsBuilder() stats.Builder {
	return func(buf *bytes.Buffer, table stats.Table) error {
		v.mu.Lock()
		v.rows = table.Rows
		v.mu.Unlock()
		return RenderStats(buf, table)
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// RenderStats writes the statistics table as aligned text.
func RenderStats(buf *bytes.Buffer, table stats.Table) error {
	if table.Empty() {
		return nil
	}
	width := len("Total")
	for _, r := range table.Rows {
		if len(r.Path) > width {
			width = len(r.Path)
		}
	}
	line := func(name string, st models.FileStat) {
		fmt.Fprintf(buf, "%-*s %7d %7d %7s %6d %6d\n", width, name, st.Before, st.After, signed(st.Delta), st.Added, st.Removed)
	}
	fmt.Fprintf(buf, "%-*s %7s %7s %7s %6s %6s\n", width, "File", "Before", "After", "Delta", "+", "-")
	for _, r := range table.Rows {
		line(r.Path, r.FileStat)
	}
	fmt.Fprintf(buf, "%s\n", strings.Repeat("-", width+40))
	line("Total", table.Totals)
	return nil
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func levelStyle(l models.LogLevel) lipgloss.Style {
	switch l {
	case models.LevelError:
		return errorStyle
	case models.LevelWarning:
		return warnStyle
	case models.LevelStatus, models.LevelStats:
		return okStyle
	case models.LevelDebug, models.LevelBackup:
		return mutedStyle
	}
	return lipgloss.NewStyle()
}
