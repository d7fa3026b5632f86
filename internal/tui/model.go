package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/logstore"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

// Controller is the part of a dashboard session the terminal drives.
type Controller interface {
	Start(ctx context.Context, restoreJob, restoreFilter string)
	RefreshJobs(ctx context.Context) error
	ShowJob(ctx context.Context, id string) error
	PreviewFile(ctx context.Context, handle string) (*models.PreviewData, error)
	ClosePreview()
	SetLogFilter(level string) error
}

type focus int

const (
	focusJobs focus = iota
	focusStats
)

type actionDoneMsg struct{ err error }

// Model is the bubbletea model of the watch command.
type Model struct {
	ctx     context.Context
	session Controller
	initJob string

	width  int
	height int

	jobs      []models.Job
	cursor    int
	selected  string
	job       *models.Job
	streaming bool

	entries []models.LogEntry
	filter  string
	total   int
	logView viewport.Model

	statsText string
	rows      []stats.Row
	statsRow  int
	focus     focus

	preview     *models.PreviewData
	previewView viewport.Model

	header   *models.BackendStatus
	services []models.ServiceStatus
	version  versionMsg

	status    string
	statusErr bool
	spinner   spinner.Model
}

// NewModel creates the model. job, when set, is opened on start.
func NewModel(ctx context.Context, session Controller, job string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:         ctx,
		session:     session,
		initJob:     job,
		filter:      logstore.FilterAll,
		logView:     viewport.New(80, 10),
		previewView: viewport.New(80, 20),
		spinner:     sp,
	}
}

// Init starts the session from a command so that view updates reach a
// running program.
func (m Model) Init() tea.Cmd {
	start := func() tea.Msg {
		m.session.Start(m.ctx, m.initJob, "")
		return nil
	}
	return tea.Batch(start, m.spinner.Tick)
}

func (m Model) action(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case actionDoneMsg:
		if msg.err != nil {
			m.status, m.statusErr = msg.err.Error(), true
		}
		return m, nil
	case statusMsg:
		m.status, m.statusErr = msg.text, msg.isErr
	case headerMsg:
		m.header = msg.status
	case jobsMsg:
		m.jobs = msg.jobs
		m.selected = msg.selected
		m.syncCursor()
	case jobMsg:
		m.job, m.streaming = msg.job, msg.streaming
		if msg.job != nil {
			m.selected = msg.job.ID
		}
	case logMsg:
		atBottom := m.logView.AtBottom()
		m.entries, m.filter, m.total = msg.entries, msg.filter, msg.total
		m.logView.SetContent(renderLog(m.entries))
		if atBottom {
			m.logView.GotoBottom()
		}
	case statsMsg:
		m.statsText, m.rows = msg.text, msg.rows
		if len(m.rows) == 0 {
			m.statsText = ""
		}
		if m.statsRow >= len(m.rows) {
			m.statsRow = 0
		}
		if len(m.rows) == 0 && m.focus == focusStats {
			m.focus = focusJobs
		}
	case previewMsg:
		m.preview = msg.preview
		if msg.preview != nil {
			m.previewView.SetContent(renderPreview(msg.preview))
			m.previewView.GotoTop()
		}
	case servicesMsg:
		m.services = msg.list
	case versionMsg:
		m.version = msg
	case projectMsg:
		if msg.preview != nil {
			floors, rooms := msg.preview.Counts()
			m.status, m.statusErr = fmt.Sprintf("%s: %d buildings, %d floors, %d rooms", msg.title, len(msg.preview.Buildings), floors, rooms), false
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.preview != nil {
		switch msg.String() {
		case "esc", "q":
			m.preview = nil
			m.session.ClosePreview()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.previewView, cmd = m.previewView.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusJobs && len(m.rows) > 0 {
			m.focus = focusStats
		} else {
			m.focus = focusJobs
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	case "enter":
		return m, m.open()
	case "r":
		return m, m.action(func() error { return m.session.RefreshJobs(m.ctx) })
	case "f":
		next := nextFilter(m.filter)
		return m, m.action(func() error { return m.session.SetLogFilter(next) })
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if m.focus == focusStats {
		m.statsRow = clamp(m.statsRow+delta, 0, len(m.rows)-1)
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(m.jobs)-1)
}

func (m Model) open() tea.Cmd {
	if m.focus == focusStats {
		if m.statsRow >= len(m.rows) {
			return nil
		}
		handle := m.rows[m.statsRow].Handle
		return m.action(func() error {
			_, err := m.session.PreviewFile(m.ctx, handle)
			return err
		})
	}
	if m.cursor >= len(m.jobs) {
		return nil
	}
	id := m.jobs[m.cursor].ID
	return m.action(func() error { return m.session.ShowJob(m.ctx, id) })
}

func (m *Model) syncCursor() {
	for i, j := range m.jobs {
		if j.ID == m.selected {
			m.cursor = i
			return
		}
	}
	m.cursor = clamp(m.cursor, 0, len(m.jobs)-1)
}

func (m *Model) resize() {
	w := max(m.width-4, 20)
	m.logView.Width = w
	m.logView.Height = max(m.height/3, 5)
	m.previewView.Width = w
	m.previewView.Height = max(m.height-6, 5)
}

// nextFilter cycles through "all" and every log level.
func nextFilter(current string) string {
	order := []string{logstore.FilterAll}
	for _, l := range models.Levels {
		order = append(order, string(l))
	}
	for i, f := range order {
		if f == current {
			return order[(i+1)%len(order)]
		}
	}
	return logstore.FilterAll
}

func (m Model) View() string {
	if m.preview != nil {
		return m.viewPreview()
	}

	title := titleStyle.Render("knx2openhab dashboard")
	if m.header != nil {
		title += mutedStyle.Render(fmt.Sprintf("  jobs %d  running %d", m.header.JobsTotal, m.header.JobsRunning))
	}
	help := mutedStyle.Render("up/down: move | tab: jobs/stats | enter: open | f: filter | r: refresh | q: quit")

	parts := []string{title, help, m.viewJobs(), m.viewLog()}
	if m.statsText != "" {
		parts = append(parts, m.viewStats())
	}
	if line := m.viewSystem(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, m.viewStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewJobs() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Jobs") + "\n")
	if len(m.jobs) == 0 {
		b.WriteString(mutedStyle.Render("no jobs"))
		return panelStyle.Render(b.String())
	}
	for i, j := range m.jobs {
		line := fmt.Sprintf("%-10s %-24s %s", j.Status, truncate(j.Name, 24), time.Unix(j.Created, 0).Format("2006-01-02 15:04"))
		marker := "  "
		if j.ID == m.selected {
			marker = "* "
		}
		line = marker + line
		if i == m.cursor && m.focus == focusJobs {
			line = selStyle.Render(line)
		}
		b.WriteString(line)
		if i < len(m.jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return panelStyle.Render(b.String())
}

func (m Model) viewLog() string {
	head := titleStyle.Render("Log")
	if m.job != nil {
		head += " " + m.job.Name
	}
	if m.streaming {
		head += " " + m.spinner.View()
	}
	head += mutedStyle.Render(fmt.Sprintf("  filter %s  %d/%d", m.filter, len(m.entries), m.total))
	return panelStyle.Render(head + "\n" + m.logView.View())
}

func (m Model) viewStats() string {
	lines := strings.Split(strings.TrimRight(m.statsText, "\n"), "\n")
	if m.focus == focusStats && len(lines) > m.statsRow+1 {
		// First line is the table header.
		lines[m.statsRow+1] = selStyle.Render(lines[m.statsRow+1])
	}
	return panelStyle.Render(titleStyle.Render("Statistics") + "\n" + strings.Join(lines, "\n"))
}

func (m Model) viewSystem() string {
	var parts []string
	for _, s := range m.services {
		style := okStyle
		if !s.Active {
			style = errorStyle
		}
		parts = append(parts, s.Name+" "+style.Render(s.Status))
	}
	if m.version.check != nil && m.version.check.UpdateAvailable {
		parts = append(parts, warnStyle.Render("update available"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return okStyle.Render(m.status)
}

func (m Model) viewPreview() string {
	p := m.preview
	head := titleStyle.Render(p.Filename)
	if p.Computed {
		head += mutedStyle.Render("  (computed locally)")
	}
	help := mutedStyle.Render("up/down: scroll | esc: close")
	return lipgloss.JoinVertical(lipgloss.Left, head, help, m.previewView.View())
}

func renderLog(entries []models.LogEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = levelStyle(e.Level).Render(fmt.Sprintf("[%s] %s", e.Level, e.Text))
	}
	return strings.Join(lines, "\n")
}

func renderPreview(p *models.PreviewData) string {
	rows := diff.Rows(p.Diff)
	lines := make([]string, len(rows))
	for i, r := range rows {
		text := fmt.Sprintf("%5s %s", r.Number, r.Line)
		switch r.Type {
		case models.DiffAdded:
			text = addedStyle.Render(fmt.Sprintf("%5s + %s", r.Number, r.Line))
		case models.DiffRemoved:
			text = removedStyle.Render(fmt.Sprintf("%5s - %s", r.Number, r.Line))
		case models.DiffModified:
			text = warnStyle.Render(fmt.Sprintf("%5s ~ %s", r.Number, r.Line))
		}
		lines[i] = text
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
