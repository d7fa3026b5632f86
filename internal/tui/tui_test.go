package tui

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

type fakeController struct {
	mu       sync.Mutex
	started  bool
	shown    []string
	previews []string
	filters  []string
	closed   int
	err      error
}

func (f *fakeController) Start(ctx context.Context, restoreJob, restoreFilter string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeController) RefreshJobs(ctx context.Context) error { return f.err }

func (f *fakeController) ShowJob(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, id)
	return f.err
}

func (f *fakeController) PreviewFile(ctx context.Context, handle string) (*models.PreviewData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, handle)
	return nil, f.err
}

func (f *fakeController) ClosePreview() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeController) SetLogFilter(level string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, level)
	return f.err
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes an action command and feeds its result back.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func sampleTable() stats.Table {
	return stats.BuildTable(map[string]models.FileStat{
		"items/a.items": {Before: 1, After: 3, Delta: 2, Added: 2},
		"things/b.things": {Before: 5, After: 4, Delta: -1, Removed: 1},
	})
}

func TestModel_InitStartsSession(t *testing.T) {
	c := &fakeController{}
	m := NewModel(context.Background(), c, "")
	cmd := m.Init()
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, sub := range batch {
		if sub != nil {
			sub()
		}
	}
	assert.True(t, c.started)
}

func TestModel_EnterShowsJobUnderCursor(t *testing.T) {
	c := &fakeController{}
	m := NewModel(context.Background(), c, "")
	m, _ = update(t, m, jobsMsg{jobs: []models.Job{{ID: "j1", Name: "one"}, {ID: "j2", Name: "two"}}})
	m, _ = update(t, m, key("down"))
	m, cmd := update(t, m, key("enter"))
	run(t, m, cmd)

	assert.Equal(t, []string{"j2"}, c.shown)
}

func TestModel_SelectedJobMovesCursor(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, "")
	m, _ = update(t, m, jobsMsg{jobs: []models.Job{{ID: "j1"}, {ID: "j2"}, {ID: "j3"}}, selected: "j3"})
	assert.Equal(t, 2, m.cursor)

	m, _ = update(t, m, jobsMsg{jobs: []models.Job{{ID: "j1"}}})
	assert.Equal(t, 0, m.cursor)
}

func TestModel_FilterCycles(t *testing.T) {
	c := &fakeController{}
	m := NewModel(context.Background(), c, "")
	_, cmd := update(t, m, key("f"))
	run(t, m, cmd)

	m, _ = update(t, m, logMsg{filter: "stats"})
	_, cmd = update(t, m, key("f"))
	run(t, m, cmd)

	assert.Equal(t, []string{"debug", "all"}, c.filters)
}

func TestModel_StatsRowOpensPreview(t *testing.T) {
	c := &fakeController{}
	m := NewModel(context.Background(), c, "")
	table := sampleTable()
	m, _ = update(t, m, statsMsg{text: "header\nrow1\nrow2\n", rows: table.Rows})

	m, _ = update(t, m, key("tab"))
	assert.Equal(t, focusStats, m.focus)
	m, _ = update(t, m, key("down"))
	m, cmd := update(t, m, key("enter"))
	run(t, m, cmd)
	assert.Equal(t, []string{table.Rows[1].Handle}, c.previews)

	added := 1
	m, _ = update(t, m, previewMsg{preview: &models.PreviewData{
		Filename: "things/b.things",
		Diff:     []models.DiffEntry{{Type: models.DiffAdded, Line: "Thing x", CurrLn: &added}},
	}})
	assert.Contains(t, m.View(), "things/b.things")

	m, _ = update(t, m, key("esc"))
	assert.Nil(t, m.preview)
	assert.Equal(t, 1, c.closed)
}

func TestModel_TabStaysOnJobsWithoutStats(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, "")
	m, _ = update(t, m, key("tab"))
	assert.Equal(t, focusJobs, m.focus)
}

func TestModel_ActionErrorShownInStatus(t *testing.T) {
	c := &fakeController{err: errors.New("backend down")}
	m := NewModel(context.Background(), c, "")
	_, cmd := update(t, m, key("r"))
	m = run(t, m, cmd)

	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "backend down")
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, "")
	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ViewShowsLogAndStreaming(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, "")
	m, _ = update(t, m, jobMsg{job: &models.Job{ID: "j1", Name: "project.knxproj"}, streaming: true})
	m, _ = update(t, m, logMsg{
		entries: []models.LogEntry{{Level: models.LevelInfo, Text: "parsing"}},
		filter:  "all",
		total:   3,
	})

	out := m.View()
	assert.Contains(t, out, "project.knxproj")
	assert.Contains(t, out, "parsing")
	assert.Contains(t, out, "1/3")
}

func TestView_StatsPanelCarriesRows(t *testing.T) {
	var got []tea.Msg
	v := NewView(func(msg tea.Msg) { got = append(got, msg) })

	var buf bytes.Buffer
	table := sampleTable()
	require.NoError(t, v.StatsBuilder()(&buf, table))
	v.StatsPanel().Replace(buf.String())

	require.Len(t, got, 1)
	msg, ok := got[0].(statsMsg)
	require.True(t, ok)
	assert.Len(t, msg.rows, 2)
	assert.Contains(t, msg.text, "items/a.items")
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderStats(&buf, sampleTable()))
	out := buf.String()

	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "-1")
	assert.Contains(t, out, "Total")

	buf.Reset()
	require.NoError(t, RenderStats(&buf, stats.Table{}))
	assert.Empty(t, buf.String())
}

func TestNextFilter(t *testing.T) {
	assert.Equal(t, "debug", nextFilter("all"))
	assert.Equal(t, "all", nextFilter("stats"))
	assert.Equal(t, "all", nextFilter("bogus"))
}
