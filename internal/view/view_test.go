package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestRender_LogEscapesText(t *testing.T) {
	r := newRenderer(t)

	html, err := r.Render(TargetLog, LogView{
		Entries: []models.LogEntry{{Level: models.LevelError, Text: `<script>alert("x")</script> & 'q'`}},
		Filter:  "all",
		Levels:  models.Levels,
		Total:   1,
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; &#39;q&#39;")
	assert.Contains(t, html, `class="lvl-error"`)
}

func TestRender_LogFilterSelected(t *testing.T) {
	r := newRenderer(t)

	html, err := r.Render(TargetLog, LogView{Filter: "warning", Levels: models.Levels})
	require.NoError(t, err)
	assert.Contains(t, html, `<option value="warning" selected>`)
	assert.NotContains(t, html, `<option value="all" selected>`)
}

func TestStatsBuilder(t *testing.T) {
	r := newRenderer(t)
	table := stats.BuildTable(map[string]models.FileStat{
		`items\knx.items`: {Before: 2, After: 5, Delta: 3, Added: 3},
	})

	var buf bytes.Buffer
	require.NoError(t, r.StatsBuilder()(&buf, table))
	html := buf.String()
	assert.Contains(t, html, "items/knx.items")
	assert.Contains(t, html, `data-file="items%2Fknx.items"`)
	// html/template escapes the sign in text context
	assert.Contains(t, html, `<td class="delta-up">&#43;3</td>`)
}

func TestStatsBuilder_Empty(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.StatsBuilder()(&buf, stats.Table{}))
	assert.NotContains(t, buf.String(), "<table")
}

func TestNewJobView_BackupLabels(t *testing.T) {
	job := &models.Job{ID: "j1", Backups: []models.Backup{{Name: "b1", TS: "2024-01-01"}, {Name: "b2"}}}

	v := NewJobView(job, false)
	require.Len(t, v.Backups, 2)
	assert.Equal(t, BackupOption{Name: "b1", Label: "b1 (2024-01-01)"}, v.Backups[0])
	assert.Equal(t, BackupOption{Name: "b2", Label: "b2", Latest: true}, v.Backups[1])

	html, err := newRenderer(t).Render(TargetJob, v)
	require.NoError(t, err)
	assert.Contains(t, html, `<option value="b2" selected>b2</option>`)
}

func TestRender_JobWithoutSelection(t *testing.T) {
	html, err := newRenderer(t).Render(TargetJob, NewJobView(nil, false))
	require.NoError(t, err)
	assert.Contains(t, html, "Select a job")
}

func TestRender_PreviewPlaceholder(t *testing.T) {
	v := NewPreviewView(&models.PreviewData{Filename: "a.items"})

	html, err := newRenderer(t).Render(TargetPreview, v)
	require.NoError(t, err)
	assert.Contains(t, html, diff.Placeholder)
}

func TestRender_PreviewNil(t *testing.T) {
	html, err := newRenderer(t).Render(TargetPreview, NewPreviewView(nil))
	require.NoError(t, err)
	assert.Empty(t, bytes.TrimSpace([]byte(html)))
}

func TestRender_ConfigFields(t *testing.T) {
	min := 1.0
	fields := []configform.Field{
		{Key: "general.name", Kind: configform.KindString, Label: "name", Section: "general", Value: `a"b`},
		{Key: "general.count", Kind: configform.KindInteger, Label: "count", Section: "general", Value: "3", Min: &min},
		{Key: "homekit", Kind: configform.KindBoolean, Label: "homekit", Checked: true},
	}

	html, err := newRenderer(t).Render(TargetConfig, ConfigView{
		Fields: fields,
		Errors: []configform.FieldError{{Key: "general.count", Err: assert.AnError}},
		JobID:  "j1",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<legend>general</legend>")
	assert.Contains(t, html, `value="a&#34;b"`)
	assert.Contains(t, html, `min="1"`)
	assert.Contains(t, html, `name="homekit" checked`)
	assert.Contains(t, html, assert.AnError.Error())
	assert.Contains(t, html, `value="reprocess"`)
}

func TestNewProjectView(t *testing.T) {
	p := &models.ProjectPreview{
		Metadata: models.ProjectMetadata{ProjectName: "House"},
		Buildings: []models.Building{{Name: "Main", Floors: []models.Floor{
			{Name: "EG", Rooms: []models.Room{{Name: "Kitchen"}, {Name: "Living"}}},
		}}},
	}

	v := NewProjectView("upload.knxproj", p)
	assert.Equal(t, "House", v.Title)
	assert.Equal(t, 1, v.Floors)
	assert.Equal(t, 2, v.Rooms)

	html, err := newRenderer(t).Render(TargetProject, v)
	require.NoError(t, err)
	assert.Contains(t, html, "Kitchen")
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+4", Signed(4))
	assert.Equal(t, "0", Signed(0))
	assert.Equal(t, "-2", Signed(-2))
}

type recordingSink struct {
	pushed map[string]string
	order  []string
}

func (s *recordingSink) Push(target, html string) {
	if s.pushed == nil {
		s.pushed = map[string]string{}
	}
	s.pushed[target] = html
	s.order = append(s.order, target)
}

func TestPresenter_PushesRenderedPanels(t *testing.T) {
	sink := &recordingSink{}
	p := NewPresenter(newRenderer(t), sink)

	p.Status("Upload failed: bad file", true)
	p.Jobs([]models.Job{
		{ID: "old", Name: "first", Created: 100, Status: models.StatusCompleted},
		{ID: "new", Name: "second", Created: 200, Status: models.StatusRunning},
	}, "old")
	p.Services([]models.ServiceStatus{{Name: "openhab", Active: true, Status: "active"}})

	assert.Equal(t, []string{TargetStatus, TargetJobs, TargetServices}, sink.order)
	assert.Contains(t, sink.pushed[TargetStatus], `class="status error"`)
	assert.Less(t, bytes.Index([]byte(sink.pushed[TargetJobs]), []byte("second")),
		bytes.Index([]byte(sink.pushed[TargetJobs]), []byte("first")))
	assert.Contains(t, sink.pushed[TargetServices], `data-service="openhab"`)
}

func TestPresenter_StatsPanelGoesThroughGate(t *testing.T) {
	sink := &recordingSink{}
	p := NewPresenter(newRenderer(t), sink)

	gate := stats.NewGate(p.StatsPanel(), p.StatsBuilder(), 0)
	gate.Render(map[string]models.FileStat{"a.items": {Before: 1, After: 2, Delta: 1}})
	gate.Wait()

	assert.Contains(t, sink.pushed[TargetStats], "a.items")
	assert.Contains(t, sink.pushed[TargetStats], `<td class="delta-up">&#43;1</td>`)
}

func TestSortJobs(t *testing.T) {
	jobs := []models.Job{{ID: "a", Created: 1}, {ID: "b", Created: 3}, {ID: "c", Created: 3}}
	sorted := SortJobs(jobs)
	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
	assert.Equal(t, "a", jobs[0].ID)
}
