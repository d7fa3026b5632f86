package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knx2openhab/dashboard/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second, opts...)
}

func TestListJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":"a1","name":"house.knxproj","status":"running","created":1700000000}]`)
	})

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a1", jobs[0].ID)
	assert.Equal(t, models.StatusRunning, jobs[0].Status)
}

func TestGetJob_TolerantStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/job/a1", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"id":"a1","status":"completed",
			"log":["plain",{"level":"error","text":"boom"}],
			"backups":[{"name":"b1","ts":"t1"},{"name":"b2","ts":"t2"}],
			"stats":{"items/knx.items":{"before":"x","after":4}}
		}`)
	})

	job, err := c.GetJob(context.Background(), "a1")
	require.NoError(t, err)
	assert.Len(t, job.Log, 2)
	latest, ok := job.LatestBackup()
	require.True(t, ok)
	assert.Equal(t, "b2", latest.Name)
	assert.Equal(t, models.FileStat{Before: 0, After: 4, Delta: 4}, job.Stats["items/knx.items"])
}

func TestPatchJobLog(t *testing.T) {
	var got struct {
		Log []models.LogEntry `json:"log"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.PatchJobLog(context.Background(), "a1", []models.LogEntry{{Level: models.LevelInfo, Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, []models.LogEntry{{Level: models.LevelInfo, Text: "hi"}}, got.Log)
}

func TestRollback_FailureEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/job/a1/rollback", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "b1", body["backup"])
		_, _ = io.WriteString(w, `{"ok":false,"error":"backup missing"}`)
	})

	res, err := c.Rollback(context.Background(), "a1", "b1")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "backup missing", res.Message())
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"disk full"}`)
	})

	_, err := c.Rerun(context.Background(), "a1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "disk full", Message(err))
	assert.Contains(t, err.Error(), "/api/job/a1/rerun")
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFilePreviewQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/file/preview", r.URL.Path)
		assert.Equal(t, `things\knx.things`, r.URL.Query().Get("path"))
		assert.Equal(t, "b1", r.URL.Query().Get("backup"))
		assert.False(t, r.URL.Query().Has("job_id"))
		_, _ = io.WriteString(w, `{"content":"a\nb","size":3}`)
	})

	fc, err := c.FilePreview(context.Background(), `things\knx.things`, "b1", "")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", fc.Content)
	assert.EqualValues(t, 3, fc.Size)
}

func TestUploadProject_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "house.knxproj", hdr.Filename)
		assert.Equal(t, "zipdata", string(body))
		assert.Equal(t, "secret", r.FormValue("password"))
		_, _ = io.WriteString(w, `{"id":"new","status":"queued"}`)
	})

	job, err := c.UploadProject(context.Background(), Upload{
		Filename: "house.knxproj",
		Body:     strings.NewReader("zipdata"),
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", job.ID)
	assert.Equal(t, models.StatusQueued, job.Status)
}

func TestBasicAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "pw", pass)
		_, _ = io.WriteString(w, `{"jobs_total":3,"jobs_running":1}`)
	}, WithBasicAuth("admin", "pw"))

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.JobsTotal)
	assert.Equal(t, 1, st.JobsRunning)
}

func TestServiceStatus_SetsName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/service/openhab/status", r.URL.Path)
		_, _ = io.WriteString(w, `{"active":true,"status":"active","uptime_str":"2h"}`)
	})

	st, err := c.ServiceStatus(context.Background(), "openhab")
	require.NoError(t, err)
	assert.Equal(t, "openhab", st.Name)
	assert.True(t, st.Active)
	assert.Equal(t, "2h", st.UptimeStr)
}

func TestGetConfig_NullBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})

	doc, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Empty(t, doc)
}

func TestEvents_StreamsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/job/a1/events", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: done\ndata: {}\n\n")
	})

	body, err := c.Events(context.Background(), "a1")
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "event: done\ndata: {}\n\n", string(raw))
}

func TestEvents_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Events(context.Background(), "a1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}
