package events

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 34, 56, 0, time.UTC)

func TestDecoder(t *testing.T) {
	stream := ": keepalive\n" +
		"data: first\n\n" +
		"id: 7\r\nevent: progress\r\ndata:a\r\ndata: b\r\n\r\n" +
		"retry: 250\n\n" +
		"event: done\ndata: {}\n\n" +
		"data: trailing"

	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "first"}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{ID: "7", Name: "progress", Data: "a\nb"}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Name: "done", Data: "{}", Retry: 250}, ev)
	assert.Equal(t, 250*time.Millisecond, dec.Retry())

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_RetryOnlyFrame(t *testing.T) {
	dec := NewDecoder(strings.NewReader("retry: 5000\n\ndata: x\n\nretry: bogus\n\ndata: y\n\n"))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "x", Retry: 5000}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Data: "y", Retry: 5000}, ev)

	assert.Equal(t, 5*time.Second, dec.Retry())
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name  string
		msg   models.StreamMessage
		level models.LogLevel
		text  string
	}{
		{"log uses level", models.StreamMessage{Type: "log", Message: "careful", Level: models.LevelWarning}, models.LevelWarning, "[12:34:56] [WARNING] careful"},
		{"log without level", models.StreamMessage{Type: "log", Message: "plain"}, models.LevelInfo, "[12:34:56] [INFO] plain"},
		{"status type", models.StreamMessage{Type: "status", Message: "running"}, models.LevelStatus, "[12:34:56] [STATUS] running"},
		{"backup type", models.StreamMessage{Type: "backup", Message: "saved"}, models.LevelBackup, "[12:34:56] [BACKUP] saved"},
		{"error type", models.StreamMessage{Type: "error", Message: "bad"}, models.LevelError, "[12:34:56] [ERROR] bad"},
		{"unknown type", models.StreamMessage{Type: "progress", Message: "50%"}, models.LevelInfo, "[12:34:56] [PROGRESS] 50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := FormatMessage(tt.msg, fixedNow)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.text, entry.Text)
		})
	}
}

func TestEntry_MalformedData(t *testing.T) {
	assert.Equal(t, models.LogEntry{Level: models.LevelInfo, Text: "not json"}, Entry("not json", fixedNow))
	assert.Equal(t, models.LogEntry{Level: models.LevelInfo, Text: `{"message":"x"}`}, Entry(`{"message":"x"}`, fixedNow))
}

// recorder collects handler callbacks.
type recorder struct {
	mu      sync.Mutex
	entries map[string][]models.LogEntry
	done    chan string
	errs    chan error
}

func newRecorder() *recorder {
	return &recorder{
		entries: map[string][]models.LogEntry{},
		done:    make(chan string, 4),
		errs:    make(chan error, 4),
	}
}

func (r *recorder) handler() Handler {
	return Handler{
		OnMessage: func(jobID string, e models.LogEntry) {
			r.mu.Lock()
			r.entries[jobID] = append(r.entries[jobID], e)
			r.mu.Unlock()
		},
		OnDone:  func(jobID string) { r.done <- jobID },
		OnError: func(jobID string, err error) { r.errs <- err },
	}
}

func (r *recorder) count(jobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[jobID])
}

func (r *recorder) get(jobID string) []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LogEntry(nil), r.entries[jobID]...)
}

func writeEvent(t *testing.T, w http.ResponseWriter, ev sse.Event) {
	t.Helper()
	require.NoError(t, sse.Encode(w, ev))
	w.(http.Flusher).Flush()
}

func newController(t *testing.T, h http.HandlerFunc, rec *recorder) *Controller {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewController(client.New(srv.URL, time.Second), rec.handler())
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestController_DeliversUntilDone(t *testing.T) {
	rec := newRecorder()
	c := newController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(t, w, sse.Event{Data: models.StreamMessage{Type: "info", Message: "parsing"}})
		writeEvent(t, w, sse.Event{Data: "garbage"})
		writeEvent(t, w, sse.Event{Event: DoneEvent, Data: map[string]string{"status": "done"}})
	}, rec)

	sub, err := c.Start(context.Background(), "job1")
	require.NoError(t, err)

	select {
	case id := <-rec.done:
		assert.Equal(t, "job1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("done event not handled")
	}
	<-sub.Done()

	assert.Nil(t, c.Active())
	assert.Equal(t, []models.LogEntry{
		{Level: models.LevelInfo, Text: "[12:34:56] [INFO] parsing"},
		{Level: models.LevelInfo, Text: "garbage"},
	}, rec.get("job1"))
}

// chattyHandler streams a message every few milliseconds until the client
// goes away.
func chattyHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		tick := time.NewTicker(2 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-tick.C:
				if err := sse.Encode(w, sse.Event{Data: models.StreamMessage{Type: "log", Message: "tick"}}); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			}
		}
	}
}

func TestController_StartClosesPrevious(t *testing.T) {
	rec := newRecorder()
	c := newController(t, chattyHandler(t), rec)

	first, err := c.Start(context.Background(), "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count("a") > 0 }, 2*time.Second, time.Millisecond)

	second, err := c.Start(context.Background(), "b")
	require.NoError(t, err)
	seen := rec.count("a")

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("previous subscription still running")
	}
	require.Eventually(t, func() bool { return rec.count("b") > 0 }, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, seen, rec.count("a"), "no delivery after the channel was replaced")
	assert.Same(t, second, c.Active())

	c.Stop()
	<-second.Done()
	assert.Nil(t, c.Active())
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	rec := newRecorder()
	c := newController(t, chattyHandler(t), rec)

	sub, err := c.Start(context.Background(), "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count("a") > 2 }, 2*time.Second, time.Millisecond)

	sub.Close()
	seen := rec.count("a")
	<-sub.Done()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seen, rec.count("a"))

	select {
	case <-rec.done:
		t.Fatal("closing must not run the done handler")
	default:
	}
}

func TestController_OpenError(t *testing.T) {
	rec := newRecorder()
	c := newController(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}, rec)

	sub, err := c.Start(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, sub)
	assert.Nil(t, c.Active())
}

func TestController_ReconnectsAfterDrop(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	rec := newRecorder()
	c := newController(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			writeEvent(t, w, sse.Event{Data: models.StreamMessage{Type: "status", Message: "running"}})
			return
		}
		writeEvent(t, w, sse.Event{Event: DoneEvent, Data: "{}"})
	}, rec)
	c.SetReconnectDelay(5 * time.Millisecond)

	_, err := c.Start(context.Background(), "job1")
	require.NoError(t, err)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not reopened")
	}
	assert.Equal(t, []models.LogEntry{{Level: models.LevelStatus, Text: "[12:34:56] [STATUS] running"}}, rec.get("job1"))
}

func TestController_ReconnectUsesServerRetry(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	rec := newRecorder()
	c := newController(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			_, _ = io.WriteString(w, "retry: 10\n\n")
			return
		}
		writeEvent(t, w, sse.Event{Event: DoneEvent, Data: "{}"})
	}, rec)
	c.SetReconnectDelay(time.Minute)

	_, err := c.Start(context.Background(), "job1")
	require.NoError(t, err)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("server retry hint was not used for the reconnect")
	}
}

func TestController_ReconnectFailureReportsError(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	rec := newRecorder()
	c := newController(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n > 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	}, rec)
	c.SetReconnectDelay(5 * time.Millisecond)

	_, err := c.Start(context.Background(), "job1")
	require.NoError(t, err)

	select {
	case err := <-rec.errs:
		assert.True(t, client.IsNotFound(err))
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
	assert.Nil(t, c.Active())
}
