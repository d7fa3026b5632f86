package dashboard

import (
	"context"
	"time"

	"github.com/knx2openhab/dashboard/internal/events"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/validation"
)

// StartEvents attaches the event channel of jobID, replacing any open one.
func (s *Session) StartEvents(jobID string) error {
	if err := validation.ValidateJobID(jobID); err != nil {
		return s.fail("Event stream", err)
	}
	if s.isClosed() {
		return ErrSessionClosed
	}
	if _, err := s.stream.Start(s.ctx, jobID); err != nil {
		return s.fail("Event stream", err)
	}

	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job != nil && job.ID == jobID {
		s.view.Job(job, true)
	}
	return nil
}

// StopEvents closes the event channel.
func (s *Session) StopEvents() {
	s.stream.Stop()
}

// Attach registers a connected view. The first view to arrive after the
// channel was closed by Detach reloads the selected job, which reattaches
// the channel if the job is still running.
func (s *Session) Attach() {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.viewers++
	if s.viewers != 1 || !s.detached {
		return
	}
	s.detached = false

	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil || job.Status.Terminal() {
		return
	}
	if _, streaming := s.stream.ActiveJob(); streaming {
		return
	}
	id := job.ID
	s.background(func(ctx context.Context) {
		_ = s.ShowJob(ctx, id)
	})
}

// Detach unregisters a view. When the last view leaves, the event channel
// is closed until the next Attach.
func (s *Session) Detach() {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if s.viewers > 0 {
		s.viewers--
	}
	if s.viewers > 0 {
		return
	}
	if jobID, streaming := s.stream.ActiveJob(); streaming {
		s.debugf("%s: last view left, closing channel of %s", s.id, jobID)
		s.detached = true
		s.StopEvents()
	}
}

func (s *Session) onStreamMessage(jobID string, entry models.LogEntry) {
	if s.CurrentJob() != jobID {
		return
	}
	s.log.Append(entry)
}

// onStreamDone runs after the channel closed itself on the done event:
// final log line, persist, then refetch the job for its final status and
// stats and refresh the list.
func (s *Session) onStreamDone(jobID string) {
	s.inline(func(ctx context.Context) {
		if s.CurrentJob() == jobID {
			s.log.Append(events.FormatMessage(models.StreamMessage{Type: "done", Message: events.FinishedText}, time.Now()))
			if err := s.log.Persist(); err != nil {
				s.debugf("%s: final log persist for %s failed: %v", s.id, jobID, err)
			}

			job, err := s.deps.Backend.GetJob(ctx, jobID)
			if err != nil {
				_ = s.fail("Loading job", err)
			} else if s.CurrentJob() == jobID {
				s.mu.Lock()
				s.job = job
				s.mu.Unlock()
				_, streaming := s.stream.ActiveJob()
				s.view.Job(job, streaming)
				s.gate.Render(job.Stats)
				s.info("Job %s %s", jobID, job.Status)
			}
		}
		_ = s.RefreshJobs(ctx)
	})
}

// onStreamError runs when a dropped channel could not be reopened.
func (s *Session) onStreamError(jobID string, err error) {
	if s.CurrentJob() != jobID {
		return
	}
	s.inline(func(ctx context.Context) {
		_ = s.fail("Event stream", err)
		s.mu.Lock()
		job := s.job
		s.mu.Unlock()
		if job != nil && job.ID == jobID {
			s.view.Job(job, false)
		}
	})
}

// SetLogFilter changes the visible log level.
func (s *Session) SetLogFilter(level string) error {
	if err := s.log.SetFilter(level); err != nil {
		return s.fail("Filter", err)
	}
	if s.deps.Sessions != nil {
		if err := s.deps.Sessions.SetLogFilter(s.id, s.log.Filter()); err != nil {
			s.debugf("%s: failed to store filter: %v", s.id, err)
		}
	}
	return nil
}
