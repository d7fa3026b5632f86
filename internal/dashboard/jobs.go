package dashboard

import (
	"context"
	"fmt"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/services"
	"github.com/knx2openhab/dashboard/internal/validation"
)

// RefreshJobs reloads the job list and the backend counters.
func (s *Session) RefreshJobs(ctx context.Context) error {
	jobs, err := s.deps.Backend.ListJobs(ctx)
	if err != nil {
		return s.fail("Loading jobs", err)
	}

	s.mu.Lock()
	s.jobs = jobs
	selected := s.jobID
	s.mu.Unlock()
	s.view.Jobs(jobs, selected)

	if st, err := s.deps.Backend.Status(ctx); err == nil {
		s.mu.Lock()
		s.header = st
		s.mu.Unlock()
		s.view.Header(st)
	} else {
		s.debugf("%s: status unavailable: %v", s.id, err)
	}
	return nil
}

// ShowJob selects a job: its detail replaces the detail panel, its log
// replaces the log and its stats are rendered. A job that is still running
// gets its event channel attached; any channel for another job is closed.
func (s *Session) ShowJob(ctx context.Context, id string) error {
	if err := validation.ValidateJobID(id); err != nil {
		return s.fail("Loading job", err)
	}
	job, err := s.deps.Backend.GetJob(ctx, id)
	if err != nil {
		return s.fail("Loading job", err)
	}

	if active, ok := s.stream.ActiveJob(); ok && active != id {
		s.stream.Stop()
	}

	s.mu.Lock()
	s.jobID = id
	s.job = job
	jobs := s.jobs
	s.mu.Unlock()
	s.persistSelection(id)

	s.bindLog(id)
	s.loadLog(job)

	_, streaming := s.stream.ActiveJob()
	s.view.Jobs(jobs, id)
	s.view.Job(job, streaming)
	s.gate.Render(job.Stats)

	if !job.Status.Terminal() && !streaming {
		return s.StartEvents(id)
	}
	return nil
}

// loadLog replaces the log with the job's history, falling back to the
// local mirror when the backend copy is empty.
func (s *Session) loadLog(job *models.Job) {
	if len(job.Log) > 0 || s.deps.Mirror == nil {
		s.log.LoadJSON(job.Log)
		return
	}
	mirrored, err := s.deps.Mirror.Load(job.ID)
	if err != nil {
		s.log.LoadJSON(job.Log)
		return
	}
	items := make([]any, 0, len(mirrored))
	for _, e := range mirrored {
		items = append(items, e)
	}
	s.log.Load(items)
}

// bindLog points log persistence at jobID.
func (s *Session) bindLog(jobID string) {
	backend, mirror := s.deps.Backend, s.deps.Mirror
	s.log.SetPersister(func(entries []models.LogEntry) error {
		if mirror != nil {
			if err := mirror.Save(jobID, entries); err != nil {
				s.debugf("%s: mirror write for %s failed: %v", s.id, jobID, err)
			}
		}
		err := backend.PatchJobLog(s.ctx, jobID, entries)
		if err != nil {
			s.debugf("%s: log patch for %s failed: %v", s.id, jobID, err)
		}
		return err
	})
}

// Upload submits a project export and selects the new job, which attaches
// its event channel while it is still running.
func (s *Session) Upload(ctx context.Context, u client.Upload) (*models.Job, error) {
	if err := validation.ValidateUploadName(u.Filename); err != nil {
		return nil, s.fail("Upload", err)
	}
	s.info("Uploading %s...", u.Filename)

	job, err := s.deps.Backend.UploadProject(ctx, u)
	if err != nil {
		s.record(services.ActionUpload, "", u.Filename, false, client.Message(err))
		return nil, s.fail("Upload", err)
	}
	s.record(services.ActionUpload, job.ID, u.Filename, true, "")
	s.info("Job started: %s", job.ID)

	_ = s.RefreshJobs(ctx)
	// The job exists from here on; failing to select it or to attach its
	// channel is reported through the status panel only.
	if err := s.ShowJob(ctx, job.ID); err != nil {
		s.debugf("%s: showing uploaded job %s failed: %v", s.id, job.ID, err)
	}
	return job, nil
}

// PreviewProject parses an export without creating a job and shows its
// building tree.
func (s *Session) PreviewProject(ctx context.Context, u client.Upload) error {
	if err := validation.ValidateUploadName(u.Filename); err != nil {
		return s.fail("Project preview", err)
	}
	p, err := s.deps.Backend.PreviewProject(ctx, u)
	if err != nil {
		return s.fail("Project preview", err)
	}
	s.view.Project(u.Filename, p)
	return nil
}

// JobPreview shows the building tree parsed by a job.
func (s *Session) JobPreview(ctx context.Context, id string) error {
	if err := validation.ValidateJobID(id); err != nil {
		return s.fail("Building preview", err)
	}
	p, err := s.deps.Backend.JobPreview(ctx, id)
	if err != nil {
		return s.fail("Building preview", err)
	}
	s.view.Project(s.jobName(id), p)
	return nil
}

// CloseProject hides the building tree.
func (s *Session) CloseProject() {
	s.view.Project("", nil)
}

func (s *Session) jobName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil && s.job.ID == id && s.job.Name != "" {
		return s.job.Name
	}
	for _, j := range s.jobs {
		if j.ID == id && j.Name != "" {
			return j.Name
		}
	}
	return id
}

// Rollback restores a backup of the selected job. An empty name selects
// the latest backup.
func (s *Session) Rollback(ctx context.Context, backup string) error {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return s.fail("Rollback", ErrNoJobSelected)
	}
	if backup == "" {
		latest, ok := job.LatestBackup()
		if !ok {
			return s.fail("Rollback", fmt.Errorf("job %s has no backups", job.ID))
		}
		backup = latest.Name
	}
	if err := validation.ValidateBackupName(backup); err != nil {
		return s.fail("Rollback", err)
	}

	s.info("Rolling back to %s...", backup)
	res, err := s.deps.Backend.Rollback(ctx, job.ID, backup)
	if err != nil {
		s.record(services.ActionRollback, job.ID, backup, false, client.Message(err))
		return s.fail("Rollback", err)
	}
	s.record(services.ActionRollback, job.ID, backup, res.OK, res.Message())
	if !res.OK {
		return s.fail("Rollback", fmt.Errorf("%s", res.Message()))
	}
	s.info("Rollback successful: %s", res.Output)
	return nil
}

// DeleteJob removes a job. Deleting the selected job clears the selection.
func (s *Session) DeleteJob(ctx context.Context, id string) error {
	if err := validation.ValidateJobID(id); err != nil {
		return s.fail("Delete", err)
	}
	if err := s.deps.Backend.DeleteJob(ctx, id); err != nil {
		s.record(services.ActionDeleteJob, id, "", false, client.Message(err))
		return s.fail("Delete", err)
	}
	s.record(services.ActionDeleteJob, id, "", true, "")
	if s.deps.Mirror != nil {
		_ = s.deps.Mirror.Delete(id)
	}

	if s.CurrentJob() == id {
		if active, ok := s.stream.ActiveJob(); ok && active == id {
			s.stream.Stop()
		}
		s.mu.Lock()
		s.jobID = ""
		s.job = nil
		s.preview = nil
		s.mu.Unlock()
		s.persistSelection("")
		s.log.SetPersister(nil)
		s.log.Load(nil)
		s.view.Job(nil, false)
		s.view.Preview(nil)
		s.gate.Render(nil)
	}
	s.info("Job %s deleted", id)
	return s.RefreshJobs(ctx)
}

// Rerun starts a new job from the input of id and selects it.
func (s *Session) Rerun(ctx context.Context, id string) (*models.Job, error) {
	if err := validation.ValidateJobID(id); err != nil {
		return nil, s.fail("Rerun", err)
	}
	job, err := s.deps.Backend.Rerun(ctx, id)
	if err != nil {
		s.record(services.ActionRerun, id, "", false, client.Message(err))
		return nil, s.fail("Rerun", err)
	}
	s.record(services.ActionRerun, id, job.ID, true, "")
	s.info("Job %s started from %s", job.ID, id)

	_ = s.RefreshJobs(ctx)
	if err := s.ShowJob(ctx, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// Deploy copies the staged output of a job into the live configuration.
func (s *Session) Deploy(ctx context.Context, id string) error {
	if err := validation.ValidateJobID(id); err != nil {
		return s.fail("Deploy", err)
	}
	res, err := s.deps.Backend.Deploy(ctx, id)
	if err != nil {
		s.record(services.ActionDeploy, id, "", false, client.Message(err))
		return s.fail("Deploy", err)
	}
	s.record(services.ActionDeploy, id, "", res.OK, res.Message())
	if !res.OK {
		return s.fail("Deploy", fmt.Errorf("%s", res.Message()))
	}
	s.info("Deployed job %s", id)

	if s.CurrentJob() == id {
		if job, err := s.deps.Backend.GetJob(ctx, id); err == nil {
			s.mu.Lock()
			s.job = job
			s.mu.Unlock()
			_, streaming := s.stream.ActiveJob()
			s.view.Job(job, streaming)
		}
	}
	return s.RefreshJobs(ctx)
}
