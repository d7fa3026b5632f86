package dashboard

import (
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/updater"
)

// Snapshot is the state of a session at one point in time, used to render
// the initial page.
type Snapshot struct {
	ID        string
	Header    *models.BackendStatus
	Status    string
	StatusErr bool
	Jobs      []models.Job
	JobID     string
	Job       *models.Job
	Streaming bool
	Log       []models.LogEntry
	Filter    string
	LogTotal  int
	Stats     map[string]models.FileStat
	Services  []models.ServiceStatus
	Version   updater.Status
	UpdateLog string
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:        s.id,
		Header:    s.header,
		Status:    s.status,
		StatusErr: !s.statusOK && s.status != "",
		Jobs:      append([]models.Job(nil), s.jobs...),
		JobID:     s.jobID,
		Job:       s.job,
		Services:  append([]models.ServiceStatus(nil), s.services...),
		Version:   s.version,
		UpdateLog: s.updLog,
	}
	s.mu.Unlock()

	_, snap.Streaming = s.stream.ActiveJob()
	snap.Log = s.log.Visible()
	snap.Filter = s.log.Filter()
	snap.LogTotal = s.log.Len()
	snap.Stats = s.gate.Last()
	return snap
}
