// Package services provides persistence for dashboard sessions, the local
// action journal and the job log mirror.
package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/knx2openhab/dashboard/internal/database"
)

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMirrorNotFound indicates no mirrored log exists for a job.
	ErrMirrorNotFound = errors.New("no mirrored log")
)

// SessionRecord is the persisted part of a dashboard session.
type SessionRecord struct {
	ID           string    `json:"id"`
	CurrentJobID string    `json:"current_job_id"`
	LogFilter    string    `json:"log_filter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionService stores which job each browser session was looking at so a
// reload restores the selection.
type SessionService struct {
	db *database.DB
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(db *database.DB) *SessionService {
	return &SessionService{db: db}
}

// Create inserts a new empty session.
func (s *SessionService) Create() (*SessionRecord, error) {
	id := uuid.New().String()
	if _, err := s.db.Exec(`INSERT INTO dashboard_sessions (id) VALUES (?)`, id); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Get returns the session with the given id.
func (s *SessionService) Get(id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRow(
		`SELECT id, current_job_id, log_filter, created_at, updated_at FROM dashboard_sessions WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.CurrentJobID, &rec.LogFilter, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetCurrentJob records the selected job of a session.
func (s *SessionService) SetCurrentJob(id, jobID string) error {
	return s.update(id, `UPDATE dashboard_sessions SET current_job_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, jobID)
}

// SetLogFilter records the log filter of a session.
func (s *SessionService) SetLogFilter(id, level string) error {
	return s.update(id, `UPDATE dashboard_sessions SET log_filter = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, level)
}

func (s *SessionService) update(id, query, value string) error {
	res, err := s.db.Exec(query, value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session.
func (s *SessionService) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM dashboard_sessions WHERE id = ?`, id)
	return err
}

// Purge removes sessions idle for longer than maxAge and returns how many
// were deleted.
func (s *SessionService) Purge(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format("2006-01-02 15:04:05")
	res, err := s.db.Exec(`DELETE FROM dashboard_sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
