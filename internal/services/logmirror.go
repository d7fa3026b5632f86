package services

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/knx2openhab/dashboard/internal/database"
	"github.com/knx2openhab/dashboard/internal/models"
)

// LogMirrorService keeps a local copy of every job log the dashboard has
// pushed to the backend.
type LogMirrorService struct {
	db *database.DB
}

// NewLogMirrorService creates a new LogMirrorService instance.
func NewLogMirrorService(db *database.DB) *LogMirrorService {
	return &LogMirrorService{db: db}
}

// Save replaces the mirrored log of a job.
func (s *LogMirrorService) Save(jobID string, entries []models.LogEntry) error {
	if entries == nil {
		entries = []models.LogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode log of job %s: %w", jobID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO log_mirror (job_id, entries, entry_count, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(job_id) DO UPDATE SET
			entries = excluded.entries,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at
	`, jobID, string(data), len(entries))
	return err
}

// Load returns the mirrored log of a job.
func (s *LogMirrorService) Load(jobID string) ([]models.LogEntry, error) {
	var data string
	err := s.db.QueryRow(`SELECT entries FROM log_mirror WHERE job_id = ?`, jobID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrMirrorNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []models.LogEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode log of job %s: %w", jobID, err)
	}
	return entries, nil
}

// Delete drops the mirrored log of a job.
func (s *LogMirrorService) Delete(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM log_mirror WHERE job_id = ?`, jobID)
	return err
}
