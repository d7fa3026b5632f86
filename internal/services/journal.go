package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/knx2openhab/dashboard/internal/database"
)

// Journal actions.
const (
	ActionUpload         = "upload"
	ActionRollback       = "rollback"
	ActionDeleteJob      = "delete_job"
	ActionRerun          = "rerun"
	ActionDeploy         = "deploy"
	ActionRestartService = "restart_service"
	ActionSaveConfig     = "save_config"
	ActionUpdate         = "update"
)

// JournalService records the user actions taken through the dashboard.
type JournalService struct {
	db *database.DB
}

// NewJournalService creates a new JournalService instance.
func NewJournalService(db *database.DB) *JournalService {
	return &JournalService{db: db}
}

// JournalEntry is one recorded action.
type JournalEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Action    string    `json:"action"`
	JobID     string    `json:"job_id,omitempty"`
	Target    string    `json:"target,omitempty"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Record stores an entry. Failures are logged and returned but callers
// treat the journal as best effort.
func (s *JournalService) Record(e JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO action_journal (id, session_id, action, job_id, target, ok, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SessionID, e.Action, e.JobID, e.Target, e.OK, e.Message)
	if err != nil {
		log.Printf("[Journal] Failed to record %s: %v", e.Action, err)
	}
	return err
}

// List returns the most recent entries first.
func (s *JournalService) List(limit, offset int) ([]JournalEntry, error) {
	if limit == 0 {
		limit = 50
	}
	return s.query(`
		SELECT id, session_id, action, job_id, target, ok, message, created_at
		FROM action_journal
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

// ListForJob returns the entries recorded against one job, newest first.
func (s *JournalService) ListForJob(jobID string, limit int) ([]JournalEntry, error) {
	if limit == 0 {
		limit = 50
	}
	return s.query(`
		SELECT id, session_id, action, job_id, target, ok, message, created_at
		FROM action_journal
		WHERE job_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, jobID, limit)
}

func (s *JournalService) query(q string, args ...any) ([]JournalEntry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]JournalEntry, 0)
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Action, &e.JobID, &e.Target, &e.OK, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
