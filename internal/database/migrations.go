package database

import (
	"database/sql"
	"fmt"
	"log"
)

type migration struct {
	name string
	up   func(*sql.DB) error
}

var migrations = []migration{
	{"create_dashboard_sessions_table", execAll(
		`CREATE TABLE IF NOT EXISTS dashboard_sessions (
			id TEXT PRIMARY KEY,
			current_job_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dashboard_sessions_updated_at ON dashboard_sessions(updated_at)`,
	)},
	{"create_action_journal_table", execAll(
		`CREATE TABLE IF NOT EXISTS action_journal (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			job_id TEXT NOT NULL DEFAULT '',
			target TEXT NOT NULL DEFAULT '',
			ok BOOLEAN NOT NULL DEFAULT TRUE,
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_action_journal_job_id ON action_journal(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_action_journal_created_at ON action_journal(created_at)`,
	)},
	{"create_log_mirror_table", execAll(
		`CREATE TABLE IF NOT EXISTS log_mirror (
			job_id TEXT PRIMARY KEY,
			entries TEXT NOT NULL DEFAULT '[]',
			entry_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	)},
	{"add_sessions_log_filter_column", func(db *sql.DB) error {
		return addColumnIfMissing(db, "dashboard_sessions", "log_filter", "TEXT NOT NULL DEFAULT 'all'")
	}},
}

func execAll(statements ...string) func(*sql.DB) error {
	return func(db *sql.DB) error {
		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		done, err := hasMigrationRun(db, m.name)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if err := recordMigration(db, m.name, batch); err != nil {
			return err
		}
		log.Printf("[Database] Applied migration %s", m.name)
	}
	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration TEXT UNIQUE NOT NULL,
		batch INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func nextBatch(db *sql.DB) (int, error) {
	var batch sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(batch) FROM migrations`).Scan(&batch); err != nil {
		return 0, fmt.Errorf("failed to read migration batch: %w", err)
	}
	return int(batch.Int64) + 1, nil
}

func hasMigrationRun(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM migrations WHERE migration = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return count > 0, nil
}

func recordMigration(db *sql.DB, name string, batch int) error {
	_, err := db.Exec(`INSERT INTO migrations (migration, batch) VALUES (?, ?)`, name, batch)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func addColumnIfMissing(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition))
	return err
}
