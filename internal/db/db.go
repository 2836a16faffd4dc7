package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file created inside the data directory.
const FileName = "submissions.db"

// Init initializes the SQLite database at dir/submissions.db.
// The dir parameter allows tests to use t.TempDir().
func Init(dir string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(dir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: submissions table
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS submissions (
		  seq                        INTEGER PRIMARY KEY AUTOINCREMENT,
		  id                         TEXT NOT NULL UNIQUE,
		  timestamp                  TEXT NOT NULL,
		  name                       TEXT NOT NULL DEFAULT '',
		  email                      TEXT NOT NULL DEFAULT '',
		  car                        TEXT NOT NULL DEFAULT '',
		  phone                      TEXT NOT NULL DEFAULT '',
		  is_mobile                  TEXT NOT NULL DEFAULT '',
		  contact_method             TEXT NOT NULL DEFAULT '',
		  best_time_to_call          TEXT NOT NULL DEFAULT '',
		  preferred_appointment_time TEXT NOT NULL DEFAULT '',
		  message                    TEXT NOT NULL DEFAULT '',
		  vehicle_type               TEXT NOT NULL DEFAULT '',
		  services                   TEXT NOT NULL DEFAULT '',
		  total                      TEXT NOT NULL DEFAULT '',
		  status                     TEXT NOT NULL DEFAULT 'inbox'
		);

		CREATE INDEX IF NOT EXISTS idx_submissions_status
		ON submissions(status, seq);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
