package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/dsautocare/site/internal/db"
	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/submission"
)

// SQLiteStore keeps submissions in an embedded SQLite database and mirrors
// them to a CSV snapshot for attachments and backups.
type SQLiteStore struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// NewSQLite opens (creating if needed) the database in dir.
func NewSQLite(dir string) (*SQLiteStore, error) {
	database, err := db.Init(dir)
	if err != nil {
		return nil, errors.NewStorage("open", err)
	}
	s := &SQLiteStore{db: database, dir: dir, now: time.Now}
	s.refreshSnapshot(context.Background())
	return s, nil
}

// Path returns the CSV snapshot of the database contents.
func (s *SQLiteStore) Path() string { return snapshotPath(s.dir) }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Append inserts a new inbox record.
func (s *SQLiteStore) Append(ctx context.Context, f submission.Fields) (*submission.Submission, error) {
	rec := submission.New(f, s.now())
	if err := db.Insert(ctx, s.db, &rec); err != nil {
		slog.Warn("append failed", "op", "append", "id", rec.ID, "error", err)
		return &rec, errors.NewStorage("append", err)
	}
	s.refreshSnapshot(ctx)
	return &rec, nil
}

// ReadAll returns every record in insertion order with statuses normalized.
// Query failures are logged and yield no records.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]submission.Submission, error) {
	records, err := db.ListAll(ctx, s.db)
	if err != nil {
		slog.Warn("store unreadable, treating as empty", "op", "read_all", "error", err)
		return []submission.Submission{}, nil
	}

	heal := false
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = submission.NewID()
			heal = true
		}
		records[i].Status = submission.NormalizeStatus(string(records[i].Status))
	}
	if heal {
		if err := s.WriteAll(ctx, records); err != nil {
			slog.Warn("store heal not persisted", "op", "read_all", "error", err)
		}
	}
	return records, nil
}

// ReadStrict returns every record, reporting query failures as STORAGE errors.
func (s *SQLiteStore) ReadStrict(ctx context.Context) ([]submission.Submission, error) {
	records, err := db.ListAll(ctx, s.db)
	if err != nil {
		return nil, errors.NewStorage("read_all", err)
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = submission.NewID()
		}
		records[i].Status = submission.NormalizeStatus(string(records[i].Status))
	}
	return records, nil
}

// WriteAll replaces every row in a single transaction.
func (s *SQLiteStore) WriteAll(ctx context.Context, records []submission.Submission) error {
	if err := db.ReplaceAll(ctx, s.db, records); err != nil {
		slog.Warn("store write failed", "op", "write_all", "records", len(records), "error", err)
		return errors.NewStorage("write_all", err)
	}
	s.refreshSnapshot(ctx)
	return nil
}

// refreshSnapshot rewrites the CSV mirror. The database stays authoritative,
// so a failed refresh is only logged.
func (s *SQLiteStore) refreshSnapshot(ctx context.Context) {
	records, err := db.ListAll(ctx, s.db)
	if err == nil {
		err = writeFileAtomic(s.Path(), func(w io.Writer) error {
			return encodeCSV(w, records)
		})
	}
	if err != nil {
		slog.Warn("csv snapshot not refreshed", "op", "snapshot", "error", err)
	}
}
