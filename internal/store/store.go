// Package store persists submissions.
//
// Every mutation is a whole-store read-modify-write through WriteAll; there is no
// internal locking, so two concurrent writers race and the last WriteAll wins.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dsautocare/site/internal/submission"
)

// Store is a durable, ordered collection of submissions.
type Store interface {
	// Append adds a new inbox submission built from f. On failure the built
	// record is still returned alongside a STORAGE error so callers can report it.
	Append(ctx context.Context, f submission.Fields) (*submission.Submission, error)

	// ReadAll returns every submission in append order. Unreadable storage
	// yields an empty result rather than an error.
	ReadAll(ctx context.Context) ([]submission.Submission, error)

	// WriteAll replaces the entire store with records.
	WriteAll(ctx context.Context, records []submission.Submission) error

	// Path is a CSV file holding the current contents, for attachments and backups.
	Path() string

	Close() error
}

// StrictReader is implemented by stores whose ReadAll degrades an unreadable
// store to an empty result. ReadStrict reports that failure instead.
type StrictReader interface {
	ReadStrict(ctx context.Context) ([]submission.Submission, error)
}

// Backend names accepted by Open.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Options selects and locates a backend.
type Options struct {
	Backend   string // "csv" (default) or "sqlite"
	CSVPath   string // csv backend: the store file
	SQLiteDir string // sqlite backend: directory holding the database and its CSV snapshot
}

// Open constructs the configured backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendCSV:
		if opts.CSVPath == "" {
			return nil, fmt.Errorf("csv store path is required")
		}
		return NewCSV(opts.CSVPath), nil
	case BackendSQLite:
		if opts.SQLiteDir == "" {
			return nil, fmt.Errorf("sqlite directory is required")
		}
		return NewSQLite(opts.SQLiteDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// snapshotPath is where the sqlite backend keeps its CSV mirror.
func snapshotPath(dir string) string {
	return filepath.Join(dir, "submissions.csv")
}
