package store

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/submission"
)

// CSVStore keeps submissions in a single flat CSV file.
type CSVStore struct {
	path string
	now  func() time.Time
}

// NewCSV returns a store backed by the CSV file at path.
// The file and its directory are created on first write.
func NewCSV(path string) *CSVStore {
	return &CSVStore{path: path, now: time.Now}
}

// Path returns the store file.
func (s *CSVStore) Path() string { return s.path }

// Close is a no-op; the file is opened per operation.
func (s *CSVStore) Close() error { return nil }

// ReadAll loads every record, healing legacy files on the way.
// A file without a status column, or with rows lacking an id, is rewritten
// once in the canonical schema. Read failures are logged and yield no records.
func (s *CSVStore) ReadAll(ctx context.Context) ([]submission.Submission, error) {
	records, heal, err := s.load()
	if err != nil {
		slog.Warn("store unreadable, treating as empty", "op", "read_all", "path", s.path, "error", err)
		return []submission.Submission{}, nil
	}

	if heal != "" {
		slog.Info("rewriting store file", "op", "read_all", "reason", heal, "records", len(records))
		if err := s.WriteAll(ctx, records); err != nil {
			slog.Warn("store heal not persisted", "op", "read_all", "error", err)
		}
	}
	return records, nil
}

// ReadStrict is ReadAll without the degradation: a file that exists but cannot
// be read or parsed is reported as a STORAGE error. Bulk writers use it so an
// unreadable file is never replaced by a partial one.
func (s *CSVStore) ReadStrict(ctx context.Context) ([]submission.Submission, error) {
	records, _, err := s.load()
	if err != nil {
		return nil, errors.NewStorage("read_all", err)
	}
	return records, nil
}

// load decodes the file, assigns missing ids and normalizes statuses.
// heal names the reason the file needs rewriting, or is empty.
func (s *CSVStore) load() (records []submission.Submission, heal string, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []submission.Submission{}, "", nil
		}
		return nil, "", err
	}

	d, err := decodeCSV(data)
	if err != nil {
		return nil, "", err
	}
	records = d.records

	if !d.schema.hasStatus && len(records) > 0 {
		heal = "missing status column"
	}

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = submission.NewID()
			if heal == "" {
				heal = "missing ids"
			}
		}
		records[i].Status = submission.NormalizeStatus(string(records[i].Status))
	}
	return records, heal, nil
}

// WriteAll atomically replaces the file with the canonical header and records.
func (s *CSVStore) WriteAll(ctx context.Context, records []submission.Submission) error {
	err := writeFileAtomic(s.path, func(w io.Writer) error {
		return encodeCSV(w, records)
	})
	if err != nil {
		slog.Warn("store write failed", "op", "write_all", "records", len(records), "error", err)
		return errors.NewStorage("write_all", err)
	}
	return nil
}

// Append adds a new inbox record to the end of the file.
// A file written under a legacy header is first rewritten in the canonical schema
// so the new row lines up with its columns.
func (s *CSVStore) Append(ctx context.Context, f submission.Fields) (*submission.Submission, error) {
	rec := submission.New(f, s.now())

	if err := s.append(ctx, rec); err != nil {
		slog.Warn("append failed", "op", "append", "id", rec.ID, "error", err)
		if errors.Is(err, errors.ErrStorage) {
			return &rec, err
		}
		return &rec, errors.NewStorage("append", err)
	}
	return &rec, nil
}

func (s *CSVStore) append(ctx context.Context, rec submission.Submission) error {
	st, err := s.inspect()
	if err != nil {
		return err
	}

	if !st.canonical {
		records, _, err := s.load()
		if err != nil {
			return err
		}
		return s.WriteAll(ctx, append(records, rec))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	file, err := openFileNoFollow(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	if st.empty {
		err = encodeCSV(w, []submission.Submission{rec})
	} else {
		if !st.trailingNewline {
			if _, err := w.WriteString("\n"); err != nil {
				file.Close()
				return err
			}
		}
		err = encodeRow(w, rec)
	}
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// fileState is what Append needs to know about the current file.
type fileState struct {
	empty           bool
	canonical       bool
	trailingNewline bool
}

// inspect reads the header row and the final byte of the file.
func (s *CSVStore) inspect() (fileState, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileState{empty: true, canonical: true}, nil
		}
		return fileState{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fileState{}, err
	}
	if info.Size() == 0 {
		return fileState{empty: true, canonical: true}, nil
	}

	first, err := newCSVReader(bufio.NewReader(file)).Read()
	if err != nil && !stderrors.Is(err, io.EOF) {
		return fileState{}, fmt.Errorf("read header: %w", err)
	}
	st := fileState{canonical: equalHeader(trimBOM(first), submission.Header)}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return fileState{}, err
	}
	st.trailingNewline = last[0] == '\n'
	return st, nil
}

// encodeRow writes one record without a header.
func encodeRow(w io.Writer, rec submission.Submission) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
