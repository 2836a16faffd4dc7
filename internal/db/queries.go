package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dsautocare/site/internal/submission"
)

const submissionColumns = `id, timestamp, name, email, car, phone, is_mobile, contact_method,
	best_time_to_call, preferred_appointment_time, message, vehicle_type, services, total, status`

const insertSubmission = `INSERT INTO submissions (` + submissionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert appends a submission row.
func Insert(ctx context.Context, db *sql.DB, s *submission.Submission) error {
	return insert(ctx, db, s)
}

func insert(ctx context.Context, ex execer, s *submission.Submission) error {
	_, err := ex.ExecContext(ctx, insertSubmission,
		s.ID, s.Timestamp, s.Name, s.Email, s.Car, s.Phone, s.IsMobile, s.ContactMethod,
		s.BestTimeToCall, s.PreferredAppointmentTime, s.Message, s.VehicleType,
		s.Services, s.Total, string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", s.ID, err)
	}
	return nil
}

// ListAll returns every submission in insertion order.
func ListAll(ctx context.Context, db *sql.DB) ([]submission.Submission, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	records := make([]submission.Submission, 0)
	for rows.Next() {
		var s submission.Submission
		var status string
		if err := rows.Scan(
			&s.ID, &s.Timestamp, &s.Name, &s.Email, &s.Car, &s.Phone, &s.IsMobile, &s.ContactMethod,
			&s.BestTimeToCall, &s.PreferredAppointmentTime, &s.Message, &s.VehicleType,
			&s.Services, &s.Total, &status,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.Status = submission.Status(status)
		records = append(records, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return records, nil
}

// ReplaceAll swaps the whole table for records inside one transaction.
// Either every row is replaced or nothing changes.
func ReplaceAll(ctx context.Context, db *sql.DB, records []submission.Submission) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("clear submissions: %w", err)
	}
	for i := range records {
		if err := insert(ctx, tx, &records[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
