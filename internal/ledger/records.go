package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome is the terminal result a record describes.
type Outcome string

const (
	OutcomePrinted Outcome = "printed"
	OutcomeFailed  Outcome = "failed"
)

// Record describes where a terminal job's artifact ended up.
type Record struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"job_id"`
	SourcePath   string    `json:"source_path"`
	Kind         string    `json:"kind"`
	Outcome      Outcome   `json:"outcome"`
	Destination  string    `json:"destination"`
	FinalPath    string    `json:"final_path,omitempty"`
	Attempts     int       `json:"attempts"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

const recordColumns = "id, job_id, source_path, kind, outcome, destination, final_path, attempts, error_kind, error_message, enqueued_at, finished_at"

// Append stores a record and returns its row id.
func (s *Store) Append(ctx context.Context, rec Record) (int64, error) {
	ctx = ensureContext(ctx)
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO archive_records (job_id, source_path, kind, outcome, destination, final_path, attempts, error_kind, error_message, enqueued_at, finished_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.JobID,
			rec.SourcePath,
			rec.Kind,
			string(rec.Outcome),
			rec.Destination,
			nullString(rec.FinalPath),
			rec.Attempts,
			nullString(rec.ErrorKind),
			nullString(rec.ErrorMessage),
			rec.EnqueuedAt.UTC().Format(time.RFC3339Nano),
			rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("append archive record: %w", err)
	}
	return id, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM archive_records ORDER BY finished_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query archive records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive records: %w", err)
	}
	return out, nil
}

// CountByOutcome returns the number of records per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM archive_records GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("count archive records: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan archive count: %w", err)
		}
		counts[Outcome(outcome)] = count
	}
	return counts, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec          Record
		outcome      string
		finalPath    sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		enqueuedRaw  string
		finishedRaw  string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.JobID,
		&rec.SourcePath,
		&rec.Kind,
		&outcome,
		&rec.Destination,
		&finalPath,
		&rec.Attempts,
		&errorKind,
		&errorMessage,
		&enqueuedRaw,
		&finishedRaw,
	); err != nil {
		return Record{}, err
	}
	rec.Outcome = Outcome(outcome)
	rec.FinalPath = finalPath.String
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMessage.String
	rec.EnqueuedAt = parseTime(enqueuedRaw)
	rec.FinishedAt = parseTime(finishedRaw)
	return rec, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	return time.Time{}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
