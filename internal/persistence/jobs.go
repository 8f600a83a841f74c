package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveJob saves or updates a job record.
// Uses ON CONFLICT to make saves idempotent.
func (s *SQLiteStore) SaveJob(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, name, priority, status, npc, attempts, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			priority = excluded.priority,
			status = excluded.status,
			npc = excluded.npc,
			attempts = excluded.attempts,
			reason = excluded.reason,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.Name, rec.Priority, rec.Status, rec.NPC, rec.Attempts, rec.Reason)
	if err != nil {
		return fmt.Errorf("failed to upsert job %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateJobStatus moves a job to status. It returns ErrNotFound for a job
// that was never saved.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id, status string, npc, attempts int, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, npc = ?, attempts = MAX(attempts, ?), reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, npc, attempts, reason, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

const jobColumns = `id, name, priority, status, npc, attempts, reason, created_at, updated_at`

func scanJob(row interface{ Scan(dest ...any) error }) (*JobRecord, error) {
	rec := &JobRecord{}
	err := row.Scan(&rec.ID, &rec.Name, &rec.Priority, &rec.Status, &rec.NPC,
		&rec.Attempts, &rec.Reason, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// GetJob retrieves a job by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	rec, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	return rec, nil
}

// ListJobs returns the jobs in status, or every job for an empty status,
// oldest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, status string) ([]*JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

// AppendJobEvent adds a step to a saved job's history.
func (s *SQLiteStore) AppendJobEvent(ctx context.Context, ev JobEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_events (job_id, kind, npc, reason, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, ev.JobID, ev.Kind, ev.NPC, ev.Reason, ev.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to append event for job %s: %w", ev.JobID, err)
	}
	return nil
}

// JobHistory returns a job's events in the order they happened.
func (s *SQLiteStore) JobHistory(ctx context.Context, id string) ([]JobEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, kind, npc, reason, timestamp
		FROM job_events
		WHERE job_id = ?
		ORDER BY timestamp, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	var history []JobEvent
	for rows.Next() {
		var ev JobEvent
		if err := rows.Scan(&ev.JobID, &ev.Kind, &ev.NPC, &ev.Reason, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan job event: %w", err)
		}
		history = append(history, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job history: %w", err)
	}
	return history, nil
}
