package persistence

import (
	"context"
	"fmt"
)

// Stats aggregates the stored history.
type Stats struct {
	Jobs          int
	ByStatus      map[string]int
	Attempts      int // Total attempts spent across all jobs
	Announcements int
	Deaths        int
	Samples       int
}

// CompletionRate is the share of finished jobs that succeeded.
func (s Stats) CompletionRate() float64 {
	done := s.ByStatus[StatusCompleted] + s.ByStatus[StatusFailed]
	if done == 0 {
		return 0
	}
	return float64(s.ByStatus[StatusCompleted]) / float64(done)
}

// Stats counts jobs by status and the rows of every log table.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(attempts), 0)
		FROM jobs
		GROUP BY status
	`)
	if err != nil {
		return st, fmt.Errorf("failed to count jobs: %w", err)
	}
	for rows.Next() {
		var status string
		var n, attempts int
		if err := rows.Scan(&status, &n, &attempts); err != nil {
			rows.Close()
			return st, fmt.Errorf("failed to scan job counts: %w", err)
		}
		st.ByStatus[status] = n
		st.Jobs += n
		st.Attempts += attempts
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("error iterating job counts: %w", err)
	}

	for table, dst := range map[string]*int{
		"announcements": &st.Announcements,
		"deaths":        &st.Deaths,
		"board_samples": &st.Samples,
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(dst); err != nil {
			return st, fmt.Errorf("failed to count %s: %w", table, err)
		}
	}
	return st, nil
}
