package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SaveAnnouncement stores a player-visible message.
func (s *SQLiteStore) SaveAnnouncement(ctx context.Context, a Announcement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (message, timestamp) VALUES (?, ?)`,
		a.Message, a.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save announcement: %w", err)
	}
	return nil
}

// RecentAnnouncements returns up to limit messages, newest first.
func (s *SQLiteStore) RecentAnnouncements(ctx context.Context, limit int) ([]Announcement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message, timestamp FROM announcements
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveDeath stores an agent's death.
func (s *SQLiteStore) SaveDeath(ctx context.Context, d Death) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deaths (npc, name, cause, timestamp) VALUES (?, ?, ?, ?)`,
		d.NPC, d.Name, d.Cause, d.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save death of %s: %w", d.Name, err)
	}
	return nil
}

// Deaths returns every recorded death, oldest first.
func (s *SQLiteStore) Deaths(ctx context.Context) ([]Death, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT npc, name, cause, timestamp FROM deaths ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deaths: %w", err)
	}
	defer rows.Close()

	var out []Death
	for rows.Next() {
		var d Death
		if err := rows.Scan(&d.NPC, &d.Name, &d.Cause, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan death: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveBoardSample stores the board summary for a tick, replacing an
// earlier sample of the same tick.
func (s *SQLiteStore) SaveBoardSample(ctx context.Context, b BoardSample) error {
	tiers, err := json.Marshal(b.Tiers)
	if err != nil {
		return fmt.Errorf("marshaling tiers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO board_samples (tick, waiting, idle, agents, completed, failed, in_flight, tiers, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tick) DO UPDATE SET
			waiting = excluded.waiting,
			idle = excluded.idle,
			agents = excluded.agents,
			completed = excluded.completed,
			failed = excluded.failed,
			in_flight = excluded.in_flight,
			tiers = excluded.tiers,
			timestamp = excluded.timestamp
	`, b.Tick, b.Waiting, b.Idle, b.Agents, b.Completed, b.Failed, b.InFlight, string(tiers), b.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save board sample: %w", err)
	}
	return nil
}

// LatestBoardSample returns the sample with the highest tick.
func (s *SQLiteStore) LatestBoardSample(ctx context.Context) (*BoardSample, error) {
	var b BoardSample
	var tiers string
	err := s.db.QueryRowContext(ctx, `
		SELECT tick, waiting, idle, agents, completed, failed, in_flight, tiers, timestamp
		FROM board_samples
		ORDER BY tick DESC
		LIMIT 1
	`).Scan(&b.Tick, &b.Waiting, &b.Idle, &b.Agents, &b.Completed, &b.Failed, &b.InFlight, &tiers, &b.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("board sample: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query board sample: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &b.Tiers); err != nil {
		return nil, fmt.Errorf("parsing tiers: %w", err)
	}
	return &b, nil
}
