// Package persistence keeps the colony's history in SQLite: every job's
// lifecycle, announcements, deaths and periodic board samples.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Job statuses stored in the jobs table.
const (
	StatusAvailable = "available"
	StatusWaiting   = "waiting"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRemoved   = "removed"
)

// JobRecord is the latest known state of a job.
type JobRecord struct {
	ID        string
	Name      string
	Priority  string
	Status    string
	NPC       int
	Attempts  int
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobEvent is one step in a job's history.
type JobEvent struct {
	JobID     string
	Kind      string
	NPC       int
	Reason    string
	Timestamp time.Time
}

// Announcement is a player-visible message.
type Announcement struct {
	Message   string
	Timestamp time.Time
}

// Death records an agent dying.
type Death struct {
	NPC       int
	Name      string
	Cause     string
	Timestamp time.Time
}

// BoardSample is the job board summary at one tick.
type BoardSample struct {
	Tick      int64
	Tiers     [4]int
	Waiting   int
	Idle      int
	Agents    int
	Completed int
	Failed    int
	InFlight  int
	Timestamp time.Time
}

// Store defines the persistence interface for the colony history.
type Store interface {
	// Jobs
	SaveJob(ctx context.Context, rec JobRecord) error
	UpdateJobStatus(ctx context.Context, id, status string, npc, attempts int, reason string) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	ListJobs(ctx context.Context, status string) ([]*JobRecord, error)
	AppendJobEvent(ctx context.Context, ev JobEvent) error
	JobHistory(ctx context.Context, id string) ([]JobEvent, error)

	// Colony log
	SaveAnnouncement(ctx context.Context, a Announcement) error
	RecentAnnouncements(ctx context.Context, limit int) ([]Announcement, error)
	SaveDeath(ctx context.Context, d Death) error
	Deaths(ctx context.Context) ([]Death, error)
	SaveBoardSample(ctx context.Context, s BoardSample) error
	LatestBoardSample(ctx context.Context) (*BoardSample, error)

	Stats(ctx context.Context) (Stats, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// modernc.org/sqlite doesn't support _foreign_keys in the connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing. Each call
// gets its own database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	return open(ctx, "file::memory:?mode=memory")
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps an in-memory database alive and serialises
	// writers; the recorder is the only writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
