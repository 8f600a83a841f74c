package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/resilience"
)

// Sink names the circuit breaker guarding journal writes.
const Sink = "journal"

// Level selects how much of the event stream is journalled.
type Level int

const (
	LevelColony   Level = iota + 1 // Announcements and deaths
	LevelOutcomes                  // Plus completed and failed jobs
	LevelJobs                      // Plus every job transition
	LevelBoard                     // Plus board progress samples
)

func (l Level) includes(ev events.Event) bool {
	switch ev.EventType() {
	case events.EventTypeAnnouncement, events.EventTypeNPCDied:
		return true
	case events.EventTypeJobCompleted, events.EventTypeJobFailed:
		return l >= LevelOutcomes
	case events.EventTypeBoardProgress:
		return l >= LevelBoard
	default:
		return l >= LevelJobs
	}
}

// Entry is one journal line.
type Entry struct {
	Time  time.Time       `json:"time"`
	Type  string          `json:"type"`
	JobID string          `json:"job_id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// Config configures a Journal.
type Config struct {
	Dir      string
	Level    Level                  // Default LevelOutcomes
	Buffer   int                    // Subscription buffer (default 256)
	Retry    resilience.RetryConfig // Zero value uses resilience.DefaultRetryConfig
	Breakers *resilience.BreakerRegistry
	Logger   *zap.Logger
}

// Journal copies bus events into a Writer.
type Journal struct {
	w       *Writer
	events  <-chan events.Event
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	written int
}

// New subscribes to every topic on bus and journals into cfg.Dir.
func New(bus *events.EventBus, cfg Config) *Journal {
	if cfg.Level == 0 {
		cfg.Level = LevelOutcomes
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Retry == (resilience.RetryConfig{}) {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Breakers == nil {
		cfg.Breakers = resilience.NewBreakerRegistry(resilience.BreakerConfig{}, cfg.Logger)
	}
	return &Journal{
		w:       NewWriter(cfg.Dir, "events"),
		events:  bus.SubscribeAll(cfg.Buffer),
		cfg:     cfg,
		breaker: cfg.Breakers.Get(Sink),
		logger:  cfg.Logger,
	}
}

// Run journals events until ctx is cancelled or the bus closes, then
// closes the current file.
func (j *Journal) Run(ctx context.Context) error {
	defer func() {
		if err := j.w.Close(); err != nil {
			j.logger.Error("failed to close journal", zap.Error(err))
		}
	}()
	for {
		select {
		case ev, ok := <-j.events:
			if !ok {
				return nil
			}
			j.append(ctx, ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// Written returns how many entries reached the journal.
func (j *Journal) Written() int { return j.written }

func (j *Journal) append(ctx context.Context, ev events.Event) {
	if !j.cfg.Level.includes(ev) {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		j.logger.Error("failed to encode event", zap.String("event", ev.EventType()), zap.Error(err))
		return
	}
	entry := Entry{Time: time.Now().UTC(), Type: ev.EventType(), JobID: ev.JobID(), Data: data}

	err = resilience.Do(ctx, j.breaker, j.cfg.Retry, func(context.Context) error {
		return j.w.Write(entry)
	})
	switch {
	case err == nil:
		j.written++
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		j.logger.Debug("journal breaker open, event skipped", zap.String("event", ev.EventType()))
	default:
		j.logger.Error("failed to journal event", zap.String("event", ev.EventType()), zap.Error(err))
	}
}
