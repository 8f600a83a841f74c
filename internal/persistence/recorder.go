package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/resilience"
)

// HistorySink names the circuit breaker guarding history writes.
const HistorySink = "history"

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	Buffer      int                    // Subscription buffer (default 256)
	SampleEvery int                    // Keep every Nth board progress event (default 1)
	Retry       resilience.RetryConfig // Zero value uses resilience.DefaultRetryConfig
	Breakers    *resilience.BreakerRegistry
	Logger      *zap.Logger
}

// Recorder writes bus events into a Store. It subscribes when created so
// nothing published before Run starts is missed.
type Recorder struct {
	store   Store
	events  <-chan events.Event
	cfg     RecorderConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	samples int
	dropped int
}

// NewRecorder subscribes to every topic on bus.
func NewRecorder(store Store, bus *events.EventBus, cfg RecorderConfig) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 1
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
	return &Recorder{
		store:   store,
		events:  bus.SubscribeAll(cfg.Buffer),
		cfg:     cfg,
		breaker: cfg.Breakers.Get(HistorySink),
		logger:  cfg.Logger,
	}
}

// Run records events until ctx is cancelled or the bus closes. Events
// already buffered at cancellation are still written.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			r.record(ctx, ev)
		case <-ctx.Done():
			r.flush(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			r.record(ctx, ev)
		default:
			return
		}
	}
}

// Dropped returns how many events could not be written.
func (r *Recorder) Dropped() int { return r.dropped }

func (r *Recorder) record(ctx context.Context, ev events.Event) {
	var err error
	switch e := ev.(type) {
	case events.JobAddedEvent:
		status := StatusAvailable
		if e.Waiting {
			status = StatusWaiting
		}
		err = r.write(ctx, func(ctx context.Context) error {
			if err := r.store.SaveJob(ctx, JobRecord{ID: e.ID, Name: e.Name, Priority: e.Priority, Status: status}); err != nil {
				return err
			}
			return r.store.AppendJobEvent(ctx, JobEvent{JobID: e.ID, Kind: e.EventType(), Timestamp: e.Timestamp})
		})
	case events.JobAssignedEvent:
		err = r.transition(ctx, e.ID, e.Name, StatusAssigned, e.NPC, 0, "", e.EventType(), e.Timestamp)
	case events.JobCompletedEvent:
		err = r.transition(ctx, e.ID, e.Name, StatusCompleted, e.NPC, 0, "", e.EventType(), e.Timestamp)
	case events.JobFailedEvent:
		err = r.transition(ctx, e.ID, e.Name, StatusFailed, 0, e.Attempts, e.Reason, e.EventType(), e.Timestamp)
	case events.JobCancelledEvent:
		err = r.transition(ctx, e.ID, e.Name, StatusWaiting, e.NPC, e.Attempts, e.Reason, e.EventType(), e.Timestamp)
	case events.JobRemovedEvent:
		err = r.transition(ctx, e.ID, e.Name, StatusRemoved, 0, 0, "", e.EventType(), e.Timestamp)
	case events.AnnouncementEvent:
		err = r.write(ctx, func(ctx context.Context) error {
			return r.store.SaveAnnouncement(ctx, Announcement{Message: e.Message, Timestamp: e.Timestamp})
		})
	case events.NPCDiedEvent:
		err = r.write(ctx, func(ctx context.Context) error {
			return r.store.SaveDeath(ctx, Death{NPC: e.NPC, Name: e.Name, Cause: e.Cause, Timestamp: e.Timestamp})
		})
	case events.BoardProgressEvent:
		r.samples++
		if (r.samples-1)%r.cfg.SampleEvery != 0 {
			return
		}
		err = r.write(ctx, func(ctx context.Context) error {
			return r.store.SaveBoardSample(ctx, BoardSample{
				Tick:      e.Tick,
				Tiers:     e.Tiers,
				Waiting:   e.Waiting,
				Idle:      e.Idle,
				Agents:    e.Agents,
				Completed: e.Completed,
				Failed:    e.Failed,
				InFlight:  e.InFlight,
				Timestamp: e.Timestamp,
			})
		})
	default:
		return
	}

	if err == nil {
		return
	}
	r.dropped++
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		r.logger.Debug("history breaker open, event dropped", zap.String("event", ev.EventType()))
		return
	}
	r.logger.Error("failed to record event",
		zap.String("event", ev.EventType()),
		zap.String("job_id", ev.JobID()),
		zap.Error(err))
}

// transition moves a job to status and logs the step. A job first seen
// mid-life gets a record built from the event.
func (r *Recorder) transition(ctx context.Context, id, name, status string, npc, attempts int, reason, kind string, at time.Time) error {
	return r.write(ctx, func(ctx context.Context) error {
		err := r.store.UpdateJobStatus(ctx, id, status, npc, attempts, reason)
		if errors.Is(err, ErrNotFound) {
			err = r.store.SaveJob(ctx, JobRecord{
				ID:       id,
				Name:     name,
				Status:   status,
				NPC:      npc,
				Attempts: attempts,
				Reason:   reason,
			})
		}
		if err != nil {
			return err
		}
		return r.store.AppendJobEvent(ctx, JobEvent{JobID: id, Kind: kind, NPC: npc, Reason: reason, Timestamp: at})
	})
}

func (r *Recorder) write(ctx context.Context, fn func(ctx context.Context) error) error {
	return resilience.Do(ctx, r.breaker, r.cfg.Retry, fn)
}
