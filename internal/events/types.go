package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	JobID() string
}

// Topic constants
const (
	TopicJob      = "job"
	TopicNPC      = "npc"
	TopicBoard    = "board"
	TopicAnnounce = "announce"
)

// Event type constants
const (
	EventTypeJobAdded      = "job.added"
	EventTypeJobAssigned   = "job.assigned"
	EventTypeJobCompleted  = "job.completed"
	EventTypeJobFailed     = "job.failed"
	EventTypeJobCancelled  = "job.cancelled"
	EventTypeJobRemoved    = "job.removed"
	EventTypeAnnouncement  = "announce.message"
	EventTypeNPCDied       = "npc.died"
	EventTypeBoardProgress = "board.progress"
)

// JobAddedEvent is published when a job enters the job manager.
type JobAddedEvent struct {
	ID        string
	Name      string
	Priority  string
	Waiting   bool
	Timestamp time.Time
}

func (e JobAddedEvent) EventType() string { return EventTypeJobAdded }
func (e JobAddedEvent) JobID() string     { return e.ID }

// JobAssignedEvent is published when an agent takes a job.
type JobAssignedEvent struct {
	ID        string
	Name      string
	NPC       int
	Timestamp time.Time
}

func (e JobAssignedEvent) EventType() string { return EventTypeJobAssigned }
func (e JobAssignedEvent) JobID() string     { return e.ID }

// JobCompletedEvent is published when an agent finishes a job.
type JobCompletedEvent struct {
	ID        string
	Name      string
	NPC       int
	Timestamp time.Time
}

func (e JobCompletedEvent) EventType() string { return EventTypeJobCompleted }
func (e JobCompletedEvent) JobID() string     { return e.ID }

// JobFailedEvent is published when a job runs out of attempts.
type JobFailedEvent struct {
	ID        string
	Name      string
	Reason    string
	Attempts  int
	Timestamp time.Time
}

func (e JobFailedEvent) EventType() string { return EventTypeJobFailed }
func (e JobFailedEvent) JobID() string     { return e.ID }

// JobCancelledEvent is published when an agent gives a job back for retry.
type JobCancelledEvent struct {
	ID         string
	Name       string
	NPC        int
	Reason     string
	Attempts   int
	RetryAfter int
	Timestamp  time.Time
}

func (e JobCancelledEvent) EventType() string { return EventTypeJobCancelled }
func (e JobCancelledEvent) JobID() string     { return e.ID }

// JobRemovedEvent is published when a job is dropped from the manager.
type JobRemovedEvent struct {
	ID        string
	Name      string
	Timestamp time.Time
}

func (e JobRemovedEvent) EventType() string { return EventTypeJobRemoved }
func (e JobRemovedEvent) JobID() string     { return e.ID }

// AnnouncementEvent is a player-visible message.
type AnnouncementEvent struct {
	Message   string
	Timestamp time.Time
}

func (e AnnouncementEvent) EventType() string { return EventTypeAnnouncement }
func (e AnnouncementEvent) JobID() string     { return "" }

// NPCDiedEvent is published when an agent dies.
type NPCDiedEvent struct {
	NPC       int
	Name      string
	Cause     string
	Timestamp time.Time
}

func (e NPCDiedEvent) EventType() string { return EventTypeNPCDied }
func (e NPCDiedEvent) JobID() string     { return "" }

// BoardProgressEvent summarises the job board once per tick.
type BoardProgressEvent struct {
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

func (e BoardProgressEvent) EventType() string { return EventTypeBoardProgress }
func (e BoardProgressEvent) JobID() string     { return "" }
