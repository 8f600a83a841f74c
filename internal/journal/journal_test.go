package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/colony/internal/events"
)

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")

	for i, typ := range []string{"a", "b", "c"} {
		e := Entry{Time: time.Unix(int64(i), 0).UTC(), Type: typ, Data: json.RawMessage(`{"n":1}`)}
		if err := w.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	files, err := Files(dir, "events")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	entries, err := ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(entries) != 3 || entries[2].Type != "c" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")
	clock := time.Date(2026, 1, 2, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	write := func(typ string) {
		t.Helper()
		if err := w.Write(Entry{Type: typ, Data: json.RawMessage(`null`)}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	write("first")
	clock = clock.Add(2 * time.Minute)
	write("second")
	write("third")
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	files, err := Files(dir, "events")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "events-2026-01-02-10.jsonl.zst"),
		filepath.Join(dir, "events-2026-01-02-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files = %v, want %v", files, want)
	}
	later, err := ReadFile(files[1])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(later) != 2 {
		t.Errorf("second hour holds %d entries, want 2", len(later))
	}
}

func TestWriterAppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	for range 2 {
		w := NewWriter(dir, "events")
		w.now = func() time.Time { return clock }
		if err := w.Write(Entry{Type: "x", Data: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	entries, err := ReadFile(filepath.Join(dir, "events-2026-05-01-08.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries across two frames, want 2", len(entries))
	}
}

func TestLevelFiltering(t *testing.T) {
	evs := []events.Event{
		events.AnnouncementEvent{Message: "hello"},
		events.JobCompletedEvent{ID: "job-1"},
		events.JobAssignedEvent{ID: "job-1"},
		events.BoardProgressEvent{Tick: 25},
	}
	tests := []struct {
		level Level
		want  int
	}{
		{LevelColony, 1},
		{LevelOutcomes, 2},
		{LevelJobs, 3},
		{LevelBoard, 4},
	}
	for _, tt := range tests {
		got := 0
		for _, ev := range evs {
			if tt.level.includes(ev) {
				got++
			}
		}
		if got != tt.want {
			t.Errorf("level %d includes %d events, want %d", tt.level, got, tt.want)
		}
	}
}

// TestJournalRecordsBusEvents verifies the journal service writes the
// events its level admits and closes its file when the bus closes.
func TestJournalRecordsBusEvents(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewEventBus()
	j := New(bus, Config{Dir: dir, Level: LevelOutcomes})

	bus.Publish(events.TopicJob, events.JobAssignedEvent{ID: "job-1", NPC: 2})
	bus.Publish(events.TopicJob, events.JobCompletedEvent{ID: "job-1", NPC: 2})
	bus.Publish(events.TopicNPC, events.NPCDiedEvent{NPC: 2, Name: "Ada", Cause: "thirst"})
	bus.Close()

	done := make(chan error, 1)
	go func() { done <- j.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("journal did not stop after the bus closed")
	}

	if j.Written() != 2 {
		t.Errorf("written = %d, want 2", j.Written())
	}
	files, err := Files(dir, "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("Files = %v, %v", files, err)
	}
	var entries []Entry
	for _, f := range files {
		got, err := ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		entries = append(entries, got...)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Type != events.EventTypeJobCompleted || entries[0].JobID != "job-1" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	var died events.NPCDiedEvent
	if err := json.Unmarshal(entries[1].Data, &died); err != nil {
		t.Fatalf("decoding death: %v", err)
	}
	if died.Name != "Ada" || died.Cause != "thirst" {
		t.Errorf("death = %+v", died)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.jsonl.zst"))
	if !os.IsNotExist(err) {
		t.Errorf("ReadFile(missing) = %v, want not-exist", err)
	}
}
