package sim

import (
	"github.com/aristath/colony/internal/jobmanager"
	"github.com/aristath/colony/internal/npc"
)

// snapshotJobLimit caps how many pooled jobs a snapshot lists.
const snapshotJobLimit = 50

// JobStatus is one pooled job as dashboards show it.
type JobStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority string `json:"priority"`
	State    string `json:"state"`
}

// SquadStatus summarises a squad.
type SquadStatus struct {
	Name    string `json:"name"`
	Order   string `json:"order"`
	Members int    `json:"members"`
	Limit   int    `json:"limit"`
}

// Snapshot is a consistent view of the game taken between ticks.
type Snapshot struct {
	Tick           int64            `json:"tick"`
	Date           string           `json:"date"`
	Season         string           `json:"season"`
	Board          jobmanager.Board `json:"board"`
	Jobs           []JobStatus      `json:"jobs"`
	NPCs           []npc.Status     `json:"npcs"`
	Squads         []SquadStatus    `json:"squads"`
	PathsInFlight  int              `json:"paths_in_flight"`
	PathPeak       int              `json:"path_peak"`
	InlineSearches int              `json:"inline_searches"`
}

// Snapshot captures the game state. It is safe to call from any goroutine.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Tick:           g.tick,
		Date:           g.calendar.String(),
		Season:         g.calendar.Season().String(),
		Board:          g.jobs.Snapshot(),
		PathsInFlight:  g.paths.InFlight(),
		PathPeak:       g.paths.Peak(),
		InlineSearches: g.paths.InlineRuns(),
	}
	for i := 0; i < snapshotJobLimit; i++ {
		j := g.jobs.GetJobByListIndex(i)
		if j == nil {
			break
		}
		s.Jobs = append(s.Jobs, JobStatus{
			ID:       j.ID,
			Name:     j.Name,
			Priority: j.Priority().String(),
			State:    g.jobs.State(j).String(),
		})
	}
	for _, n := range g.agents.All() {
		s.NPCs = append(s.NPCs, n.Status())
	}
	for _, sq := range g.squads {
		st := SquadStatus{Name: sq.Name, Order: "none", Members: sq.MemberCount(), Limit: sq.MemberLimit()}
		if cmds := sq.Commands(); len(cmds) > 0 {
			st.Order = cmds[0].Order.String()
		}
		s.Squads = append(s.Squads, st)
	}
	return s
}
