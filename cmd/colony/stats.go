package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aristath/colony/internal/persistence"
)

// writeStats renders job history totals as a table.
func writeStats(w io.Writer, st persistence.Stats) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STATUS", "JOBS")
	for _, status := range slices.Sorted(maps.Keys(st.ByStatus)) {
		t.Row(status, strconv.Itoa(st.ByStatus[status]))
	}
	t.Row("total", strconv.Itoa(st.Jobs))

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "attempts: %d  completion: %.0f%%\n", st.Attempts, st.CompletionRate()*100)
	fmt.Fprintf(w, "announcements: %d  deaths: %d  board samples: %d\n", st.Announcements, st.Deaths, st.Samples)
}
