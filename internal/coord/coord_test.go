package coord

import "testing"

func TestDistanceAndAdjacent(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinate
		dist     int
		adjacent bool
	}{
		{"same tile", Pt(3, 3), Pt(3, 3), 0, true},
		{"orthogonal neighbour", Pt(3, 3), Pt(4, 3), 1, true},
		{"diagonal neighbour", Pt(3, 3), Pt(2, 2), 1, true},
		{"two away", Pt(3, 3), Pt(5, 3), 2, false},
		{"long diagonal", Pt(0, 0), Pt(5, 7), 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Distance(tt.b); got != tt.dist {
				t.Errorf("Distance = %d, want %d", got, tt.dist)
			}
			if got := tt.a.Adjacent(tt.b); got != tt.adjacent {
				t.Errorf("Adjacent = %v, want %v", got, tt.adjacent)
			}
		})
	}
}

func TestOnEdge(t *testing.T) {
	low, high := Pt(0, 0), Pt(10, 10)
	if !Pt(0, 5).OnEdge(low, high) {
		t.Error("left border should be an edge")
	}
	if !Pt(9, 9).OnEdge(low, high) {
		t.Error("far corner should be an edge")
	}
	if Pt(5, 5).OnEdge(low, high) {
		t.Error("centre is not an edge")
	}
	if Pt(10, 5).OnEdge(low, high) {
		t.Error("outside the rectangle is not an edge")
	}
}

func TestClamp(t *testing.T) {
	got := Pt(-4, 20).Clamp(Pt(0, 0), Pt(10, 10))
	if got != Pt(0, 9) {
		t.Errorf("Clamp = %v, want (0,9)", got)
	}
}

func TestLine(t *testing.T) {
	line := Line(Pt(0, 0), Pt(4, 2))
	if line[0] != Pt(0, 0) || line[len(line)-1] != Pt(4, 2) {
		t.Fatalf("line endpoints = %v .. %v", line[0], line[len(line)-1])
	}
	for i := 1; i < len(line); i++ {
		if !line[i].Adjacent(line[i-1]) {
			t.Errorf("step %d: %v not adjacent to %v", i, line[i], line[i-1])
		}
	}

	single := Line(Pt(2, 2), Pt(2, 2))
	if len(single) != 1 {
		t.Errorf("degenerate line length = %d, want 1", len(single))
	}
}

func TestUndefined(t *testing.T) {
	if !Undefined.IsUndefined() {
		t.Error("Undefined should report undefined")
	}
	if Zero.IsUndefined() {
		t.Error("origin is a defined coordinate")
	}
}
