package reroute

import (
	"testing"

	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/planner"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
)

func square(t *testing.T) *graph.Graph {
	t.Helper()
	data := graph.GraphData{
		Nodes: []graph.NodeData{
			{ID: "A", X: 0, Y: 0},
			{ID: "B", X: 1, Y: 0},
			{ID: "C", X: 1, Y: 1},
			{ID: "D", X: 0, Y: 1},
		},
		Edges: []graph.EdgeData{
			{From: "A", To: "B", Distance: 1, AllowedModes: []string{"car"}},
			{From: "B", To: "C", Distance: 1, AllowedModes: []string{"car"}},
			{From: "C", To: "D", Distance: 1, AllowedModes: []string{"car"}},
			{From: "D", To: "A", Distance: 1, AllowedModes: []string{"car"}},
		},
	}
	g, err := graph.New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestUpcomingClipsAtPathEnd(t *testing.T) {
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B", "C"}, 60, 0.2, 0)
	got := Upcoming(a, 3)
	want := []graph.EdgeKey{{From: "A", To: "B"}, {From: "B", To: "C"}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestShouldRerouteOnBlockedUpcomingEdge(t *testing.T) {
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B", "C"}, 60, 0.2, 0)
	cfg := simconfig.Default()
	blocked := func(k graph.EdgeKey) bool { return k == (graph.EdgeKey{From: "B", To: "C"}) }
	prob := func(graph.EdgeKey) float64 { return 0 }
	if !ShouldReroute(a, cfg, blocked, prob) {
		t.Fatalf("expected reroute due to blocked upcoming edge")
	}
}

func TestShouldRerouteOnHighProbability(t *testing.T) {
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B", "C"}, 60, 0.2, 0)
	cfg := simconfig.Default()
	blocked := func(graph.EdgeKey) bool { return false }
	prob := func(graph.EdgeKey) float64 { return 0.9 }
	if !ShouldReroute(a, cfg, blocked, prob) {
		t.Fatalf("expected reroute due to high congestion probability")
	}
}

func TestShouldNotRerouteWhenClear(t *testing.T) {
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B", "C"}, 60, 0.2, 0)
	cfg := simconfig.Default()
	blocked := func(graph.EdgeKey) bool { return false }
	prob := func(graph.EdgeKey) float64 { return 0.1 }
	if ShouldReroute(a, cfg, blocked, prob) {
		t.Fatalf("expected no reroute when upcoming edges are clear")
	}
}

func TestApplySuccessReplacesPath(t *testing.T) {
	g := square(t)
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B", "C"}, 60, 0.2, 0)
	a.CurrentNode = "B"
	a.PathIndex = 1

	flat := func(graph.EdgeKey) float64 { return 1 }
	noneBlocked := func(graph.EdgeKey) bool { return false }

	err := Apply(a, g, planner.Plan, flat, noneBlocked)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.Status != agent.StatusRerouting {
		t.Fatalf("expected rerouting status, got %v", a.Status)
	}
	if a.RerouteCount != 1 {
		t.Fatalf("expected reroute count 1, got %v", a.RerouteCount)
	}
	if a.Path[0] != "B" {
		t.Fatalf("expected new path to start at current node B, got %v", a.Path)
	}
}

func TestApplyFailureMarksStuck(t *testing.T) {
	data := graph.GraphData{
		Nodes: []graph.NodeData{{ID: "A", X: 0, Y: 0}, {ID: "B", X: 1, Y: 0}},
	}
	g, err := graph.New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := agent.New("car_1", agent.TypeCar, []graph.NodeID{"A", "B"}, 60, 0.2, 0)

	flat := func(graph.EdgeKey) float64 { return 1 }
	noneBlocked := func(graph.EdgeKey) bool { return false }

	if err := Apply(a, g, planner.Plan, flat, noneBlocked); err == nil {
		t.Fatalf("expected Apply to fail on disconnected graph")
	}
	if a.Status != agent.StatusStuck {
		t.Fatalf("expected stuck status on failed reroute, got %v", a.Status)
	}
}
