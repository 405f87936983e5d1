package graph

import "testing"

func squareData() GraphData {
	return GraphData{
		Nodes: []NodeData{
			{ID: "A", X: 0, Y: 0},
			{ID: "B", X: 1, Y: 0},
			{ID: "C", X: 1, Y: 1},
			{ID: "D", X: 0, Y: 1},
		},
		Edges: []EdgeData{
			{From: "A", To: "B", Distance: 1, AllowedModes: []string{"car"}},
			{From: "B", To: "C", Distance: 1, AllowedModes: []string{"car"}, OneWay: true},
			{From: "C", To: "D", Distance: 1, AllowedModes: []string{"car", "bicycle"}},
			{From: "D", To: "A", Distance: 1, AllowedModes: []string{"pedestrian"}},
		},
	}
}

func TestNewMaterialisesReverseEdgesForNonOneWay(t *testing.T) {
	g, err := New(squareData())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Edge("B", "A"); err != nil {
		t.Fatalf("expected reverse edge B->A to exist: %v", err)
	}
	if _, err := g.Edge("C", "B"); err == nil {
		t.Fatalf("expected no reverse edge for one-way B->C")
	}
}

func TestNewRejectsDuplicateNode(t *testing.T) {
	data := squareData()
	data.Nodes = append(data.Nodes, NodeData{ID: "A", X: 5, Y: 5})
	if _, err := New(data); err == nil {
		t.Fatalf("expected duplicate node error")
	}
}

func TestNewRejectsUnknownEndpoint(t *testing.T) {
	data := squareData()
	data.Edges = append(data.Edges, EdgeData{From: "A", To: "Z", Distance: 1, AllowedModes: []string{"car"}})
	if _, err := New(data); err == nil {
		t.Fatalf("expected unknown node error")
	}
}

func TestNewRejectsZeroLengthEdge(t *testing.T) {
	data := squareData()
	data.Edges = append(data.Edges, EdgeData{From: "A", To: "C", Distance: 0, AllowedModes: []string{"car"}})
	if _, err := New(data); err == nil {
		t.Fatalf("expected zero-length edge error")
	}
}

func TestEdgeAllowsMode(t *testing.T) {
	g, err := New(squareData())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := g.Edge("C", "D")
	if err != nil {
		t.Fatalf("Edge: %v", err)
	}
	if !e.Allows(ModeCar) || !e.Allows(ModeBicycle) {
		t.Fatalf("expected C->D to allow car and bicycle")
	}
	if e.Allows(ModePedestrian) {
		t.Fatalf("expected C->D to disallow pedestrian")
	}
}

func TestOutDegreeCountsMaterialisedEdges(t *testing.T) {
	g, err := New(squareData())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// A has A->B (declared) and A->D (reverse of D->A).
	if got := g.OutDegree("A"); got != 2 {
		t.Fatalf("expected out-degree 2 for A, got %d", got)
	}
	// B has B->C (declared, one-way) and B->A (reverse of A->B).
	if got := g.OutDegree("B"); got != 2 {
		t.Fatalf("expected out-degree 2 for B, got %d", got)
	}
}

func TestParseModeUnknown(t *testing.T) {
	if _, err := ParseMode("hovercraft"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestParseModesCombinesBits(t *testing.T) {
	m, err := ParseModes([]string{"car", "bicycle"})
	if err != nil {
		t.Fatalf("ParseModes: %v", err)
	}
	if m&ModeCar == 0 || m&ModeBicycle == 0 {
		t.Fatalf("expected combined bitmask to include car and bicycle")
	}
	if m&ModePedestrian != 0 {
		t.Fatalf("expected combined bitmask to exclude pedestrian")
	}
}
