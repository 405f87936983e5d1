package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/mapstore"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
	"github.com/urbanflow-sim/traffic-engine/internal/simulation"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := mapstore.New()
	store.Register("square", graph.GraphData{
		Nodes: []graph.NodeData{
			{ID: "A", X: 0, Y: 0},
			{ID: "B", X: 60, Y: 0},
			{ID: "C", X: 60, Y: 60},
			{ID: "D", X: 0, Y: 60},
		},
		Edges: []graph.EdgeData{
			{From: "A", To: "B", Distance: 60, AllowedModes: []string{"car", "bicycle", "pedestrian"}},
			{From: "B", To: "C", Distance: 60, AllowedModes: []string{"car", "bicycle", "pedestrian"}},
			{From: "C", To: "D", Distance: 60, AllowedModes: []string{"car", "bicycle", "pedestrian"}},
			{From: "D", To: "A", Distance: 60, AllowedModes: []string{"car", "bicycle", "pedestrian"}},
		},
	})
	sim := simulation.New(store, simconfig.Default(), nil)
	if err := sim.LoadMap("square"); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	return New(sim, nil).Routes()
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMapsAndNodesEndpoints(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maps", nil))
	var ids []string
	if err := json.Unmarshal(rec.Body.Bytes(), &ids); err != nil {
		t.Fatalf("decode /maps: %v", err)
	}
	if len(ids) != 1 || ids[0] != "square" {
		t.Fatalf("expected [square], got %v", ids)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	var nodes []graph.Node
	if err := json.Unmarshal(rec.Body.Bytes(), &nodes); err != nil {
		t.Fatalf("decode /nodes: %v", err)
	}
	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}
}

func TestSpawnAndTickEndpoints(t *testing.T) {
	handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"type": "car", "start": "A", "goal": "C"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tick", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))
	var agents []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &agents); err != nil {
		t.Fatalf("decode /agents: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}
}

func TestBlockAndAccidentEndpoints(t *testing.T) {
	handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"from": "A", "to": "B", "reason": "construction"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/blockages", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blockages", nil))
	var blocked []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &blocked); err != nil {
		t.Fatalf("decode /blockages: %v", err)
	}
	if len(blocked) != 1 {
		t.Fatalf("expected 1 blockage, got %d", len(blocked))
	}

	accBody, _ := json.Marshal(map[string]string{"from": "C", "to": "D", "severity": "minor"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accidents", bytes.NewReader(accBody)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStateEndpoint(t *testing.T) {
	handler := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state simulation.StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode /state: %v", err)
	}
	if state.Step != 0 {
		t.Fatalf("expected fresh state at step 0, got %d", state.Step)
	}
}
