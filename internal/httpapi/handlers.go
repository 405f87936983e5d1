package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/incident"
)

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Maps())
}

func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.sim.MapData(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleLoadMap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sim.LoadMap(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.sim.Nodes()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := graph.NodeID(q.Get("start"))
	goal := graph.NodeID(q.Get("goal"))
	mode, err := graph.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.sim.Plan(start, goal, mode)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Agents())
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.sim.Agent(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type spawnRequest struct {
	Type  agent.Type   `json:"type"`
	Start graph.NodeID `json:"start"`
	Goal  graph.NodeID `json:"goal"`
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := s.sim.Spawn(req.Type, req.Start, req.Goal)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type spawnManyRequest struct {
	Count        int                    `json:"count"`
	Distribution map[agent.Type]float64 `json:"distribution"`
}

func (s *Server) handleSpawnMany(w http.ResponseWriter, r *http.Request) {
	var req spawnManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := s.sim.SpawnMany(req.Count, req.Distribution)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"spawned": n})
}

func (s *Server) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sim.RemoveAgent(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	summary, err := s.sim.Tick()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.hub.broadcast(s.sim.State())
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.Reset(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccidents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Accidents())
}

type createAccidentRequest struct {
	From     graph.NodeID      `json:"from"`
	To       graph.NodeID      `json:"to"`
	Severity incident.Severity `json:"severity"`
}

func (s *Server) handleCreateAccident(w http.ResponseWriter, r *http.Request) {
	var req createAccidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acc, err := s.sim.CreateAccident(req.From, req.To, req.Severity)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleResolveAccident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sim.ResolveAccident(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Blocked())
}

type blockRequest struct {
	From   graph.NodeID `json:"from"`
	To     graph.NodeID `json:"to"`
	Reason string       `json:"reason"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.sim.Block(req.From, req.To, req.Reason)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.sim.Unblock(req.From, req.To)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.State())
}

func (s *Server) handleTrafficStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.TrafficStatistics())
}

func (s *Server) handleCongestionReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.sim.CongestionReport()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleEdgeTraffic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.EdgeTraffic())
}

func (s *Server) handleSimulationInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.SimulationInfo())
}
