// Package httpapi is a thin transport layer over internal/simulation: it
// marshals HTTP requests into Simulator commands/queries and JSON-encodes
// the results. It carries no simulation logic of its own (spec §6, §1).
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/urbanflow-sim/traffic-engine/internal/simulation"
)

// Server wires a Simulator to an HTTP mux and a websocket push feed.
type Server struct {
	sim    *simulation.Simulator
	logger *log.Logger
	hub    *hub
}

// New constructs a Server over the given simulator. A nil logger defaults
// to log.Default(), matching internal/simulation's convention.
func New(sim *simulation.Simulator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{sim: sim, logger: logger, hub: newHub()}
}

// Routes builds the chi router covering every command and snapshot query
// named in spec §6, following the teacher-adjacent chi.NewRouter()/r.Get
// shape (other_examples/jackweekly-airlines__main.go).
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/maps", func(r chi.Router) {
		r.Get("/", s.handleMaps)
		r.Get("/{id}", s.handleMapData)
		r.Post("/{id}/load", s.handleLoadMap)
	})

	r.Get("/nodes", s.handleNodes)
	r.Get("/plan", s.handlePlan)

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.handleAgents)
		r.Post("/", s.handleSpawn)
		r.Post("/bulk", s.handleSpawnMany)
		r.Get("/{id}", s.handleAgent)
		r.Delete("/{id}", s.handleRemoveAgent)
	})

	r.Post("/tick", s.handleTick)
	r.Post("/reset", s.handleReset)

	r.Route("/accidents", func(r chi.Router) {
		r.Get("/", s.handleAccidents)
		r.Post("/", s.handleCreateAccident)
		r.Post("/{id}/resolve", s.handleResolveAccident)
	})

	r.Route("/blockages", func(r chi.Router) {
		r.Get("/", s.handleBlocked)
		r.Post("/", s.handleBlock)
		r.Post("/unblock", s.handleUnblock)
	})

	r.Get("/state", s.handleState)
	r.Get("/traffic-statistics", s.handleTrafficStatistics)
	r.Get("/congestion-report", s.handleCongestionReport)
	r.Get("/edge-traffic", s.handleEdgeTraffic)
	r.Get("/simulation-info", s.handleSimulationInfo)

	r.Get("/ws", s.handleWebsocket)

	return r
}

// writeJSON encodes v as the response body, logging (not failing loudly
// on) encode errors since the header is already committed by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
