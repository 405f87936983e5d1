package simulation

import (
	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/congestion"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/incident"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// Nodes returns every node in the active map.
func (s *Simulator) Nodes() ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	return s.graph.Nodes(), nil
}

// MapData returns the declarative document for a map id.
func (s *Simulator) MapData(id string) (graph.GraphData, error) {
	return s.store.Data(id)
}

// Maps returns every registered map id.
func (s *Simulator) Maps() []string {
	return s.store.IDs()
}

// Agent returns a snapshot copy of one agent's state.
func (s *Simulator) Agent(id string) (agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.agents.Get(id)
	if err != nil {
		return agent.Agent{}, err
	}
	return *a, nil
}

// Agents returns a snapshot copy of every agent's state.
func (s *Simulator) Agents() []agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.agents.All()
	out := make([]agent.Agent, len(all))
	for i, a := range all {
		out[i] = *a
	}
	return out
}

// StateSnapshot is the full state() query result (spec §6).
type StateSnapshot struct {
	Step              int                `json:"step"`
	Active            bool               `json:"active"`
	Agents            []agent.Agent      `json:"agents"`
	VehicleStatistics agent.Statistics   `json:"vehicle_statistics"`
	Multipliers       map[string]float64 `json:"multipliers"`
	TotalSpawned      int                `json:"total_spawned"`
	ElapsedSimTime    float64            `json:"elapsed_sim_time"`
}

// State returns the full snapshot named in spec §6.
func (s *Simulator) State() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.agents.All()
	agents := make([]agent.Agent, len(all))
	for i, a := range all {
		agents[i] = *a
	}
	return StateSnapshot{
		Step:              s.step,
		Active:            !s.stopped,
		Agents:            agents,
		VehicleStatistics: s.agents.Statistics(),
		Multipliers:       stringKeyedCopy(s.multipliers),
		TotalSpawned:      s.totalSpawned,
		ElapsedSimTime:    s.elapsedSimTime,
	}
}

// Accidents returns every currently active accident.
func (s *Simulator) Accidents() []*incident.Accident {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incidents.Accidents()
}

// Blocked returns every currently blocked edge.
func (s *Simulator) Blocked() []*incident.Blockage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incidents.Blocked()
}

// TrafficStatistics reports the distribution of edges across congestion
// bands (spec §8 "sum over bands of congestion_distribution ≈ 100%").
func (s *Simulator) TrafficStatistics() congestion.GlobalStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.congestion.GlobalStatistics()
}

// CongestionReport is the congestion_report() snapshot (spec §6),
// extended with the node-level supplement (spec_full §E.4). It carries no
// trend predictions: Analyser.PredictProbability is not consulted here.
type CongestionReport struct {
	Bottlenecks            []congestion.EdgeSnapshot   `json:"bottlenecks"`
	CongestedIntersections []graph.NodeID              `json:"congested_intersections"`
	Global                 congestion.GlobalStatistics `json:"global"`
}

// CongestionReport computes the current bottleneck list, congested
// intersections, and band distribution.
func (s *Simulator) CongestionReport() (CongestionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return CongestionReport{}, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	return CongestionReport{
		Bottlenecks:            s.congestion.Bottlenecks(),
		CongestedIntersections: s.congestion.CongestedIntersections(s.graph),
		Global:                 s.congestion.GlobalStatistics(),
	}, nil
}

// EdgeTraffic returns the last recorded traffic reading for every edge.
func (s *Simulator) EdgeTraffic() []congestion.EdgeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.congestion.EdgeTraffic()
}

// SimulationInfo is the simulation_info() snapshot (spec §6), carrying the
// supplemented elapsed simulated time (spec_full §E.4).
type SimulationInfo struct {
	MapID          string  `json:"map_id"`
	Step           int     `json:"step"`
	ElapsedSimTime float64 `json:"elapsed_sim_time"`
	TotalSpawned   int     `json:"total_spawned"`
	ActiveAgents   int     `json:"active_agents"`
}

// SimulationInfo returns a summary of the current run.
func (s *Simulator) SimulationInfo() SimulationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimulationInfo{
		MapID:          s.mapID,
		Step:           s.step,
		ElapsedSimTime: s.elapsedSimTime,
		TotalSpawned:   s.totalSpawned,
		ActiveAgents:   len(s.agents.Active()),
	}
}
