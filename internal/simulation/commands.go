package simulation

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/incident"
	"github.com/urbanflow-sim/traffic-engine/internal/planner"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// distributionEpsilon is the tolerance spec §7 allows a spawn distribution's
// weights to miss summing to exactly 1 ("sum ≠ 1 ± ε").
const distributionEpsilon = 1e-6

// Spawn creates a new agent of the given type. A blank start or goal is
// replaced with a uniformly random node. Returns the failure named in spec
// §6 ("spawn(type, start?, goal?) → agent or failure") as a Go error if
// planning fails; the agent is not added in that case.
func (s *Simulator) Spawn(typ agent.Type, start, goal graph.NodeID) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked(typ, start, goal)
}

func (s *Simulator) spawnLocked(typ agent.Type, start, goal graph.NodeID) (*agent.Agent, error) {
	if s.graph == nil {
		return nil, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	nodes := s.graph.NodeIDs()
	if len(nodes) == 0 {
		return nil, errors.New("map has no nodes")
	}
	if start == "" {
		start = nodes[s.rng.Intn(len(nodes))]
	}
	if goal == "" {
		goal = nodes[s.rng.Intn(len(nodes))]
	}

	multiplier := func(k graph.EdgeKey) float64 {
		if m, ok := s.multipliers[k]; ok {
			return m
		}
		return s.cfg.DefaultMultiplier
	}
	blocked := func(k graph.EdgeKey) bool { return s.incidents.IsBlocked(k) }

	res, err := planner.Plan(s.graph, start, goal, typ.Mode(), multiplier, blocked)
	if err != nil {
		return nil, err
	}

	nominal := s.sampleNominalSpeed(typ)
	s.totalSpawned++
	id := fmt.Sprintf("%s_%d", typ, s.totalSpawned)
	a := agent.New(id, typ, res.Path, nominal, s.cfg.Acceleration, s.elapsedSimTime)
	s.agents.Add(a)
	return a, nil
}

// sampleNominalSpeed draws a per-agent nominal speed from the type's
// configured normal distribution, clamped to [min,max] (spec §4.7
// "Per-agent nominal speed sampling").
func (s *Simulator) sampleNominalSpeed(typ agent.Type) float64 {
	dist, ok := s.cfg.SpeedByType[string(typ)]
	if !ok {
		return typ.NominalSpeed()
	}
	v := s.rng.NormFloat64()*dist.StdDev + dist.Mean
	if v < dist.Min {
		v = dist.Min
	}
	if v > dist.Max {
		v = dist.Max
	}
	return v
}

// SpawnMany spawns count agents sampled by the given type distribution
// (default 60/25/15 car/bicycle/pedestrian if dist is nil), returning the
// number successfully spawned. Returns simerr.ErrInvalidDistribution,
// without spawning anything, if a caller-supplied dist has a negative
// weight or its weights don't sum to 1 within distributionEpsilon (spec §7
// "bad distribution (negative, sum ≠ 1 ± ε)").
func (s *Simulator) SpawnMany(count int, dist map[agent.Type]float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dist == nil {
		dist = map[agent.Type]float64{
			agent.TypeCar: 0.6, agent.TypeBicycle: 0.25, agent.TypePedestrian: 0.15,
		}
	} else if err := validateDistribution(dist); err != nil {
		return 0, err
	}
	types, weights := splitWeights(dist)
	succeeded := 0
	for i := 0; i < count; i++ {
		typ := sampleType(s.rng.Float64(), types, weights)
		if _, err := s.spawnLocked(typ, "", ""); err == nil {
			succeeded++
		}
	}
	return succeeded, nil
}

// validateDistribution rejects a negative weight or a total that strays
// from 1 by more than distributionEpsilon.
func validateDistribution(dist map[agent.Type]float64) error {
	sum := 0.0
	for typ, w := range dist {
		if w < 0 {
			return errors.Wrapf(simerr.ErrInvalidDistribution, "negative weight %v for %q", w, typ)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > distributionEpsilon {
		return errors.Wrapf(simerr.ErrInvalidDistribution, "weights sum to %v, want 1", sum)
	}
	return nil
}

// splitWeights returns the distribution's types in sorted order with their
// weights, so that sampling with a seeded source is reproducible regardless
// of map iteration order.
func splitWeights(dist map[agent.Type]float64) ([]agent.Type, []float64) {
	types := make([]agent.Type, 0, len(dist))
	for t := range dist {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	weights := make([]float64, 0, len(dist))
	for _, t := range types {
		weights = append(weights, dist[t])
	}
	return types, weights
}

func sampleType(r float64, types []agent.Type, weights []float64) agent.Type {
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return types[i]
		}
	}
	if len(types) > 0 {
		return types[len(types)-1]
	}
	return agent.TypeCar
}

// RemoveAgent deletes an agent from the index.
func (s *Simulator) RemoveAgent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents.Remove(id)
}

// CreateAccident creates an accident on the given edge, or a uniformly
// random edge if either from or to is blank, with the given severity (or a
// uniformly sampled one if blank).
func (s *Simulator) CreateAccident(from, to graph.NodeID, severity incident.Severity) (*incident.Accident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	key := graph.EdgeKey{From: from, To: to}
	if from == "" || to == "" {
		edges := s.graph.Edges()
		if len(edges) == 0 {
			return nil, errors.New("map has no edges")
		}
		key = edges[s.rng.Intn(len(edges))].Key()
	}
	return s.incidents.CreateAccident(key, severity, s.elapsedSimTime)
}

// ResolveAccident removes an accident immediately.
func (s *Simulator) ResolveAccident(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incidents.ResolveAccident(id)
}

// Block sets the given edge's sentinel and inserts it into the blocked set.
func (s *Simulator) Block(from, to graph.NodeID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := graph.EdgeKey{From: from, To: to}
	s.incidents.Block(key, reason, s.elapsedSimTime)
	if _, ok := s.multipliers[key]; ok {
		s.multipliers[key] = s.cfg.BlockedSentinel
	}
}

// Unblock removes an edge from the blocked set (no-op if not blocked).
func (s *Simulator) Unblock(from, to graph.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents.Unblock(graph.EdgeKey{From: from, To: to})
}

// Plan runs the planner against the current multiplier field and blocked
// set, without mutating any agent (spec §6 "plan(start, goal, mode)").
func (s *Simulator) Plan(start, goal graph.NodeID, mode graph.Mode) (planner.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return planner.Result{}, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	multiplier := func(k graph.EdgeKey) float64 {
		if m, ok := s.multipliers[k]; ok {
			return m
		}
		return s.cfg.DefaultMultiplier
	}
	blocked := func(k graph.EdgeKey) bool { return s.incidents.IsBlocked(k) }
	return planner.Plan(s.graph, start, goal, mode, multiplier, blocked)
}
