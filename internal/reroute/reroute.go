// Package reroute implements the post-integration reroute decider (spec
// §4.6): deciding whether an agent's upcoming edges warrant abandoning its
// current path, and replanning when they do. Grounded on the original
// implementation's _should_reroute / _reroute_vehicle.
package reroute

import (
	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/planner"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
)

// BlockedLookup reports whether an edge is in the blocked set.
type BlockedLookup func(graph.EdgeKey) bool

// ProbabilityLookup returns the current congestion probability for an edge.
type ProbabilityLookup func(graph.EdgeKey) float64

// Planner matches planner.Plan's signature, accepted as an interface value
// so tests can substitute a stub.
type Planner func(g *graph.Graph, start, goal graph.NodeID, mode graph.Mode, multiplier planner.MultiplierLookup, blocked planner.BlockedLookup) (planner.Result, error)

// Upcoming returns the next n edges (as keys) in an agent's remaining path,
// including its current edge, clipped at the path end (spec §4.6 "the next
// 3 edges in its remaining path").
func Upcoming(a *agent.Agent, n int) []graph.EdgeKey {
	remaining := a.RemainingPath()
	if len(remaining) < 2 {
		return nil
	}
	var out []graph.EdgeKey
	for i := 0; i < n && i+1 < len(remaining); i++ {
		out = append(out, graph.EdgeKey{From: remaining[i], To: remaining[i+1]})
	}
	return out
}

// ShouldReroute reports whether an agent's upcoming edges warrant a
// reroute: any of them blocked, or any with congestion probability above
// the configured threshold.
func ShouldReroute(a *agent.Agent, cfg *simconfig.Config, blocked BlockedLookup, probability ProbabilityLookup) bool {
	for _, key := range Upcoming(a, cfg.RerouteLookaheadEdges) {
		if blocked(key) {
			return true
		}
		if probability(key) > cfg.RerouteProbThreshold {
			return true
		}
	}
	return false
}

// Apply attempts to replan an agent from its current node to its
// destination. On success, replaces the agent's path/index, sets status to
// rerouting, resets target speed to nominal, and increments the reroute
// counter. On failure, the agent is left unmodified except for a stuck
// status so it is retried next tick (spec §4.6).
func Apply(a *agent.Agent, g *graph.Graph, plan Planner, multiplier planner.MultiplierLookup, blocked planner.BlockedLookup) error {
	res, err := plan(g, a.CurrentNode, a.Destination, a.Type.Mode(), multiplier, blocked)
	if err != nil {
		a.Status = agent.StatusStuck
		return err
	}
	a.Path = res.Path
	a.PathIndex = 0
	if len(res.Path) > 1 {
		a.NextNode = res.Path[1]
	} else {
		a.NextNode = ""
	}
	a.Status = agent.StatusRerouting
	a.TargetSpeed = a.NominalSpeed
	a.RerouteCount++
	return nil
}
