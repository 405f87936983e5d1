// Package agent defines the moving-agent record and the index that tracks
// the live population by id, by active set, and by current edge (spec §3,
// §4.3).
package agent

import (
	"fmt"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
)

// Type is one of the three travel modes an agent can be.
type Type string

const (
	TypeCar        Type = "car"
	TypeBicycle    Type = "bicycle"
	TypePedestrian Type = "pedestrian"
)

// Mode returns the graph.Mode bit corresponding to this agent type.
func (t Type) Mode() graph.Mode {
	switch t {
	case TypeCar:
		return graph.ModeCar
	case TypeBicycle:
		return graph.ModeBicycle
	case TypePedestrian:
		return graph.ModePedestrian
	default:
		return 0
	}
}

// CapacityUsage is the abstract road-space contribution of one agent of
// this type (spec §3, glossary).
func (t Type) CapacityUsage() float64 {
	switch t {
	case TypeCar:
		return 1.0
	case TypeBicycle:
		return 0.5
	case TypePedestrian:
		return 0.2
	default:
		return 0
	}
}

// NominalSpeed is this type's default clear-road speed, used only when no
// per-agent sampled speed is available.
func (t Type) NominalSpeed() float64 {
	switch t {
	case TypeCar:
		return 60
	case TypeBicycle:
		return 40
	case TypePedestrian:
		return 20
	default:
		return 0
	}
}

// Status is the closed set of lifecycle states an agent moves through.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusMoving    Status = "moving"
	StatusStuck     Status = "stuck"
	StatusArrived   Status = "arrived"
	StatusRerouting Status = "rerouting"
)

// Agent is the full mutable record for one simulated traveller (spec §3).
// The simulator core is the only writer; everything outside internal/agent
// and internal/simulation must treat a returned *Agent as read-only.
type Agent struct {
	ID          string       `json:"id"`
	Type        Type         `json:"type"`
	Origin      graph.NodeID `json:"origin"`
	Destination graph.NodeID `json:"destination"`

	CurrentNode graph.NodeID   `json:"current_node"`
	NextNode    graph.NodeID   `json:"next_node,omitempty"` // empty if arrived
	Path        []graph.NodeID `json:"path"`
	PathIndex   int            `json:"path_index"`

	Status Status `json:"status"`

	PositionOnEdge float64 `json:"position_on_edge"` // [0, 1]

	CurrentSpeed float64 `json:"current_speed"`
	TargetSpeed  float64 `json:"target_speed"`
	NominalSpeed float64 `json:"nominal_speed"`
	Acceleration float64 `json:"acceleration"`

	CumulativeDistance float64  `json:"cumulative_distance"`
	CumulativeWait     float64  `json:"cumulative_wait"`
	RerouteCount       int      `json:"reroute_count"`
	CompletedTravel    *float64 `json:"completed_travel,omitempty"` // nil until arrived

	SpawnedAt float64 `json:"spawned_at"` // simulated seconds at creation
}

// New constructs an agent at the start of a freshly planned path. path must
// contain at least one node and satisfy path[0] == origin, path[-1] ==
// destination (the caller, typically the spawner, is responsible for
// providing a plan that already satisfies this).
func New(id string, typ Type, path []graph.NodeID, nominalSpeed, acceleration, spawnedAt float64) *Agent {
	a := &Agent{
		ID:           id,
		Type:         typ,
		Origin:       path[0],
		Destination:  path[len(path)-1],
		CurrentNode:  path[0],
		Path:         path,
		PathIndex:    0,
		NominalSpeed: nominalSpeed,
		Acceleration: acceleration,
		SpawnedAt:    spawnedAt,
	}
	if len(path) == 1 {
		a.Status = StatusArrived
		zero := 0.0
		a.CompletedTravel = &zero
		return a
	}
	a.NextNode = path[1]
	a.Status = StatusWaiting
	a.TargetSpeed = nominalSpeed
	return a
}

// Active reports whether the agent has not yet arrived.
func (a *Agent) Active() bool { return a.Status != StatusArrived }

// OnEdge reports whether the agent currently occupies an edge (as opposed to
// sitting exactly at a node between ticks, or having arrived).
func (a *Agent) OnEdge() bool {
	return a.Active() && a.NextNode != "" && a.PositionOnEdge > 0
}

// CurrentEdgeKey returns the edge the agent is travelling along. Only valid
// when OnEdge reports true.
func (a *Agent) CurrentEdgeKey() graph.EdgeKey {
	return graph.EdgeKey{From: a.CurrentNode, To: a.NextNode}
}

// RemainingPath returns the node sequence from the agent's current index to
// the end of its path (inclusive of the current node).
func (a *Agent) RemainingPath() []graph.NodeID {
	return a.Path[a.PathIndex:]
}

// String implements fmt.Stringer for debugging.
func (a *Agent) String() string {
	return fmt.Sprintf("agent{id=%s type=%s status=%s node=%s->%s pos=%.2f}",
		a.ID, a.Type, a.Status, a.CurrentNode, a.NextNode, a.PositionOnEdge)
}
