package agent

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// Index is the simulator's owned lookup structure over the live agent
// population: by id, by active set, and by current edge (spec §2 "Agent
// index"). It also accumulates per-type lifetime statistics for arrived
// agents so removal does not lose the numbers behind Statistics.
type Index struct {
	byID   map[string]*Agent
	order  []string // insertion order, for deterministic iteration
	byEdge map[graph.EdgeKey][]*Agent

	spawnedByType map[Type]int
	arrivedByType map[Type]int
	totalTravel   map[Type]float64
	totalWait     map[Type]float64
	totalReroutes int
}

// NewIndex constructs an empty agent index.
func NewIndex() *Index {
	return &Index{
		byID:          make(map[string]*Agent),
		byEdge:        make(map[graph.EdgeKey][]*Agent),
		spawnedByType: make(map[Type]int),
		arrivedByType: make(map[Type]int),
		totalTravel:   make(map[Type]float64),
		totalWait:     make(map[Type]float64),
	}
}

// Add inserts a newly spawned agent into the index.
func (idx *Index) Add(a *Agent) {
	idx.byID[a.ID] = a
	idx.order = append(idx.order, a.ID)
	idx.spawnedByType[a.Type]++
}

// Get returns the agent with the given id.
func (idx *Index) Get(id string) (*Agent, error) {
	a, ok := idx.byID[id]
	if !ok {
		return nil, errors.Wrapf(simerr.ErrUnknownAgent, "%q", id)
	}
	return a, nil
}

// Remove deletes an agent from the index, folding its final statistics into
// the running totals first.
func (idx *Index) Remove(id string) error {
	a, ok := idx.byID[id]
	if !ok {
		return errors.Wrapf(simerr.ErrUnknownAgent, "%q", id)
	}
	delete(idx.byID, id)
	idx.order = lo.Reject(idx.order, func(other string, _ int) bool { return other == id })
	idx.totalReroutes += a.RerouteCount
	idx.totalWait[a.Type] += a.CumulativeWait
	if a.CompletedTravel != nil {
		idx.totalTravel[a.Type] += *a.CompletedTravel
	}
	return nil
}

// All returns every agent in insertion order.
func (idx *Index) All() []*Agent {
	out := make([]*Agent, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.byID[id])
	}
	return out
}

// Active returns every agent whose status is not arrived.
func (idx *Index) Active() []*Agent {
	return lo.Filter(idx.All(), func(a *Agent, _ int) bool { return a.Active() })
}

// MarkArrived folds an about-to-arrive agent's outcome into the running
// per-type arrival count. Call this exactly once, at the tick where status
// transitions to arrived.
func (idx *Index) MarkArrived(a *Agent) {
	idx.arrivedByType[a.Type]++
}

// RebuildEdgeOccupancy recomputes the edge-occupancy index from scratch by
// scanning the active set (spec §4.3 "Edge occupancy": rebuild-from-scratch
// keeps the two integration passes consistent under reroutes).
func (idx *Index) RebuildEdgeOccupancy() {
	idx.byEdge = make(map[graph.EdgeKey][]*Agent)
	for _, a := range idx.Active() {
		if !a.OnEdge() {
			continue
		}
		key := a.CurrentEdgeKey()
		idx.byEdge[key] = append(idx.byEdge[key], a)
	}
}

// OnEdge returns every agent currently occupying the given directed edge.
func (idx *Index) OnEdge(key graph.EdgeKey) []*Agent {
	return idx.byEdge[key]
}

// DistanceAhead returns the distance in edge-length units from self's
// position-on-edge (in [0,1]) to the nearest agent ahead on the same edge (i.e. with a
// greater position-on-edge), or -1 if there is none. edgeLength converts
// the [0,1] position gap into length units.
func DistanceAhead(agents []*Agent, self *Agent, edgeLength float64) float64 {
	best := -1.0
	for _, other := range agents {
		if other == self || other.PositionOnEdge <= self.PositionOnEdge {
			continue
		}
		gap := (other.PositionOnEdge - self.PositionOnEdge) * edgeLength
		if best < 0 || gap < best {
			best = gap
		}
	}
	return best
}

// Statistics is the per-type rollup surfaced through state()'s
// vehicle_statistics field (spec §6, supplemented from
// VehicleManager.get_statistics in the original implementation).
type Statistics struct {
	SpawnedByType     map[Type]int     `json:"spawned_by_type"`
	ArrivedByType     map[Type]int     `json:"arrived_by_type"`
	AverageTravelTime map[Type]float64 `json:"average_travel_time"`
	AverageWaitTime   map[Type]float64 `json:"average_wait_time"`
	TotalReroutes     int              `json:"total_reroutes"`
}

// Statistics computes the current rollup over both live and previously
// removed agents.
func (idx *Index) Statistics() Statistics {
	avgTravel := make(map[Type]float64)
	avgWait := make(map[Type]float64)
	travel := cloneFloatMap(idx.totalTravel)
	wait := cloneFloatMap(idx.totalWait)
	arrived := cloneIntMap(idx.arrivedByType)
	reroutes := idx.totalReroutes

	for _, a := range idx.All() {
		wait[a.Type] += a.CumulativeWait
		reroutes += a.RerouteCount
		if a.CompletedTravel != nil {
			travel[a.Type] += *a.CompletedTravel
		}
	}
	for typ, n := range arrived {
		if n > 0 {
			avgTravel[typ] = travel[typ] / float64(n)
		}
	}
	for typ, n := range idx.spawnedByType {
		if n > 0 {
			avgWait[typ] = wait[typ] / float64(n)
		}
	}
	return Statistics{
		SpawnedByType:     cloneIntMap(idx.spawnedByType),
		ArrivedByType:     arrived,
		AverageTravelTime: avgTravel,
		AverageWaitTime:   avgWait,
		TotalReroutes:     reroutes,
	}
}

func cloneFloatMap(m map[Type]float64) map[Type]float64 {
	out := make(map[Type]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIntMap(m map[Type]int) map[Type]int {
	out := make(map[Type]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
