// Package planner implements on-demand shortest-path search over a
// graph.Graph using a dynamic per-edge multiplier field and a blocked-edge
// set supplied by the caller at call time (spec §4.2). There is no cache:
// every call re-expands the frontier, since the multiplier field changes
// between ticks and stale plans would silently go wrong.
package planner

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// MultiplierLookup returns the current cost multiplier for an edge. Callers
// supply a closure over their own multiplier field (the planner has no
// notion of congestion).
type MultiplierLookup func(key graph.EdgeKey) float64

// BlockedLookup reports whether an edge is currently blocked. Blocked edges
// are skipped outright rather than merely penalised, per spec §3.
type BlockedLookup func(key graph.EdgeKey) bool

// Result is a successful plan: the node sequence from start to goal
// inclusive, and its total cost under the multiplier field at call time.
type Result struct {
	Path []graph.NodeID `json:"path"`
	Cost float64        `json:"cost"`
}

// frontierEntry is one open-set member in the A* priority queue.
type frontierEntry struct {
	node  graph.NodeID
	g     float64 // cost from start
	f     float64 // g + heuristic
	seq   int     // insertion order, breaks ties FIFO
	index int     // heap.Interface bookkeeping
}

type frontier []*frontierEntry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].f != f[j].f {
		return f[i].f < f[j].f
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	e := x.(*frontierEntry)
	e.index = len(*f)
	*f = append(*f, e)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return e
}

// Plan runs best-first search from start to goal, restricted to edges that
// allow mode and are not in the blocked set, using multiplier to weight
// edge cost. Returns simerr.ErrInvalidEndpoint if start or goal is not a
// node in g, and simerr.ErrNoPath if goal is unreachable under the current
// filters.
func Plan(g *graph.Graph, start, goal graph.NodeID, mode graph.Mode, multiplier MultiplierLookup, blocked BlockedLookup) (Result, error) {
	if !g.HasNode(start) {
		return Result{}, errors.Wrapf(simerr.ErrInvalidEndpoint, "start %q", start)
	}
	if !g.HasNode(goal) {
		return Result{}, errors.Wrapf(simerr.ErrInvalidEndpoint, "goal %q", goal)
	}
	if start == goal {
		return Result{Path: []graph.NodeID{start}, Cost: 0}, nil
	}

	goalX, goalY, _ := g.Coord(goal)
	heuristic := func(n graph.NodeID) float64 {
		x, y, err := g.Coord(n)
		if err != nil {
			return 0
		}
		dx, dy := x-goalX, y-goalY
		return math.Sqrt(dx*dx + dy*dy)
	}

	gScore := map[graph.NodeID]float64{start: 0}
	cameFrom := map[graph.NodeID]graph.NodeID{}
	closed := map[graph.NodeID]bool{}

	var seq int
	open := &frontier{}
	heap.Init(open)
	heap.Push(open, &frontierEntry{node: start, g: 0, f: heuristic(start), seq: seq})

	for open.Len() > 0 {
		current := heap.Pop(open).(*frontierEntry)
		if closed[current.node] {
			continue
		}
		if current.node == goal {
			return Result{Path: reconstruct(cameFrom, start, goal), Cost: current.g}, nil
		}
		closed[current.node] = true

		neighbours, err := g.Neighbours(current.node)
		if err != nil {
			return Result{}, err
		}
		for _, e := range neighbours {
			if !e.Allows(mode) {
				continue
			}
			if blocked != nil && blocked(e.Key()) {
				continue
			}
			if closed[e.To] {
				continue
			}
			m := 1.0
			if multiplier != nil {
				m = multiplier(e.Key())
			}
			tentative := current.g + e.Distance*m
			if best, ok := gScore[e.To]; ok && tentative >= best {
				continue
			}
			gScore[e.To] = tentative
			cameFrom[e.To] = current.node
			seq++
			heap.Push(open, &frontierEntry{node: e.To, g: tentative, f: tentative + heuristic(e.To), seq: seq})
		}
	}

	return Result{}, errors.Wrapf(simerr.ErrNoPath, "%s -> %s", start, goal)
}

func reconstruct(cameFrom map[graph.NodeID]graph.NodeID, start, goal graph.NodeID) []graph.NodeID {
	path := []graph.NodeID{goal}
	for path[len(path)-1] != start {
		prev := cameFrom[path[len(path)-1]]
		path = append(path, prev)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
