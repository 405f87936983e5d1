// Package graph implements the road-network model: nodes with 2-D
// coordinates and directed weighted edges carrying a mode bitmask and a
// one-way flag. A Graph is immutable for the lifetime of a loaded map (spec
// §3, §4.1); loading a new map means constructing a new Graph, never
// mutating one in place.
package graph

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// NodeID identifies a node. IDs are caller-supplied and must be unique
// within a Graph.
type NodeID = string

// Mode is a bitmask over the travel modes an edge may be used by.
type Mode uint8

const (
	ModeCar Mode = 1 << iota
	ModeBicycle
	ModePedestrian
)

// modeNames maps the wire-format mode string to its bit.
var modeNames = map[string]Mode{
	"car":        ModeCar,
	"bicycle":    ModeBicycle,
	"pedestrian": ModePedestrian,
}

// ParseMode converts a mode name ("car", "bicycle", "pedestrian") to its bit.
func ParseMode(name string) (Mode, error) {
	m, ok := modeNames[name]
	if !ok {
		return 0, errors.Wrapf(simerr.ErrUnknownMode, "%q", name)
	}
	return m, nil
}

// ParseModes converts a set of mode names into their combined bitmask.
func ParseModes(names []string) (Mode, error) {
	var m Mode
	for _, n := range names {
		bit, err := ParseMode(n)
		if err != nil {
			return 0, err
		}
		m |= bit
	}
	return m, nil
}

// Node is a point in the road network, immutable once loaded.
type Node struct {
	ID NodeID  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// EdgeKey is the ordered pair identifying a directed edge.
type EdgeKey struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// String renders the key as "from,to" (used as a serialisable map key).
func (k EdgeKey) String() string { return k.From + "," + k.To }

// Edge is a directed connection between two nodes.
type Edge struct {
	From     NodeID
	To       NodeID
	Distance float64
	Modes    Mode
	OneWay   bool
}

// Key returns the edge's EdgeKey.
func (e Edge) Key() EdgeKey { return EdgeKey{From: e.From, To: e.To} }

// Allows reports whether mode m may use this edge.
func (e Edge) Allows(m Mode) bool { return e.Modes&m != 0 }

// NodeData and EdgeData are the declarative, JSON-serialisable description
// of a map (spec §6 "Map file format"). Parsing beyond this thin struct
// shape is explicitly out of scope for the engine (spec §1 Non-goals).
type NodeData struct {
	ID NodeID  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type EdgeData struct {
	From         NodeID   `json:"from"`
	To           NodeID   `json:"to"`
	Distance     float64  `json:"distance"`
	AllowedModes []string `json:"allowed_modes"`
	OneWay       bool     `json:"one_way"`
}

// GraphData is the full declarative map document.
type GraphData struct {
	Nodes []NodeData `json:"nodes"`
	Edges []EdgeData `json:"edges"`
}

// Graph is a directed weighted graph, immutable once built.
type Graph struct {
	nodes     []Node
	nodeMap   map[NodeID]Node
	edgeMap   map[EdgeKey]Edge
	adjacency map[NodeID][]Edge
}

// New builds a Graph from GraphData, materialising the reverse edge for any
// non-one-way edge. Returns an error (wrapping simerr sentinels) if a node
// ID repeats, an edge references a missing node, or an edge has non-positive
// distance — the latter is exactly the "zero-length edge" runtime anomaly
// spec §7 requires be caught at load time rather than during integration.
func New(data GraphData) (*Graph, error) {
	g := &Graph{
		nodeMap:   make(map[NodeID]Node, len(data.Nodes)),
		edgeMap:   make(map[EdgeKey]Edge, len(data.Edges)*2),
		adjacency: make(map[NodeID][]Edge, len(data.Nodes)),
	}
	for _, n := range data.Nodes {
		if _, exists := g.nodeMap[n.ID]; exists {
			return nil, errors.Wrapf(simerr.ErrDuplicateNode, "%q", n.ID)
		}
		node := Node{ID: n.ID, X: n.X, Y: n.Y}
		g.nodes = append(g.nodes, node)
		g.nodeMap[n.ID] = node
	}
	for _, e := range data.Edges {
		if err := g.addEdgeData(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) addEdgeData(e EdgeData) error {
	if e.Distance <= 0 {
		return errors.Wrapf(simerr.ErrZeroLengthEdge, "%s->%s", e.From, e.To)
	}
	if _, ok := g.nodeMap[e.From]; !ok {
		return errors.Wrapf(simerr.ErrUnknownNode, "edge %s->%s: source %q", e.From, e.To, e.From)
	}
	if _, ok := g.nodeMap[e.To]; !ok {
		return errors.Wrapf(simerr.ErrUnknownNode, "edge %s->%s: target %q", e.From, e.To, e.To)
	}
	modes, err := ParseModes(e.AllowedModes)
	if err != nil {
		return err
	}
	if err := g.addEdge(Edge{From: e.From, To: e.To, Distance: e.Distance, Modes: modes, OneWay: e.OneWay}); err != nil {
		return err
	}
	if !e.OneWay {
		if err := g.addEdge(Edge{From: e.To, To: e.From, Distance: e.Distance, Modes: modes, OneWay: e.OneWay}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) addEdge(e Edge) error {
	key := e.Key()
	if _, exists := g.edgeMap[key]; exists {
		return errors.Wrapf(simerr.ErrDuplicateEdge, "%s", key)
	}
	g.edgeMap[key] = e
	g.adjacency[e.From] = append(g.adjacency[e.From], e)
	return nil
}

// HasNode reports whether id names a node in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodeMap[id]
	return ok
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, error) {
	n, ok := g.nodeMap[id]
	if !ok {
		return Node{}, errors.Wrapf(simerr.ErrUnknownNode, "%q", id)
	}
	return n, nil
}

// Coord returns the 2-D coordinate of a node.
func (g *Graph) Coord(id NodeID) (float64, float64, error) {
	n, err := g.Node(id)
	if err != nil {
		return 0, 0, err
	}
	return n.X, n.Y, nil
}

// Nodes returns every node in the graph, in load order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeIDs returns every node ID in the graph, in load order.
func (g *Graph) NodeIDs() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.ID
	}
	return out
}

// Neighbours returns the outgoing edges of a node.
func (g *Graph) Neighbours(id NodeID) ([]Edge, error) {
	if !g.HasNode(id) {
		return nil, errors.Wrapf(simerr.ErrUnknownNode, "%q", id)
	}
	return g.adjacency[id], nil
}

// OutDegree returns the number of outgoing edges from a node.
func (g *Graph) OutDegree(id NodeID) int {
	return len(g.adjacency[id])
}

// Edge returns the directed edge from `from` to `to`.
func (g *Graph) Edge(from, to NodeID) (Edge, error) {
	e, ok := g.edgeMap[EdgeKey{From: from, To: to}]
	if !ok {
		return Edge{}, errors.Wrapf(simerr.ErrUnknownEdge, "%s->%s", from, to)
	}
	return e, nil
}

// Edges returns every directed edge in the graph (both materialised
// directions of a bidirectional edge are returned separately).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeMap))
	for _, n := range g.nodes {
		out = append(out, g.adjacency[n.ID]...)
	}
	return out
}

// EdgeCount returns the number of directed edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edgeMap) }

// String implements fmt.Stringer for debugging.
func (g *Graph) String() string {
	return fmt.Sprintf("graph{nodes=%d edges=%d}", len(g.nodes), len(g.edgeMap))
}
