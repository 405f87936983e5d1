// Package mapstore is a thin declarative-map registry: it holds named
// graph.GraphData documents loaded from JSON files and builds a graph.Graph
// on demand. Parsing beyond this shape is explicitly out of scope (spec §1
// Non-goals "Map file parsing").
package mapstore

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// Store holds declarative map documents keyed by map id.
type Store struct {
	maps map[string]graph.GraphData
}

// New constructs an empty Store.
func New() *Store {
	return &Store{maps: make(map[string]graph.GraphData)}
}

// Register adds a map under the given id, replacing any existing entry.
func (s *Store) Register(id string, data graph.GraphData) {
	s.maps[id] = data
}

// LoadFile reads a JSON file as a graph.GraphData document and registers it
// under id.
func (s *Store) LoadFile(id, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading map file %q", path)
	}
	var data graph.GraphData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrapf(err, "parsing map file %q", path)
	}
	s.Register(id, data)
	return nil
}

// Build constructs a graph.Graph from the registered document with the
// given id.
func (s *Store) Build(id string) (*graph.Graph, error) {
	data, ok := s.maps[id]
	if !ok {
		return nil, errors.Wrapf(simerr.ErrUnknownMap, "%q", id)
	}
	return graph.New(data)
}

// Data returns the raw declarative document for a map id, for the
// map_data() snapshot query.
func (s *Store) Data(id string) (graph.GraphData, error) {
	data, ok := s.maps[id]
	if !ok {
		return graph.GraphData{}, errors.Wrapf(simerr.ErrUnknownMap, "%q", id)
	}
	return data, nil
}

// IDs returns every registered map id, sorted.
func (s *Store) IDs() []string {
	out := make([]string, 0, len(s.maps))
	for id := range s.maps {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
