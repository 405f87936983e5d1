// Package congestion computes per-edge density, congestion level,
// congestion probability, and historical multiplier samples (spec §4.4),
// grounded on the original implementation's TrafficAnalyzer.
package congestion

import (
	"math"
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
)

// Level is one of the five named congestion bands.
type Level string

const (
	LevelFreeFlow  Level = "free_flow"
	LevelLight     Level = "light"
	LevelModerate  Level = "moderate"
	LevelHeavy     Level = "heavy"
	LevelCongested Level = "congested"
)

// history is a bounded ring buffer of past multiplier samples for one edge.
type history struct {
	samples []float64
	size    int
}

func newHistory(size int) *history {
	return &history{size: size}
}

func (h *history) push(v float64) {
	h.samples = append(h.samples, v)
	if len(h.samples) > h.size {
		h.samples = h.samples[len(h.samples)-h.size:]
	}
}

func (h *history) mean() float64 {
	if len(h.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range h.samples {
		sum += v
	}
	return sum / float64(len(h.samples))
}

// EdgeSnapshot is one edge's current traffic reading, used by
// Analyser.EdgeTraffic and the bottleneck/node-congestion aggregates.
type EdgeSnapshot struct {
	Key         graph.EdgeKey `json:"key"`
	Density     float64       `json:"density"`
	Level       Level         `json:"level"`
	Multiplier  float64       `json:"multiplier"`
	Probability float64       `json:"probability"`
}

// Analyser owns the per-edge history and derives density, level,
// probability, and multiplier samples from a caller-supplied occupancy
// count and edge length (spec §4.4).
type Analyser struct {
	cfg       *simconfig.Config
	rng       *rand.Rand
	histories map[graph.EdgeKey]*history
	current   map[graph.EdgeKey]EdgeSnapshot
}

// New constructs an Analyser using cfg's bands and history size, driven by
// the given deterministic random source (spec §5 "Random source").
func New(cfg *simconfig.Config, rng *rand.Rand) *Analyser {
	return &Analyser{
		cfg:       cfg,
		rng:       rng,
		histories: make(map[graph.EdgeKey]*history),
		current:   make(map[graph.EdgeKey]EdgeSnapshot),
	}
}

// Density computes usage/capacity for an edge, where capacity defaults to
// base_capacity × edge distance.
func (an *Analyser) Density(edgeDistance, usage float64) float64 {
	capacity := an.cfg.BaseEdgeCapacity * edgeDistance
	if capacity <= 0 {
		return 0
	}
	return usage / capacity
}

// LevelFor classifies a density value into its named band, using the
// configured bands' Upper bounds (the last band covers everything above).
// With no configured bands it falls back to the default thresholds.
func (an *Analyser) LevelFor(density float64) Level {
	if n := len(an.cfg.Bands); n > 0 {
		for _, b := range an.cfg.Bands[:n-1] {
			if density < b.Upper {
				return Level(b.Name)
			}
		}
		return Level(an.cfg.Bands[n-1].Name)
	}
	switch {
	case density < 0.2:
		return LevelFreeFlow
	case density < 0.4:
		return LevelLight
	case density < 0.7:
		return LevelModerate
	case density < 1.0:
		return LevelHeavy
	default:
		return LevelCongested
	}
}

// bandFor returns the configured [min,max] sampling range for a level.
func (an *Analyser) bandFor(level Level) simconfig.Band {
	for _, b := range an.cfg.Bands {
		if b.Name == string(level) {
			return b
		}
	}
	return simconfig.Band{Name: string(level), RangeMin: an.cfg.MinMultiplier, RangeMax: an.cfg.MaxMultiplier}
}

// Sample draws a uniform random multiplier from density's band and records
// it into that edge's bounded history. This is the per-tick refresh
// operation for one non-blocked, non-accident edge (spec §4.4 "Refresh
// policy").
func (an *Analyser) Sample(key graph.EdgeKey, density float64) float64 {
	level := an.LevelFor(density)
	band := an.bandFor(level)
	v := band.RangeMin + an.rng.Float64()*(band.RangeMax-band.RangeMin)
	an.record(key, v)
	return v
}

func (an *Analyser) record(key graph.EdgeKey, v float64) {
	h, ok := an.histories[key]
	if !ok {
		h = newHistory(an.cfg.HistorySize)
		an.histories[key] = h
	}
	h.push(v)
}

// Probability returns the congestion probability for a density/history pair
// (spec §4.4): clamp(density, 0, 1) + (mean(history)-1)/4, clamped to [0,1].
func (an *Analyser) Probability(key graph.EdgeKey, density float64) float64 {
	h, ok := an.histories[key]
	mean := 1.0
	if ok {
		mean = h.mean()
	}
	p := clamp(density, 0, 1) + (mean-1)/4
	return clamp(p, 0, 1)
}

// PredictProbability extrapolates a linear trend over the last 10 historical
// samples of an edge and returns the projected next-sample-derived
// probability. This is a supplemented, read-only feature (spec_full §E.4);
// it never feeds planning or reroute decisions.
func (an *Analyser) PredictProbability(key graph.EdgeKey, density float64) float64 {
	h, ok := an.histories[key]
	if !ok || len(h.samples) < 2 {
		return an.Probability(key, density)
	}
	window := h.samples
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	trend := linearTrend(window)
	projected := window[len(window)-1] + trend
	p := clamp(density, 0, 1) + (projected-1)/4
	return clamp(p, 0, 1)
}

func linearTrend(samples []float64) float64 {
	n := float64(len(samples))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range samples {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// SnapshotFor returns the last recorded reading for an edge, if any.
func (an *Analyser) SnapshotFor(key graph.EdgeKey) (EdgeSnapshot, bool) {
	s, ok := an.current[key]
	return s, ok
}

// RecordSnapshot stores the latest computed reading for an edge, used to
// answer EdgeTraffic / Bottlenecks / NodeCongestion queries between ticks.
func (an *Analyser) RecordSnapshot(snap EdgeSnapshot) {
	an.current[snap.Key] = snap
}

// EdgeTraffic returns the last recorded snapshot for every edge.
func (an *Analyser) EdgeTraffic() []EdgeSnapshot {
	out := make([]EdgeSnapshot, 0, len(an.current))
	for _, s := range an.current {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Bottlenecks returns edges at or above the configured density threshold,
// sorted descending by density.
func (an *Analyser) Bottlenecks() []EdgeSnapshot {
	all := an.EdgeTraffic()
	filtered := lo.Filter(all, func(s EdgeSnapshot, _ int) bool { return s.Density >= an.cfg.BottleneckThreshold })
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Density > filtered[j].Density })
	return filtered
}

// NodeCongestion returns the average density of a node's outgoing edges
// (supplemented feature, spec_full §E.4).
func (an *Analyser) NodeCongestion(g *graph.Graph, node graph.NodeID) float64 {
	edges, err := g.Neighbours(node)
	if err != nil || len(edges) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range edges {
		if snap, ok := an.current[e.Key()]; ok {
			sum += snap.Density
		}
	}
	return sum / float64(len(edges))
}

// CongestedIntersections lists nodes whose NodeCongestion is at or above the
// bottleneck threshold (supplemented feature, spec_full §E.4).
func (an *Analyser) CongestedIntersections(g *graph.Graph) []graph.NodeID {
	var out []graph.NodeID
	for _, n := range g.Nodes() {
		if an.NodeCongestion(g, n.ID) >= an.cfg.BottleneckThreshold {
			out = append(out, n.ID)
		}
	}
	sort.Strings(out)
	return out
}

// GlobalStatistics summarises the distribution of edges across bands
// (spec §8 "sum over bands of congestion_distribution ≈ 100%").
type GlobalStatistics struct {
	BandCounts map[Level]int `json:"band_counts"`
	TotalEdges int           `json:"total_edges"`
}

// GlobalStatistics computes the band distribution over all recorded edges.
func (an *Analyser) GlobalStatistics() GlobalStatistics {
	stats := GlobalStatistics{BandCounts: make(map[Level]int)}
	for _, s := range an.current {
		stats.BandCounts[s.Level]++
		stats.TotalEdges++
	}
	return stats
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
