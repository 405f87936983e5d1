// Package simconfig holds the tunable constants of the simulation engine:
// speeds, capacities, congestion thresholds, and distribution defaults.
//
// A Config is constructed with Default and optionally overlaid from a JSON
// file with Load. There is no global/package-level instance — callers own
// and pass around a *Config, mirroring how the rest of the engine avoids
// mutable package state.
package simconfig

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// SpeedDistribution describes a per-type normal distribution used to sample
// an agent's nominal speed on spawn (§4.7 "Per-agent nominal speed sampling").
type SpeedDistribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SeverityProfile maps an accident severity to its multiplicative boost and
// the [Min,Max] range (seconds) its duration is drawn from.
type SeverityProfile struct {
	Multiplier float64 `json:"multiplier"`
	MinSeconds float64 `json:"min_seconds"`
	MaxSeconds float64 `json:"max_seconds"`
}

// Band is a named congestion level with an upper density bound (exclusive)
// and the [Min,Max] multiplier range sampled while an edge sits in that band.
// Bands must be supplied in ascending Upper order; the last band's Upper is
// ignored (it covers density up to +Inf).
type Band struct {
	Name     string  `json:"name"`
	Upper    float64 `json:"upper"`
	RangeMin float64 `json:"range_min"`
	RangeMax float64 `json:"range_max"`
}

// Config is the full set of tunables recognised by the engine (spec §6).
type Config struct {
	SimModes []string `json:"sim_modes"`

	DefaultMultiplier float64 `json:"default_multiplier"`
	MinMultiplier     float64 `json:"min_multiplier"`
	MaxMultiplier     float64 `json:"max_multiplier"`
	BlockedSentinel   float64 `json:"blocked_sentinel"`

	RerouteThreshold      float64 `json:"reroute_threshold"`
	RerouteLookaheadEdges int     `json:"reroute_lookahead_edges"`
	RerouteProbThreshold  float64 `json:"reroute_probability_threshold"`

	BaseEdgeCapacity float64 `json:"base_edge_capacity"`

	NominalSpeed  map[string]float64           `json:"nominal_speed"`
	CapacityUsage map[string]float64           `json:"capacity_usage"`
	SpeedByType   map[string]SpeedDistribution `json:"speed_distribution"`

	TypeDistribution map[string]float64 `json:"type_distribution"`

	DtClamp      float64 `json:"dt_clamp"`
	Acceleration float64 `json:"acceleration"`

	FollowingDistanceMin float64 `json:"following_distance_min"`
	FollowingDistanceMax float64 `json:"following_distance_max"`

	Bands []Band `json:"congestion_bands"`

	HistorySize int `json:"history_size"`

	BottleneckThreshold float64 `json:"bottleneck_threshold"`

	Severity map[string]SeverityProfile `json:"accident_severity"`

	RandomAccidentProbability float64 `json:"random_accident_probability"`

	HotspotTopFraction float64 `json:"hotspot_top_fraction"`

	Seed int64 `json:"seed"`
}

// Default returns the engine's built-in configuration, matching every
// constant named in spec §6.
func Default() *Config {
	return &Config{
		SimModes: []string{"car", "bicycle", "pedestrian"},

		DefaultMultiplier: 1.0,
		MinMultiplier:     0.5,
		MaxMultiplier:     3.0,
		BlockedSentinel:   100.0,

		RerouteThreshold:      0.2,
		RerouteLookaheadEdges: 3,
		RerouteProbThreshold:  0.5,

		BaseEdgeCapacity: 3.0,

		NominalSpeed: map[string]float64{
			"car": 60, "bicycle": 40, "pedestrian": 20,
		},
		CapacityUsage: map[string]float64{
			"car": 1.0, "bicycle": 0.5, "pedestrian": 0.2,
		},
		SpeedByType: map[string]SpeedDistribution{
			"car":        {Mean: 60, StdDev: 12, Min: 20, Max: 100},
			"bicycle":    {Mean: 40, StdDev: 8, Min: 10, Max: 60},
			"pedestrian": {Mean: 20, StdDev: 4, Min: 5, Max: 30},
		},

		TypeDistribution: map[string]float64{
			"car": 0.6, "bicycle": 0.25, "pedestrian": 0.15,
		},

		DtClamp:      0.2,
		Acceleration: 0.2,

		FollowingDistanceMin: 30.0,
		FollowingDistanceMax: 60.0,

		Bands: []Band{
			{Name: "free_flow", Upper: 0.2, RangeMin: 0.5, RangeMax: 0.8},
			{Name: "light", Upper: 0.4, RangeMin: 1.0, RangeMax: 1.5},
			{Name: "moderate", Upper: 0.7, RangeMin: 1.5, RangeMax: 2.5},
			{Name: "heavy", Upper: 1.0, RangeMin: 2.5, RangeMax: 4.0},
			{Name: "congested", Upper: 0, RangeMin: 4.0, RangeMax: 6.0},
		},

		HistorySize: 100,

		BottleneckThreshold: 0.7,

		Severity: map[string]SeverityProfile{
			"minor":    {Multiplier: 2.0, MinSeconds: 30, MaxSeconds: 60},
			"moderate": {Multiplier: 4.0, MinSeconds: 60, MaxSeconds: 90},
			"severe":   {Multiplier: 10.0, MinSeconds: 90, MaxSeconds: 120},
		},

		RandomAccidentProbability: 1e-5,

		HotspotTopFraction: 0.2,

		Seed: 1,
	}
}

// Load reads a JSON file and overlays its fields onto a freshly constructed
// Default Config. Missing fields keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %q", path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}
