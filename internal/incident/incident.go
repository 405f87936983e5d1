// Package incident implements the accident and blockage controller (spec
// §4.5): creating, expiring, and resolving accidents, and blocking/
// unblocking edges outright. Grounded on the original implementation's
// accident/blockage sections of multi_vehicle_simulator.py.
package incident

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// Severity is one of the three accident severity levels.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

var severities = []Severity{SeverityMinor, SeverityModerate, SeveritySevere}

// Accident is an active incident on one edge (spec §3).
type Accident struct {
	ID        string        `json:"id"`
	Edge      graph.EdgeKey `json:"edge"`
	Severity  Severity      `json:"severity"`
	CreatedAt float64       `json:"created_at"` // simulated seconds
	Duration  float64       `json:"duration"`   // seconds
}

// ExpiresAt returns the simulated time at which this accident auto-expires.
func (a Accident) ExpiresAt() float64 { return a.CreatedAt + a.Duration }

// Blockage is a manually closed edge (spec §3 "Blocked edges").
type Blockage struct {
	Edge      graph.EdgeKey `json:"edge"`
	Reason    string        `json:"reason"`
	CreatedAt float64       `json:"created_at"`
}

// Controller owns the accident table and blocked-edge set. It does not
// itself own the multiplier field — the simulator core reads Controller's
// state each tick to decide how to post-process a sampled multiplier.
type Controller struct {
	cfg *simconfig.Config
	rng *rand.Rand

	accidents map[graph.EdgeKey]*Accident
	blocked   map[graph.EdgeKey]*Blockage
}

// New constructs an empty Controller.
func New(cfg *simconfig.Config, rng *rand.Rand) *Controller {
	return &Controller{
		cfg:       cfg,
		rng:       rng,
		accidents: make(map[graph.EdgeKey]*Accident),
		blocked:   make(map[graph.EdgeKey]*Blockage),
	}
}

// IsBlocked reports whether an edge is currently in the blocked set.
func (c *Controller) IsBlocked(key graph.EdgeKey) bool {
	_, ok := c.blocked[key]
	return ok
}

// AccidentOn returns the active accident on an edge, if any.
func (c *Controller) AccidentOn(key graph.EdgeKey) (*Accident, bool) {
	a, ok := c.accidents[key]
	return a, ok
}

// Block inserts an edge into the blocked set. The caller owns the
// multiplier field and applies the blocked sentinel to it. Idempotent:
// blocking an already-blocked edge replaces its reason and timestamp.
func (c *Controller) Block(key graph.EdgeKey, reason string, now float64) {
	c.blocked[key] = &Blockage{Edge: key, Reason: reason, CreatedAt: now}
}

// Unblock removes an edge from the blocked set. A no-op on an edge that
// isn't blocked (spec §7 "unblock unknown edge = no-op").
func (c *Controller) Unblock(key graph.EdgeKey) {
	delete(c.blocked, key)
}

// Blocked returns every currently blocked edge.
func (c *Controller) Blocked() []*Blockage {
	out := make([]*Blockage, 0, len(c.blocked))
	for _, b := range c.blocked {
		out = append(out, b)
	}
	return out
}

// CreateAccident creates a new accident on the given edge, with the given
// severity (or a uniformly sampled one if empty); random-edge selection
// when the caller omits an edge is the simulator's responsibility, not
// this Controller's. Rejects edges that are blocked or already carry an
// active accident — the duplicate-accident policy decided in DESIGN.md,
// chosen over the original's silent overwrite because overwriting would
// compound multipliers across repeated calls.
func (c *Controller) CreateAccident(key graph.EdgeKey, severity Severity, now float64) (*Accident, error) {
	if c.IsBlocked(key) {
		return nil, errors.Wrapf(simerr.ErrEdgeBlocked, "%s", key)
	}
	if _, exists := c.accidents[key]; exists {
		return nil, errors.Wrapf(simerr.ErrAccidentExists, "%s", key)
	}
	if severity == "" {
		severity = severities[c.rng.Intn(len(severities))]
	}
	profile, ok := c.cfg.Severity[string(severity)]
	if !ok {
		return nil, errors.Errorf("unknown severity %q", severity)
	}
	duration := profile.MinSeconds + c.rng.Float64()*(profile.MaxSeconds-profile.MinSeconds)
	a := &Accident{
		ID:        uuid.NewString(),
		Edge:      key,
		Severity:  severity,
		CreatedAt: now,
		Duration:  duration,
	}
	c.accidents[key] = a
	return a, nil
}

// ResolveAccident removes an accident immediately, restoring the edge to
// ordinary band-derived multipliers from the next sample onward.
func (c *Controller) ResolveAccident(id string) error {
	for key, a := range c.accidents {
		if a.ID == id {
			delete(c.accidents, key)
			return nil
		}
	}
	return errors.Wrapf(simerr.ErrUnknownAccident, "%q", id)
}

// ExpireDue removes every accident whose creation+duration has elapsed as
// of now, returning the expired ones.
func (c *Controller) ExpireDue(now float64) []*Accident {
	var expired []*Accident
	for key, a := range c.accidents {
		if a.ExpiresAt() < now {
			expired = append(expired, a)
			delete(c.accidents, key)
		}
	}
	return expired
}

// Accidents returns every currently active accident.
func (c *Controller) Accidents() []*Accident {
	out := make([]*Accident, 0, len(c.accidents))
	for _, a := range c.accidents {
		out = append(out, a)
	}
	return out
}

// Multiplier applies the severity boost of an active accident on key as a
// post-multiplicative factor over a band-sampled base value. Returns base
// unchanged if there is no active accident.
func (c *Controller) Multiplier(key graph.EdgeKey, base float64) float64 {
	a, ok := c.accidents[key]
	if !ok {
		return base
	}
	profile := c.cfg.Severity[string(a.Severity)]
	return base * profile.Multiplier
}

// MaybeSpawnRandom injects a random accident with the configured
// per-tick probability (spec §4.5 "Random accident spawning"), picking a
// uniformly random edge among candidates. Returns the created accident, or
// nil if nothing was spawned this tick.
func (c *Controller) MaybeSpawnRandom(candidates []graph.EdgeKey, now float64) *Accident {
	if len(candidates) == 0 || c.cfg.RandomAccidentProbability <= 0 {
		return nil
	}
	if c.rng.Float64() >= c.cfg.RandomAccidentProbability {
		return nil
	}
	key := candidates[c.rng.Intn(len(candidates))]
	a, err := c.CreateAccident(key, "", now)
	if err != nil {
		return nil
	}
	return a
}

// Reset clears all accidents and blockages.
func (c *Controller) Reset() {
	c.accidents = make(map[graph.EdgeKey]*Accident)
	c.blocked = make(map[graph.EdgeKey]*Blockage)
}
