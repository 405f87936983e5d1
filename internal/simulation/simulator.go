// Package simulation implements the tick orchestrator and the
// snapshot/command surface it exposes to external collaborators (spec
// §4.7, §5, §6). Simulator is the single owner of all mutable state: the
// graph is a shared immutable reference, everything else — the agent
// index, multiplier field, blocked set, and accident table — is owned
// exclusively here and mutated only inside Tick or a command handler,
// serialised by mu.
package simulation

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/urbanflow-sim/traffic-engine/internal/agent"
	"github.com/urbanflow-sim/traffic-engine/internal/congestion"
	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/incident"
	"github.com/urbanflow-sim/traffic-engine/internal/kinematics"
	"github.com/urbanflow-sim/traffic-engine/internal/mapstore"
	"github.com/urbanflow-sim/traffic-engine/internal/planner"
	"github.com/urbanflow-sim/traffic-engine/internal/reroute"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
	"github.com/urbanflow-sim/traffic-engine/internal/simerr"
)

// Simulator is the engine's single stateful core.
type Simulator struct {
	mu sync.Mutex

	cfg    *simconfig.Config
	store  *mapstore.Store
	logger *log.Logger
	rng    *rand.Rand
	now    func() time.Time

	mapID string
	graph *graph.Graph

	agents     *agent.Index
	congestion *congestion.Analyser
	incidents  *incident.Controller

	multipliers map[graph.EdgeKey]float64
	hotspots    map[graph.EdgeKey]bool

	step           int
	elapsedSimTime float64
	totalSpawned   int
	lastTickAt     time.Time
	stopped        bool
}

// New constructs a Simulator over the given map store and configuration. A
// nil logger defaults to log.Default(), matching the corpus absence of any
// structured-logging library (see DESIGN.md).
func New(store *mapstore.Store, cfg *simconfig.Config, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		now:    time.Now,
	}
}

// LoadMap switches the active map, resetting all per-instance state (spec
// §4.1 "Switching maps is a destructive operation").
func (s *Simulator) LoadMap(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMapLocked(id)
}

func (s *Simulator) loadMapLocked(id string) error {
	g, err := s.store.Build(id)
	if err != nil {
		return err
	}
	s.mapID = id
	s.graph = g
	s.agents = agent.NewIndex()
	s.congestion = congestion.New(s.cfg, s.rng)
	s.incidents = incident.New(s.cfg, s.rng)
	s.multipliers = make(map[graph.EdgeKey]float64)
	s.hotspots = identifyHotspots(g, s.cfg.HotspotTopFraction)
	s.step = 0
	s.elapsedSimTime = 0
	s.totalSpawned = 0
	s.stopped = false
	s.refreshMultipliers(0)
	return nil
}

// identifyHotspots returns the set of edges incident to the top
// hotspotFraction of nodes by out-degree (spec §4.7 "Hotspots").
func identifyHotspots(g *graph.Graph, fraction float64) map[graph.EdgeKey]bool {
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool {
		return g.OutDegree(nodes[i].ID) > g.OutDegree(nodes[j].ID)
	})
	n := int(float64(len(nodes)) * fraction)
	if n < 1 && len(nodes) > 0 {
		n = 1
	}
	top := make(map[graph.NodeID]bool, n)
	for i := 0; i < n && i < len(nodes); i++ {
		top[nodes[i].ID] = true
	}
	hotspots := make(map[graph.EdgeKey]bool)
	for _, e := range g.Edges() {
		if top[e.From] || top[e.To] {
			hotspots[e.Key()] = true
		}
	}
	return hotspots
}

// TickSummary is the result of one tick (spec §4.7 step 9).
type TickSummary struct {
	Step        int                  `json:"step"`
	Active      int                  `json:"active"`
	Moved       int                  `json:"moved"`
	Arrived     int                  `json:"arrived"`
	Accidents   []*incident.Accident `json:"accidents"`
	Blocked     []*incident.Blockage `json:"blocked"`
	Multipliers map[string]float64   `json:"multipliers"`
}

// Tick advances the simulation using wall-clock-derived dt, clamped to
// [0, DtClamp] seconds (spec §4.7 step 1). Use TickWithDt for deterministic
// tests driven by a fixed simulated dt.
func (s *Simulator) Tick() (TickSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dt := s.cfg.DtClamp
	if !s.lastTickAt.IsZero() {
		dt = now.Sub(s.lastTickAt).Seconds()
	}
	s.lastTickAt = now
	if dt < 0 {
		dt = 0
	}
	if dt > s.cfg.DtClamp {
		dt = s.cfg.DtClamp
	}
	return s.tickLocked(dt)
}

// TickWithDt advances the simulation by exactly dt simulated seconds,
// bypassing the wall clock. Intended for deterministic tests.
func (s *Simulator) TickWithDt(dt float64) (TickSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dt < 0 {
		dt = 0
	}
	if dt > s.cfg.DtClamp {
		dt = s.cfg.DtClamp
	}
	return s.tickLocked(dt)
}

func (s *Simulator) tickLocked(dt float64) (TickSummary, error) {
	if s.graph == nil {
		return TickSummary{}, errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	if s.stopped {
		return TickSummary{Step: s.step}, nil
	}

	s.step++
	s.elapsedSimTime += dt

	// 3. Inject random accidents; expire past-due ones.
	s.maybeInjectRandomAccident()
	expired := s.incidents.ExpireDue(s.elapsedSimTime)
	for _, a := range expired {
		s.logger.Printf("accident %s on %s expired", a.ID, a.Edge)
	}

	// 4. Refresh multipliers.
	s.refreshMultipliers(s.elapsedSimTime)

	// 5. Car-following pass (pre-movement snapshot).
	s.carFollowingPass()

	// 6. Integration pass.
	moved, arrived := s.integrationPass(dt)

	// 7. Rebuild edge occupancy.
	s.agents.RebuildEdgeOccupancy()

	// 8. Reroute decider.
	s.reroutePass()

	return TickSummary{
		Step:        s.step,
		Active:      len(s.agents.Active()),
		Moved:       moved,
		Arrived:     arrived,
		Accidents:   s.incidents.Accidents(),
		Blocked:     s.incidents.Blocked(),
		Multipliers: stringKeyedCopy(s.multipliers),
	}, nil
}

func stringKeyedCopy(m map[graph.EdgeKey]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k.String()] = v
	}
	return out
}

// refreshMultipliers re-samples the per-edge multiplier for every
// non-blocked edge, applies the hotspot time-buildup and any active
// accident's severity boost, and records a congestion snapshot (spec
// §4.4 "Refresh policy", §4.7 step 4).
func (s *Simulator) refreshMultipliers(elapsedSimTime float64) {
	for _, e := range s.graph.Edges() {
		key := e.Key()
		if s.incidents.IsBlocked(key) {
			s.multipliers[key] = s.cfg.BlockedSentinel
			s.congestion.RecordSnapshot(congestion.EdgeSnapshot{
				Key: key, Density: 1, Level: congestion.LevelCongested,
				Multiplier: s.cfg.BlockedSentinel, Probability: 1,
			})
			continue
		}

		usage := sumCapacityUsage(s.agents.OnEdge(key))
		density := s.congestion.Density(e.Distance, usage)
		base := s.congestion.Sample(key, density)

		if s.hotspots[key] {
			factor := min1(elapsedSimTime / 60)
			base *= 1 + factor*(0.5+s.rng.Float64()*1.5)
		}

		mult := s.incidents.Multiplier(key, base)
		s.multipliers[key] = mult

		s.congestion.RecordSnapshot(congestion.EdgeSnapshot{
			Key:         key,
			Density:     density,
			Level:       s.congestion.LevelFor(density),
			Multiplier:  mult,
			Probability: s.congestion.Probability(key, density),
		})
	}
}

func sumCapacityUsage(agents []*agent.Agent) float64 {
	sum := 0.0
	for _, a := range agents {
		sum += a.Type.CapacityUsage()
	}
	return sum
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func (s *Simulator) maybeInjectRandomAccident() {
	if s.graph == nil {
		return
	}
	edges := s.graph.Edges()
	candidates := make([]graph.EdgeKey, 0, len(edges))
	for _, e := range edges {
		key := e.Key()
		if s.incidents.IsBlocked(key) {
			continue
		}
		if _, ok := s.incidents.AccidentOn(key); ok {
			continue
		}
		candidates = append(candidates, key)
	}
	if a := s.incidents.MaybeSpawnRandom(candidates, s.elapsedSimTime); a != nil {
		s.logger.Printf("random accident %s (%s) on %s", a.ID, a.Severity, a.Edge)
	}
}

// carFollowingPass implements spec §4.3 pass 1, scanning every active agent
// that currently has a next node (is on or about to enter an edge).
func (s *Simulator) carFollowingPass() {
	byEdge := make(map[graph.EdgeKey][]*agent.Agent)
	for _, a := range s.agents.Active() {
		if a.NextNode == "" {
			continue
		}
		key := a.CurrentEdgeKey()
		byEdge[key] = append(byEdge[key], a)
	}

	thresholds := kinematics.FollowingDistances{Min: s.cfg.FollowingDistanceMin, Max: s.cfg.FollowingDistanceMax}
	for _, a := range s.agents.Active() {
		if a.NextNode == "" {
			continue
		}
		e, err := s.graph.Edge(a.CurrentNode, a.NextNode)
		if err != nil {
			continue
		}
		occupants := byEdge[a.CurrentEdgeKey()]
		dFront := agent.DistanceAhead(occupants, a, e.Distance)
		regime := kinematics.Follow(a.NominalSpeed, dFront, thresholds)
		a.TargetSpeed = regime.TargetSpeed
		if regime.Stuck {
			a.Status = agent.StatusStuck
		} else {
			a.Status = agent.StatusMoving
		}
	}
}

// integrationPass implements spec §4.3 pass 2, returning the number of
// agents that ended the tick moving and the number that arrived this tick.
func (s *Simulator) integrationPass(dt float64) (moved, arrived int) {
	for _, a := range s.agents.Active() {
		if a.NextNode == "" {
			continue
		}
		if a.Status == agent.StatusStuck {
			a.CumulativeWait += dt
		}

		a.CurrentSpeed = kinematics.StepSpeed(a.CurrentSpeed, a.TargetSpeed, a.Acceleration, dt)

		e, err := s.graph.Edge(a.CurrentNode, a.NextNode)
		if err != nil {
			continue
		}
		if e.Distance <= 0 {
			continue
		}
		a.PositionOnEdge += (a.CurrentSpeed * dt) / e.Distance

		if a.PositionOnEdge >= 1.0 {
			overflow := a.PositionOnEdge - 1.0
			a.CumulativeDistance += e.Distance
			a.CurrentNode = a.NextNode
			a.PathIndex++
			if a.PathIndex+1 < len(a.Path) {
				a.NextNode = a.Path[a.PathIndex+1]
				a.PositionOnEdge = clamp01(overflow)
			} else {
				a.NextNode = ""
				a.PositionOnEdge = 0
			}
			if a.CurrentNode == a.Destination {
				a.Status = agent.StatusArrived
				travel := s.elapsedSimTime - a.SpawnedAt
				a.CompletedTravel = &travel
				s.agents.MarkArrived(a)
				arrived++
				continue
			}
		}
		if a.Status == agent.StatusMoving {
			moved++
		}
	}
	return moved, arrived
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.999 {
		return 0.999
	}
	return v
}

// reroutePass implements spec §4.6, forcing a replan for any active,
// on-edge agent whose upcoming edges are blocked or sufficiently congested.
func (s *Simulator) reroutePass() {
	blocked := func(k graph.EdgeKey) bool { return s.incidents.IsBlocked(k) }
	probability := func(k graph.EdgeKey) float64 {
		if snap, ok := s.congestion.SnapshotFor(k); ok {
			return snap.Probability
		}
		return 0
	}
	multiplier := func(k graph.EdgeKey) float64 {
		if m, ok := s.multipliers[k]; ok {
			return m
		}
		return s.cfg.DefaultMultiplier
	}

	for _, a := range s.agents.Active() {
		if a.NextNode == "" {
			continue
		}
		if !reroute.ShouldReroute(a, s.cfg, blocked, probability) {
			continue
		}
		_ = reroute.Apply(a, s.graph, planner.Plan, multiplier, blocked)
	}
}

// ElapsedSimTime returns the accumulated simulated time in seconds
// (supplemented feature, spec_full §E.4).
func (s *Simulator) ElapsedSimTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedSimTime
}

// Stop sets a flag consumed before the next scheduled tick (spec §5
// "Cancellation"): it does not interrupt a tick in progress.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Reset drops all agents, accidents, and blockages, resets the step
// counter, and re-samples multipliers to the free-flow band (spec §4.7
// "Reset").
func (s *Simulator) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return errors.Wrap(simerr.ErrUnknownMap, "no map loaded")
	}
	s.agents = agent.NewIndex()
	s.congestion = congestion.New(s.cfg, s.rng)
	s.incidents = incident.New(s.cfg, s.rng)
	s.multipliers = make(map[graph.EdgeKey]float64)
	s.step = 0
	s.elapsedSimTime = 0
	s.totalSpawned = 0
	s.stopped = false
	s.refreshMultipliers(0)
	return nil
}
