// Package kinematics implements the two-pass per-tick motion model shared
// by every agent: a car-following regime that derives a target speed from
// the gap to the vehicle ahead (spec §4.3 pass 1), and a bounded
// acceleration step that advances current speed toward that target (pass
// 2). All distance values are in abstract length units, velocities in
// units/s, and time in seconds.
package kinematics

// FollowingDistances bounds the two thresholds that define the
// car-following regimes (spec §4.3): below Min the agent stops outright,
// between Min and Max its target speed scales linearly, at or above Max it
// resumes its nominal speed.
type FollowingDistances struct {
	Min float64
	Max float64
}

// Regime is the outcome of the car-following pass for one agent.
type Regime struct {
	TargetSpeed float64
	Stuck       bool
}

// Follow computes the car-following regime for an agent with the given
// nominal (clear-road) speed, given dFront — the distance to the nearest
// agent ahead on the same edge, or a negative value if there is none.
func Follow(nominal float64, dFront float64, thresholds FollowingDistances) Regime {
	if dFront < 0 {
		return Regime{TargetSpeed: nominal, Stuck: false}
	}
	switch {
	case dFront < thresholds.Min:
		return Regime{TargetSpeed: 0, Stuck: true}
	case dFront < thresholds.Max:
		return Regime{TargetSpeed: nominal * (dFront / thresholds.Max), Stuck: true}
	default:
		return Regime{TargetSpeed: nominal, Stuck: false}
	}
}

// StepSpeed advances current speed toward targetSpeed by at most
// acceleration × dt (spec §4.3 pass 2). Works symmetrically for
// acceleration and deceleration since agents in this model brake at the
// same constant rate they accelerate.
func StepSpeed(current, target, acceleration, dt float64) float64 {
	maxDelta := acceleration * dt
	if current < target {
		next := current + maxDelta
		if next > target {
			return target
		}
		return next
	}
	if current > target {
		next := current - maxDelta
		if next < target {
			return target
		}
		return next
	}
	return current
}
