package kinematics

import "testing"

var thresholds = FollowingDistances{Min: 30, Max: 60}

func TestFollowNoAgentAhead(t *testing.T) {
	r := Follow(60, -1, thresholds)
	if r.Stuck || r.TargetSpeed != 60 {
		t.Fatalf("expected free-flow regime, got %+v", r)
	}
}

func TestFollowWithinMinStops(t *testing.T) {
	r := Follow(60, 10, thresholds)
	if !r.Stuck || r.TargetSpeed != 0 {
		t.Fatalf("expected stuck/zero target, got %+v", r)
	}
}

func TestFollowBetweenThresholdsScales(t *testing.T) {
	r := Follow(60, 45, thresholds)
	if !r.Stuck {
		t.Fatalf("expected stuck in the scaled zone, got %+v", r)
	}
	want := 60 * (45.0 / 60.0)
	if r.TargetSpeed != want {
		t.Fatalf("expected scaled target %v, got %v", want, r.TargetSpeed)
	}
}

func TestFollowAtOrAboveMaxResumes(t *testing.T) {
	r := Follow(60, 60, thresholds)
	if r.Stuck || r.TargetSpeed != 60 {
		t.Fatalf("expected resumed free flow at threshold boundary, got %+v", r)
	}
}

func TestStepSpeedClampsAcceleration(t *testing.T) {
	got := StepSpeed(0, 60, 0.2, 1)
	if got != 0.2 {
		t.Fatalf("expected clamped acceleration step of 0.2, got %v", got)
	}
}

func TestStepSpeedReachesTargetWithoutOvershoot(t *testing.T) {
	got := StepSpeed(59.95, 60, 0.2, 1)
	if got != 60 {
		t.Fatalf("expected snap to target, got %v", got)
	}
}

func TestStepSpeedDecelerates(t *testing.T) {
	got := StepSpeed(10, 0, 0.2, 1)
	if got != 9.8 {
		t.Fatalf("expected decelerated speed 9.8, got %v", got)
	}
}
