package congestion

import (
	"math/rand"
	"testing"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
)

func newAnalyser() *Analyser {
	return New(simconfig.Default(), rand.New(rand.NewSource(1)))
}

func TestLevelForBands(t *testing.T) {
	an := newAnalyser()
	cases := map[float64]Level{
		0.0:  LevelFreeFlow,
		0.19: LevelFreeFlow,
		0.2:  LevelLight,
		0.39: LevelLight,
		0.4:  LevelModerate,
		0.69: LevelModerate,
		0.7:  LevelHeavy,
		0.99: LevelHeavy,
		1.0:  LevelCongested,
		5.0:  LevelCongested,
	}
	for density, want := range cases {
		if got := an.LevelFor(density); got != want {
			t.Errorf("LevelFor(%v) = %v, want %v", density, got, want)
		}
	}
}

func TestSampleWithinBandRange(t *testing.T) {
	an := newAnalyser()
	key := graph.EdgeKey{From: "A", To: "B"}
	for i := 0; i < 100; i++ {
		v := an.Sample(key, 0.9) // heavy band: 2.5-4.0
		if v < 2.5 || v > 4.0 {
			t.Fatalf("sample %v outside heavy band range", v)
		}
	}
}

func TestProbabilityClampedToUnitInterval(t *testing.T) {
	an := newAnalyser()
	key := graph.EdgeKey{From: "A", To: "B"}
	for i := 0; i < 20; i++ {
		an.Sample(key, 1.5) // congested band, high multipliers
	}
	p := an.Probability(key, 1.5)
	if p < 0 || p > 1 {
		t.Fatalf("expected probability in [0,1], got %v", p)
	}
}

func TestHistoryBoundedToConfiguredSize(t *testing.T) {
	cfg := simconfig.Default()
	cfg.HistorySize = 5
	an := New(cfg, rand.New(rand.NewSource(1)))
	key := graph.EdgeKey{From: "A", To: "B"}
	for i := 0; i < 50; i++ {
		an.Sample(key, 0.1)
	}
	if len(an.histories[key].samples) != 5 {
		t.Fatalf("expected history bounded to 5 samples, got %d", len(an.histories[key].samples))
	}
}

func TestBottlenecksSortedDescending(t *testing.T) {
	an := newAnalyser()
	an.RecordSnapshot(EdgeSnapshot{Key: graph.EdgeKey{From: "A", To: "B"}, Density: 0.8})
	an.RecordSnapshot(EdgeSnapshot{Key: graph.EdgeKey{From: "B", To: "C"}, Density: 0.95})
	an.RecordSnapshot(EdgeSnapshot{Key: graph.EdgeKey{From: "C", To: "D"}, Density: 0.1})

	bottlenecks := an.Bottlenecks()
	if len(bottlenecks) != 2 {
		t.Fatalf("expected 2 bottlenecks, got %d", len(bottlenecks))
	}
	if bottlenecks[0].Density < bottlenecks[1].Density {
		t.Fatalf("expected descending order, got %v", bottlenecks)
	}
}
