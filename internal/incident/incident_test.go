package incident

import (
	"math/rand"
	"testing"

	"github.com/urbanflow-sim/traffic-engine/internal/graph"
	"github.com/urbanflow-sim/traffic-engine/internal/simconfig"
)

func newController() *Controller {
	return New(simconfig.Default(), rand.New(rand.NewSource(1)))
}

func TestCreateAccidentAppliesSeverityMultiplier(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	a, err := c.CreateAccident(key, SeverityMinor, 0)
	if err != nil {
		t.Fatalf("CreateAccident: %v", err)
	}
	if a.Duration < 30 || a.Duration > 60 {
		t.Fatalf("expected minor duration in [30,60], got %v", a.Duration)
	}
	got := c.Multiplier(key, 1.0)
	if got != 2.0 {
		t.Fatalf("expected minor severity to apply 2x multiplier, got %v", got)
	}
}

func TestCreateAccidentRejectsDuplicate(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	if _, err := c.CreateAccident(key, SeverityMinor, 0); err != nil {
		t.Fatalf("first CreateAccident: %v", err)
	}
	if _, err := c.CreateAccident(key, SeverityMinor, 0); err == nil {
		t.Fatalf("expected second accident on same edge to be rejected")
	}
}

func TestCreateAccidentRejectsBlockedEdge(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	c.Block(key, "construction", 0)
	if _, err := c.CreateAccident(key, SeverityMinor, 0); err == nil {
		t.Fatalf("expected accident creation on blocked edge to be rejected")
	}
}

func TestResolveAccidentRestoresEdge(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	a, _ := c.CreateAccident(key, SeverityModerate, 0)
	if err := c.ResolveAccident(a.ID); err != nil {
		t.Fatalf("ResolveAccident: %v", err)
	}
	if got := c.Multiplier(key, 1.0); got != 1.0 {
		t.Fatalf("expected multiplier restored to base after resolve, got %v", got)
	}
}

func TestExpireDueRemovesPastDueAccidents(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	a, _ := c.CreateAccident(key, SeverityMinor, 0)
	expired := c.ExpireDue(a.ExpiresAt() + 1)
	if len(expired) != 1 || expired[0].ID != a.ID {
		t.Fatalf("expected accident to expire, got %v", expired)
	}
	if _, ok := c.AccidentOn(key); ok {
		t.Fatalf("expected accident removed after expiry")
	}
}

func TestBlockUnblockRoundTrip(t *testing.T) {
	c := newController()
	key := graph.EdgeKey{From: "A", To: "B"}
	c.Block(key, "construction", 0)
	if !c.IsBlocked(key) {
		t.Fatalf("expected edge blocked")
	}
	c.Unblock(key)
	if c.IsBlocked(key) {
		t.Fatalf("expected edge unblocked")
	}
}

func TestUnblockUnknownEdgeIsNoop(t *testing.T) {
	c := newController()
	c.Unblock(graph.EdgeKey{From: "X", To: "Y"})
}
