package agents

import (
	"errors"
	"math"
	"testing"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

func TestRegistry_StandardAgents(t *testing.T) {
	r := NewRegistry(1)

	list := r.List()
	if len(list) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(list))
	}
	wantTypes := []string{"advisor", "compliance", "supervisor", "trader"}
	for i, a := range list {
		if a.Type() != wantTypes[i] {
			t.Fatalf("agent %d type = %s, want %s", i, a.Type(), wantTypes[i])
		}
	}

	trader, err := r.Get("trader")
	if err != nil {
		t.Fatalf("Get(trader): %v", err)
	}
	if len(trader.Actions()) != 5 {
		t.Fatalf("trader actions = %v", trader.Actions())
	}

	if _, err := r.Get("janitor"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestRegistry_Decide(t *testing.T) {
	r := NewRegistry(42)

	snap, err := r.Decide("trader", "rebalance", nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if snap.AgentID != "agent-trader-01" || snap.AgentType != "trader" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Decision == "" || snap.Reasoning == "" {
		t.Fatalf("empty decision fields: %+v", snap)
	}
	if snap.Confidence < 0 || snap.Confidence > 1 {
		t.Fatalf("confidence %v out of range", snap.Confidence)
	}

	if _, err := r.Decide("trader", "bake_bread", nil); !errors.Is(err, domain.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestRegistry_DecideDeterministicPerSeed(t *testing.T) {
	a, err := NewRegistry(7).Decide("compliance", "audit", nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	b, err := NewRegistry(7).Decide("compliance", "audit", nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if a.Decision != b.Decision || a.Confidence != b.Confidence {
		t.Fatalf("same seed diverged: %+v vs %+v", a, b)
	}
}

func TestRegistry_DecideAppendsParamNote(t *testing.T) {
	r := NewRegistry(1)
	snap, err := r.Decide("advisor", "recommend", map[string]string{"note": "council session 12"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if want := "; council session 12"; len(snap.Reasoning) < len(want) || snap.Reasoning[len(snap.Reasoning)-len(want):] != want {
		t.Fatalf("reasoning %q missing note suffix", snap.Reasoning)
	}
}

// overrideProposal builds an executed agent-override proposal with a
// reconciled outcome carrying the given adjustment.
func overrideProposal(agentType string, adjustment float64) *domain.Proposal {
	actual := 0.9
	return &domain.Proposal{
		Kind:          domain.KindAgentOverride,
		Status:        domain.StatusExecuted,
		AgentDecision: &domain.DecisionSnapshot{AgentType: agentType, Confidence: 0.8},
		Outcome: &domain.Outcome{
			LearningData: domain.LearningData{
				OriginalConfidence: 0.8,
				ActualOutcome:      &actual,
				Adjustment:         adjustment,
			},
		},
	}
}

func TestCalibration_Recalibrate(t *testing.T) {
	c := NewCalibration()

	if w := c.Weight("trader"); w != baseTrust {
		t.Fatalf("unseen agent weight = %v, want %v", w, baseTrust)
	}

	c.Recalibrate([]*domain.Proposal{
		overrideProposal("trader", -0.1),
		overrideProposal("trader", -0.1),
		overrideProposal("compliance", 0.1),
		// Unreconciled and non-override proposals must not contribute.
		{Kind: domain.KindAgentOverride, Status: domain.StatusExecuted,
			AgentDecision: &domain.DecisionSnapshot{AgentType: "trader"},
			Outcome:       &domain.Outcome{}},
		{Kind: domain.KindParameterChange, Status: domain.StatusExecuted},
	})

	if w := c.Weight("trader"); math.Abs(w-0.8) > 1e-9 {
		t.Fatalf("trader weight = %v, want 0.8", w)
	}
	if w := c.Weight("compliance"); math.Abs(w-1.1) > 1e-9 {
		t.Fatalf("compliance weight = %v, want 1.1", w)
	}
}

func TestCalibration_RecalibrateIsIdempotent(t *testing.T) {
	c := NewCalibration()
	proposals := []*domain.Proposal{overrideProposal("trader", -0.1)}

	c.Recalibrate(proposals)
	first := c.Weight("trader")
	c.Recalibrate(proposals)
	if second := c.Weight("trader"); second != first {
		t.Fatalf("replayed recalibration moved weight %v → %v", first, second)
	}
}

func TestCalibration_Clamps(t *testing.T) {
	c := NewCalibration()

	var down []*domain.Proposal
	for i := 0; i < 20; i++ {
		down = append(down, overrideProposal("trader", -0.1))
	}
	c.Recalibrate(down)
	if w := c.Weight("trader"); w != minTrust {
		t.Fatalf("weight = %v, want clamped to %v", w, minTrust)
	}

	var up []*domain.Proposal
	for i := 0; i < 20; i++ {
		up = append(up, overrideProposal("advisor", 0.1))
	}
	c.Recalibrate(up)
	if w := c.Weight("advisor"); w != maxTrust {
		t.Fatalf("weight = %v, want clamped to %v", w, maxTrust)
	}
}

func TestCalibration_WeightedClampsToUnit(t *testing.T) {
	c := NewCalibration()
	var up []*domain.Proposal
	for i := 0; i < 20; i++ {
		up = append(up, overrideProposal("advisor", 0.1))
	}
	c.Recalibrate(up)

	// 0.9 * 1.5 would exceed 1; Weighted clamps back into [0,1].
	if got := c.Weighted("advisor", 0.9); got != 1 {
		t.Fatalf("Weighted = %v, want 1", got)
	}
	if got := c.Weighted("advisor", 0.4); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("Weighted = %v, want 0.6", got)
	}
}
