package sqlite

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testProposal(id string) *domain.Proposal {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Proposal{
		ID:          id,
		Kind:        domain.KindAgentOverride,
		Title:       "Override agent decision",
		Description: "hold current allocation",
		Proposer:    "0xProposer",
		AgentDecision: &domain.DecisionSnapshot{
			AgentID:    "agent-trader-01",
			AgentType:  "trader",
			Decision:   "rebalance 20% toward target allocation",
			Confidence: 0.85,
			Reasoning:  "drift exceeded tolerance",
		},
		ProposedOverride: "hold current allocation",
		Quorum:           decimal.NewFromInt(500),
		Threshold:        decimal.RequireFromString("0.6"),
		Status:           domain.StatusActive,
		StartTime:        start,
		EndTime:          start.Add(3 * 24 * time.Hour),
	}
}

func TestStore_ProposalRoundTrip(t *testing.T) {
	s := openTestStore(t)

	p := testProposal("prop-1")
	s.ProposalCreated(p)

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Proposals) != 1 {
		t.Fatalf("loaded %d proposals, want 1", len(snap.Proposals))
	}

	got := snap.Proposals[0]
	if got.ID != p.ID || got.Kind != p.Kind || got.Proposer != p.Proposer {
		t.Fatalf("loaded = %+v", got)
	}
	if got.AgentDecision == nil || got.AgentDecision.Confidence != 0.85 {
		t.Fatalf("agent decision not restored: %+v", got.AgentDecision)
	}
	if !got.Quorum.Equal(p.Quorum) || !got.Threshold.Equal(p.Threshold) {
		t.Fatalf("quorum/threshold drifted: %s / %s", got.Quorum, got.Threshold)
	}
	if !got.StartTime.Equal(p.StartTime) || !got.EndTime.Equal(p.EndTime) {
		t.Fatalf("times drifted: %v / %v", got.StartTime, got.EndTime)
	}
	if !got.ExecutionTime.IsZero() {
		t.Fatal("execution time should stay zero until execution")
	}
	if got.Outcome != nil {
		t.Fatal("outcome should stay nil")
	}
}

func TestStore_UpdateOverwritesMutableColumns(t *testing.T) {
	s := openTestStore(t)

	p := testProposal("prop-1")
	s.ProposalCreated(p)

	p.Power.For = decimal.NewFromInt(600)
	p.Power.Against = decimal.NewFromInt(400)
	p.Status = domain.StatusExecuted
	p.ExecutionTime = p.EndTime.Add(time.Minute)
	actual := 0.9
	p.Outcome = &domain.Outcome{
		Result: domain.ExecutionResult{
			AgentID:          "agent-trader-01",
			OriginalDecision: "rebalance 20% toward target allocation",
			NewDecision:      "hold current allocation",
			Timestamp:        p.ExecutionTime,
		},
		LearningData: domain.LearningData{
			OriginalConfidence: 0.85,
			ActualOutcome:      &actual,
			Adjustment:         -0.1,
		},
	}
	s.ProposalUpdated(p)

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := snap.Proposals[0]
	if got.Status != domain.StatusExecuted {
		t.Fatalf("status = %s", got.Status)
	}
	if !got.Power.For.Equal(decimal.NewFromInt(600)) || !got.Power.Against.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("power = %+v", got.Power)
	}
	if !got.ExecutionTime.Equal(p.ExecutionTime) {
		t.Fatalf("execution time = %v", got.ExecutionTime)
	}
	if got.Outcome == nil || got.Outcome.LearningData.ActualOutcome == nil ||
		*got.Outcome.LearningData.ActualOutcome != 0.9 {
		t.Fatalf("outcome = %+v", got.Outcome)
	}
	if got.Outcome.LearningData.Adjustment != -0.1 {
		t.Fatalf("adjustment = %v", got.Outcome.LearningData.Adjustment)
	}
}

func TestStore_VotesLoadInCastOrder(t *testing.T) {
	s := openTestStore(t)
	s.ProposalCreated(testProposal("prop-1"))

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, voter := range []string{"0xAlice", "0xBob", "0xCarol"} {
		s.VoteRecorded(&domain.Vote{
			ID:         "vote-" + voter,
			ProposalID: "prop-1",
			Voter:      voter,
			Choice:     domain.VoteFor,
			Stake:      decimal.NewFromInt(int64(10 * (i + 1))),
			CastAt:     base.Add(time.Duration(i) * time.Minute),
			TxHash:     "0xabc",
		})
	}

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	votes := snap.Votes["prop-1"]
	if len(votes) != 3 {
		t.Fatalf("loaded %d votes, want 3", len(votes))
	}
	for i, voter := range []string{"0xAlice", "0xBob", "0xCarol"} {
		if votes[i].Voter != voter {
			t.Fatalf("vote %d voter = %s, want %s", i, votes[i].Voter, voter)
		}
	}
	if !votes[2].Stake.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("stake = %s", votes[2].Stake)
	}
}

func TestStore_DuplicateVoterRejectedByIndex(t *testing.T) {
	s := openTestStore(t)
	s.ProposalCreated(testProposal("prop-1"))

	now := time.Now()
	s.VoteRecorded(&domain.Vote{ID: "vote-1", ProposalID: "prop-1", Voter: "0xAlice",
		Choice: domain.VoteFor, Stake: decimal.NewFromInt(10), CastAt: now})
	// Same voter in different case: the unique index drops it, the sink
	// logs and carries on.
	s.VoteRecorded(&domain.Vote{ID: "vote-2", ProposalID: "prop-1", Voter: "0xALICE",
		Choice: domain.VoteAgainst, Stake: decimal.NewFromInt(20), CastAt: now})

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := len(snap.Votes["prop-1"]); n != 1 {
		t.Fatalf("loaded %d votes, want 1", n)
	}
}

func TestStore_LearningRoundTrip(t *testing.T) {
	s := openTestStore(t)

	entry := &domain.LearningEntry{
		ProposalID:       "prop-1",
		AgentType:        "trader",
		OriginalDecision: "rebalance 20% toward target allocation",
		HumanOverride:    "hold current allocation",
		Timestamp:        time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	s.LearningRecorded(entry)

	outcome := 0.4
	entry.Outcome = &outcome
	s.LearningUpdated(entry)

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Learning) != 1 {
		t.Fatalf("loaded %d entries, want 1", len(snap.Learning))
	}
	got := snap.Learning[0]
	if got.AgentType != "trader" || got.HumanOverride != "hold current allocation" {
		t.Fatalf("entry = %+v", got)
	}
	if got.Outcome == nil || *got.Outcome != 0.4 {
		t.Fatalf("outcome = %v", got.Outcome)
	}
	if !got.Timestamp.Equal(entry.Timestamp) {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestStore_ParameterChangeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.Proposal{
		ID:       "prop-param",
		Kind:     domain.KindParameterChange,
		Title:    "Change risk_ceiling_pct",
		Proposer: "0xProposer",
		ParameterChange: &domain.ParameterChange{
			Parameter:     "risk_ceiling_pct",
			CurrentValue:  "15",
			ProposedValue: "10",
		},
		Quorum:    decimal.NewFromInt(500),
		Threshold: decimal.RequireFromString("0.5"),
		Status:    domain.StatusActive,
		StartTime: start,
		EndTime:   start.Add(5 * 24 * time.Hour),
	}
	s.ProposalCreated(p)

	snap, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := snap.Proposals[0]
	if got.ParameterChange == nil || got.ParameterChange.ProposedValue != "10" {
		t.Fatalf("parameter change = %+v", got.ParameterChange)
	}
	if got.AgentDecision != nil {
		t.Fatal("agent decision must stay nil on parameter proposals")
	}
}
