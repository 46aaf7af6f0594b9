// Package governance implements the hybrid governance engine: stake-weighted
// voting that lets a human electorate ratify or override autonomous agent
// decisions, with the result of each override fed back into a learning
// signal for future confidence weighting.
//
// Lifecycle: a proposal is created ACTIVE with a fixed voting window; votes
// lock stake via the ledger collaborator and accumulate decimal voting
// power; an explicit execute call — never a background timer — evaluates
// quorum and threshold and either rejects the proposal or dispatches its
// execution. Executed agent overrides are recorded for later outcome
// reconciliation.
package governance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
	"github.com/sentinel-dao/sentinel/internal/infra/metrics"
	"github.com/sentinel-dao/sentinel/internal/stake"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config controls the governance engine.
type Config struct {
	// DefaultQuorum is the minimum combined voting power (for+against+
	// abstain) a proposal needs before its tally is meaningful.
	DefaultQuorum decimal.Decimal

	// DefaultThreshold is the fraction of for/(for+against) power required
	// to pass, in (0,1].
	DefaultThreshold decimal.Decimal

	// StakeLockDuration is how long each vote's stake is locked. Fixed
	// policy, independent of any proposal's voting window.
	StakeLockDuration time.Duration

	// LedgerTimeout bounds the stake-ledger call inside castVote.
	LedgerTimeout time.Duration

	// MaxActiveProposals limits concurrent open proposals.
	MaxActiveProposals int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultQuorum:      decimal.NewFromInt(500),
		DefaultThreshold:   decimal.RequireFromString("0.5"),
		StakeLockDuration:  stake.LockDuration,
		LedgerTimeout:      30 * time.Second,
		MaxActiveProposals: 50,
	}
}

// ─── Audit sink ─────────────────────────────────────────────────────────────

// AuditSink receives committed governance state changes for durable storage.
// Calls happen after the in-memory commit; sink failures must not undo it.
type AuditSink interface {
	ProposalCreated(p *domain.Proposal)
	ProposalUpdated(p *domain.Proposal)
	VoteRecorded(v *domain.Vote)
	LearningRecorded(e *domain.LearningEntry)
	LearningUpdated(e *domain.LearningEntry)
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// propState bundles a proposal with its vote log behind a single mutex.
// All mutations to one proposal serialize on this lock; the stake-ledger
// call inside castVote happens inside the critical section so a vote is
// never counted whose stake never locked. Operations on different
// proposals proceed in parallel.
type propState struct {
	mu     sync.Mutex
	prop   *domain.Proposal
	votes  []*domain.Vote
	voters map[string]bool // lowercased voter addresses
}

// Engine is the hybrid governance engine. Construct one per process (or per
// test) with NewEngine; there is no ambient global state.
type Engine struct {
	// mu guards the proposal map only. It is never held across a proposal
	// mutation or a ledger call; those serialize on the per-proposal lock.
	mu        sync.RWMutex
	config    Config
	ledger    stake.Ledger
	proposals map[string]*propState
	learning  *learningLog
	audit     AuditSink

	// now is injectable for testing.
	now func() time.Time
}

// NewEngine creates a governance engine backed by the given stake ledger.
func NewEngine(cfg Config, ledger stake.Ledger) *Engine {
	return &Engine{
		config:    cfg,
		ledger:    ledger,
		proposals: make(map[string]*propState),
		learning:  newLearningLog(),
		now:       time.Now,
	}
}

// SetAudit attaches a durable audit sink. Must be called before use.
func (e *Engine) SetAudit(a AuditSink) { e.audit = a }

// Restore rebuilds engine state from persisted records. Call once, before
// serving; restored records do not round-trip through the audit sink.
func (e *Engine) Restore(proposals []*domain.Proposal, votes map[string][]*domain.Vote, learning []*domain.LearningEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range proposals {
		st := &propState{
			prop:   cloneProposal(p),
			voters: make(map[string]bool),
		}
		for _, v := range votes[p.ID] {
			c := *v
			st.votes = append(st.votes, &c)
			st.voters[strings.ToLower(v.Voter)] = true
		}
		e.proposals[p.ID] = st
	}
	for _, entry := range learning {
		c := *entry
		if entry.Outcome != nil {
			v := *entry.Outcome
			c.Outcome = &v
		}
		e.learning.append(&c)
	}
}

// ─── Proposal creation ──────────────────────────────────────────────────────

// CreateAgentOverrideProposal opens a proposal asking the electorate to
// replace an agent decision with a human-specified one. The decision
// snapshot is copied here, at creation time, and never re-read live.
func (e *Engine) CreateAgentOverrideProposal(proposer string, snapshot domain.DecisionSnapshot, proposedOverride, reasoning string) (*domain.Proposal, error) {
	if snapshot.AgentID == "" || snapshot.Decision == "" {
		return nil, fmt.Errorf("%w: agent decision snapshot is incomplete", domain.ErrInvalidProposal)
	}
	if snapshot.Confidence < 0 || snapshot.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %.2f outside [0,1]", domain.ErrInvalidProposal, snapshot.Confidence)
	}
	if proposedOverride == "" {
		return nil, fmt.Errorf("%w: proposed override is required", domain.ErrInvalidProposal)
	}

	snap := snapshot
	p := e.newProposal(domain.KindAgentOverride, proposer, reasoning)
	p.Title = fmt.Sprintf("Override %s decision by %s", snap.AgentType, snap.AgentID)
	p.AgentDecision = &snap
	p.ProposedOverride = proposedOverride

	return e.admit(p)
}

// CreateParameterChangeProposal opens a proposal to change a treasury
// parameter.
func (e *Engine) CreateParameterChangeProposal(proposer, parameter, currentValue, proposedValue, reasoning string) (*domain.Proposal, error) {
	if parameter == "" || proposedValue == "" {
		return nil, fmt.Errorf("%w: parameter and proposed value are required", domain.ErrInvalidProposal)
	}

	p := e.newProposal(domain.KindParameterChange, proposer, reasoning)
	p.Title = fmt.Sprintf("Change %s to %s", parameter, proposedValue)
	p.ParameterChange = &domain.ParameterChange{
		Parameter:     parameter,
		CurrentValue:  currentValue,
		ProposedValue: proposedValue,
	}

	return e.admit(p)
}

// newProposal builds the common proposal shell for a kind.
func (e *Engine) newProposal(kind domain.ProposalKind, proposer, description string) *domain.Proposal {
	now := e.now()
	return &domain.Proposal{
		ID:          newID("prop", now),
		Kind:        kind,
		Description: description,
		Proposer:    proposer,
		Quorum:      e.config.DefaultQuorum,
		Threshold:   e.config.DefaultThreshold,
		Status:      domain.StatusActive,
		StartTime:   now,
		EndTime:     now.Add(kind.VotingWindow()),
	}
}

// admit registers a fully-built proposal with the store.
func (e *Engine) admit(p *domain.Proposal) (*domain.Proposal, error) {
	if strings.TrimSpace(p.Proposer) == "" {
		return nil, fmt.Errorf("%w: proposer is required", domain.ErrInvalidProposal)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.config.MaxActiveProposals > 0 {
		active := 0
		for _, st := range e.proposals {
			if st.prop.Status == domain.StatusActive {
				active++
			}
		}
		if active >= e.config.MaxActiveProposals {
			return nil, fmt.Errorf("maximum active proposals reached (%d)", e.config.MaxActiveProposals)
		}
	}

	e.proposals[p.ID] = &propState{
		prop:   p,
		voters: make(map[string]bool),
	}

	metrics.ProposalsCreated.WithLabelValues(p.Kind.String()).Inc()
	if e.audit != nil {
		e.audit.ProposalCreated(cloneProposal(p))
	}
	return cloneProposal(p), nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// GetProposal returns a copy of a proposal by id.
func (e *Engine) GetProposal(id string) (*domain.Proposal, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneProposal(st.prop), nil
}

// ActiveProposals returns all proposals still in the ACTIVE state, newest
// first. Proposals past their deadline stay ACTIVE until executed; callers
// that need display status use Proposal.VotingEnded.
func (e *Engine) ActiveProposals() []*domain.Proposal {
	return e.listProposals(func(p *domain.Proposal) bool {
		return p.Status == domain.StatusActive
	})
}

// AllProposals returns every proposal, newest first.
func (e *Engine) AllProposals() []*domain.Proposal {
	return e.listProposals(func(*domain.Proposal) bool { return true })
}

func (e *Engine) listProposals(keep func(*domain.Proposal) bool) []*domain.Proposal {
	e.mu.RLock()
	states := make([]*propState, 0, len(e.proposals))
	for _, st := range e.proposals {
		states = append(states, st)
	}
	e.mu.RUnlock()

	result := make([]*domain.Proposal, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if keep(st.prop) {
			result = append(result, cloneProposal(st.prop))
		}
		st.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result
}

// ProposalVotes returns the append-only vote log for a proposal, in arrival
// order.
func (e *Engine) ProposalVotes(id string) ([]*domain.Vote, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*domain.Vote, len(st.votes))
	for i, v := range st.votes {
		c := *v
		out[i] = &c
	}
	return out, nil
}

// UserVotes returns every vote cast by a voter across all proposals,
// matching the address case-insensitively, ordered by cast time.
func (e *Engine) UserVotes(voter string) []*domain.Vote {
	e.mu.RLock()
	states := make([]*propState, 0, len(e.proposals))
	for _, st := range e.proposals {
		states = append(states, st)
	}
	e.mu.RUnlock()

	var out []*domain.Vote
	for _, st := range states {
		st.mu.Lock()
		for _, v := range st.votes {
			if strings.EqualFold(v.Voter, voter) {
				c := *v
				out = append(out, &c)
			}
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CastAt.Before(out[j].CastAt)
	})
	return out
}

// Tally previews the current tally of a proposal without touching its state.
func (e *Engine) Tally(id string) (TallyResult, error) {
	st, err := e.state(id)
	if err != nil {
		return TallyResult{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return Evaluate(TallyInput{
		For:       st.prop.Power.For,
		Against:   st.prop.Power.Against,
		Abstain:   st.prop.Power.Abstain,
		Quorum:    st.prop.Quorum,
		Threshold: st.prop.Threshold,
	}), nil
}

// Stats summarizes governance activity.
type Stats struct {
	TotalProposals  int `json:"total_proposals"`
	ActiveProposals int `json:"active_proposals"`
	Passed          int `json:"passed"`
	Rejected        int `json:"rejected"`
	Executed        int `json:"executed"`
	FailedExecution int `json:"failed_execution"`
	TotalVotesCast  int `json:"total_votes_cast"`
	LearningEntries int `json:"learning_entries"`
}

// GovernanceStats returns aggregate counters across all proposals.
func (e *Engine) GovernanceStats() Stats {
	e.mu.RLock()
	states := make([]*propState, 0, len(e.proposals))
	for _, st := range e.proposals {
		states = append(states, st)
	}
	e.mu.RUnlock()

	var s Stats
	s.TotalProposals = len(states)
	for _, st := range states {
		st.mu.Lock()
		switch st.prop.Status {
		case domain.StatusActive:
			s.ActiveProposals++
		case domain.StatusPassed:
			s.Passed++
		case domain.StatusRejected:
			s.Rejected++
		case domain.StatusExecuted:
			s.Executed++
		case domain.StatusExecutionFailed:
			s.FailedExecution++
		}
		s.TotalVotesCast += len(st.votes)
		st.mu.Unlock()
	}
	s.LearningEntries = e.learning.len()
	return s
}

// ─── Voting ─────────────────────────────────────────────────────────────────

// CastVote validates and records a stake-weighted vote. The stake-ledger
// lock is awaited inside the per-proposal critical section: the voting-power
// mutation commits only after the lock succeeded, so there is no partial
// state on ledger failure.
func (e *Engine) CastVote(ctx context.Context, proposalID, voter string, choice domain.VoteChoice, stakeAmount decimal.Decimal, reasoning string) (*domain.Vote, error) {
	st, err := e.state(proposalID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	p := st.prop
	now := e.now()
	if p.Status != domain.StatusActive || now.After(p.EndTime) {
		return nil, fmt.Errorf("%w: proposal %s (status %s)", domain.ErrVotingClosed, p.ID, p.Status)
	}
	if stakeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStake, stakeAmount)
	}
	voterKey := strings.ToLower(strings.TrimSpace(voter))
	if voterKey == "" {
		return nil, fmt.Errorf("%w: voter address is required", domain.ErrInvalidStake)
	}
	if st.voters[voterKey] {
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrDuplicateVote, voter, p.ID)
	}
	switch choice {
	case domain.VoteFor, domain.VoteAgainst, domain.VoteAbstain:
	default:
		// Validated before the ledger call: a rejected vote must never
		// leave a stake lock behind.
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidChoice, choice)
	}

	lockCtx := ctx
	if e.config.LedgerTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.config.LedgerTimeout)
		defer cancel()
	}
	txHash, err := e.ledger.Lock(lockCtx, voter, stakeAmount, e.config.StakeLockDuration)
	if err != nil {
		if errors.Is(err, domain.ErrStakeLockFailed) || errors.Is(err, domain.ErrInvalidStake) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStakeLockFailed, err)
	}

	vote := &domain.Vote{
		ID:         newID("vote", now),
		ProposalID: p.ID,
		Voter:      voter,
		Choice:     choice,
		Stake:      stakeAmount,
		Reasoning:  reasoning,
		CastAt:     now,
		TxHash:     txHash,
	}

	switch choice {
	case domain.VoteFor:
		p.Power.For = p.Power.For.Add(stakeAmount)
	case domain.VoteAgainst:
		p.Power.Against = p.Power.Against.Add(stakeAmount)
	case domain.VoteAbstain:
		p.Power.Abstain = p.Power.Abstain.Add(stakeAmount)
	}

	st.votes = append(st.votes, vote)
	st.voters[voterKey] = true

	metrics.VotesCast.WithLabelValues(choice.String()).Inc()
	staked, _ := stakeAmount.Float64()
	metrics.StakeLocked.Add(staked)
	if e.audit != nil {
		c := *vote
		e.audit.VoteRecorded(&c)
		e.audit.ProposalUpdated(cloneProposal(p))
	}

	c := *vote
	return &c, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// state returns the propState for an id.
func (e *Engine) state(id string) (*propState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProposalNotFound, id)
	}
	return st, nil
}

// newID builds a collision-resistant id: timestamp plus random suffix.
func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), uuid.NewString()[:8])
}

// cloneProposal deep-copies a proposal so callers never share engine memory.
func cloneProposal(p *domain.Proposal) *domain.Proposal {
	c := *p
	if p.AgentDecision != nil {
		snap := *p.AgentDecision
		c.AgentDecision = &snap
	}
	if p.ParameterChange != nil {
		pc := *p.ParameterChange
		c.ParameterChange = &pc
	}
	if p.Outcome != nil {
		oc := *p.Outcome
		if p.Outcome.LearningData.ActualOutcome != nil {
			v := *p.Outcome.LearningData.ActualOutcome
			oc.LearningData.ActualOutcome = &v
		}
		c.Outcome = &oc
	}
	return &c
}
