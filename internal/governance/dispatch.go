package governance

import (
	"fmt"
	"log"
	"time"

	"github.com/sentinel-dao/sentinel/internal/domain"
	"github.com/sentinel-dao/sentinel/internal/infra/metrics"
)

// ExecuteProposal evaluates a proposal whose voting window has closed and,
// if it passes, dispatches its execution. Returns whether the proposal
// passed.
//
// Execute is explicit and single-shot: calling it on a proposal that is no
// longer ACTIVE fails with ErrInvalidState instead of re-executing. The one
// exception is EXECUTION_FAILED, where an operator may retry the dispatch
// after inspecting the failure.
func (e *Engine) ExecuteProposal(id string) (bool, error) {
	st, err := e.state(id)
	if err != nil {
		return false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	p := st.prop
	now := e.now()

	switch p.Status {
	case domain.StatusActive:
		// fall through to evaluation
	case domain.StatusExecutionFailed:
		// Operator retry of a passed proposal whose dispatch failed.
		return e.dispatchLocked(st)
	default:
		return false, fmt.Errorf("%w: proposal %s is %s", domain.ErrInvalidState, p.ID, p.Status)
	}

	if now.Before(p.EndTime) {
		return false, fmt.Errorf("%w: voting ends at %s", domain.ErrTooEarly, p.EndTime.UTC().Format("2006-01-02T15:04:05Z"))
	}

	tally := Evaluate(TallyInput{
		For:       p.Power.For,
		Against:   p.Power.Against,
		Abstain:   p.Power.Abstain,
		Quorum:    p.Quorum,
		Threshold: p.Threshold,
	})

	if !tally.QuorumMet {
		// Quorum failure rejects without an outcome record.
		p.Status = domain.StatusRejected
		log.Printf("[governance] proposal %s rejected: quorum not met (%s < %s)", p.ID, tally.TotalPower, p.Quorum)
		e.commitUpdate(p)
		return false, nil
	}
	if !tally.Passed {
		p.Status = domain.StatusRejected
		log.Printf("[governance] proposal %s rejected: for-ratio %s below threshold %s", p.ID, tally.ForRatio, p.Threshold)
		e.commitUpdate(p)
		return false, nil
	}

	p.Status = domain.StatusPassed
	return e.dispatchLocked(st)
}

// dispatchLocked runs the kind-specific execution of a PASSED (or retried
// EXECUTION_FAILED) proposal. Caller holds st.mu. A dispatch error must not
// mark the proposal executed: it moves to EXECUTION_FAILED for inspection.
func (e *Engine) dispatchLocked(st *propState) (bool, error) {
	p := st.prop
	now := e.now()

	result, err := dispatch(p, now)
	if err != nil {
		p.Status = domain.StatusExecutionFailed
		metrics.ProposalsExecuted.WithLabelValues(p.Kind.String(), "error").Inc()
		log.Printf("[governance] proposal %s dispatch failed: %v", p.ID, err)
		e.commitUpdate(p)
		return false, err
	}

	outcome := &domain.Outcome{
		Result: result,
		LearningData: domain.LearningData{
			OverrideReason: p.Description,
		},
	}
	if p.AgentDecision != nil {
		outcome.LearningData.OriginalConfidence = p.AgentDecision.Confidence
	}
	p.Outcome = outcome
	p.Status = domain.StatusExecuted
	// Set only on successful dispatch; a failed attempt leaves it zero and
	// a later retry stamps the retry time.
	p.ExecutionTime = now

	// Every executed override feeds the learning loop. Outcome stays nil
	// until reconciliation reports ground truth.
	if p.Kind == domain.KindAgentOverride {
		entry := &domain.LearningEntry{
			ProposalID:       p.ID,
			AgentType:        p.AgentDecision.AgentType,
			OriginalDecision: p.AgentDecision.Decision,
			HumanOverride:    p.ProposedOverride,
			Timestamp:        now,
		}
		e.learning.append(entry)
		if e.audit != nil {
			c := *entry
			e.audit.LearningRecorded(&c)
		}
	}

	metrics.ProposalsExecuted.WithLabelValues(p.Kind.String(), "ok").Inc()
	log.Printf("[governance] proposal %s executed (%s)", p.ID, p.Kind)
	e.commitUpdate(p)
	return true, nil
}

// commitUpdate pushes a proposal state change to the audit sink.
func (e *Engine) commitUpdate(p *domain.Proposal) {
	if e.audit != nil {
		e.audit.ProposalUpdated(cloneProposal(p))
	}
}

// dispatch branches execution by proposal kind. Pure except for the clock.
func dispatch(p *domain.Proposal, now time.Time) (domain.ExecutionResult, error) {
	switch p.Kind {
	case domain.KindAgentOverride:
		if p.AgentDecision == nil || p.ProposedOverride == "" {
			return domain.ExecutionResult{}, fmt.Errorf("%w: agent_override needs a decision snapshot and an override", domain.ErrInvalidProposal)
		}
		return domain.ExecutionResult{
			AgentID:          p.AgentDecision.AgentID,
			OriginalDecision: p.AgentDecision.Decision,
			NewDecision:      p.ProposedOverride,
			Timestamp:        now,
		}, nil

	case domain.KindParameterChange:
		pc := p.ParameterChange
		if pc == nil || pc.Parameter == "" || pc.ProposedValue == "" {
			return domain.ExecutionResult{}, fmt.Errorf("%w: parameter_change needs {parameter, currentValue, proposedValue}", domain.ErrInvalidProposal)
		}
		return domain.ExecutionResult{
			Parameter: pc.Parameter,
			OldValue:  pc.CurrentValue,
			NewValue:  pc.ProposedValue,
			Timestamp: now,
		}, nil

	default:
		// emergency_stop and budget_allocation are accepted states with no
		// dispatch semantics yet. Fail loudly rather than silently no-op.
		return domain.ExecutionResult{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedProposalKind, p.Kind)
	}
}
