// Package domain holds the pure governance types shared across the engine,
// API, and persistence layers. No infrastructure imports allowed here.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Proposal Kind ──────────────────────────────────────────────────────────

// ProposalKind determines a proposal's voting window and execution semantics.
type ProposalKind int

const (
	KindAgentOverride   ProposalKind = iota // Replace an agent decision with a human one
	KindParameterChange                     // Change a treasury parameter
	KindEmergencyStop                       // Accepted but not yet executable
	KindBudgetAllocation                    // Accepted but not yet executable
)

// String returns the wire name of the kind.
func (k ProposalKind) String() string {
	switch k {
	case KindAgentOverride:
		return "agent_override"
	case KindParameterChange:
		return "parameter_change"
	case KindEmergencyStop:
		return "emergency_stop"
	case KindBudgetAllocation:
		return "budget_allocation"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the kind's wire name.
func (k ProposalKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON reads a kind from its wire name.
func (k *ProposalKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseProposalKind(s)
	if !ok {
		return fmt.Errorf("unknown proposal kind %q", s)
	}
	*k = parsed
	return nil
}

// ParseProposalKind maps a wire name back to a ProposalKind.
func ParseProposalKind(s string) (ProposalKind, bool) {
	switch s {
	case "agent_override":
		return KindAgentOverride, true
	case "parameter_change":
		return KindParameterChange, true
	case "emergency_stop":
		return KindEmergencyStop, true
	case "budget_allocation":
		return KindBudgetAllocation, true
	default:
		return 0, false
	}
}

// VotingWindow returns how long voting stays open for this kind.
// These are design constants, not user input.
func (k ProposalKind) VotingWindow() time.Duration {
	switch k {
	case KindParameterChange:
		return 5 * 24 * time.Hour
	default:
		return 3 * 24 * time.Hour
	}
}

// ─── Proposal Status ────────────────────────────────────────────────────────

// ProposalStatus represents the lifecycle of a proposal.
//
//	active → passed → executed
//	active → rejected
//	passed → execution_failed (dispatch error; operator may retry)
//
// There is no stored "expired" status: a proposal past its deadline stays
// ACTIVE until someone calls execute, and read paths report the closed
// window via Proposal.VotingEnded.
type ProposalStatus int

const (
	StatusActive ProposalStatus = iota
	StatusPassed
	StatusRejected
	StatusExecuted
	StatusExecutionFailed
)

// String returns a human-readable status.
func (s ProposalStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPassed:
		return "PASSED"
	case StatusRejected:
		return "REJECTED"
	case StatusExecuted:
		return "EXECUTED"
	case StatusExecutionFailed:
		return "EXECUTION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON writes the status's wire name.
func (s ProposalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads a status from its wire name.
func (s *ProposalStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParseProposalStatus(name)
	if !ok {
		return fmt.Errorf("unknown proposal status %q", name)
	}
	*s = parsed
	return nil
}

// ParseProposalStatus maps a wire name back to a ProposalStatus.
func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch s {
	case "ACTIVE":
		return StatusActive, true
	case "PASSED":
		return StatusPassed, true
	case "REJECTED":
		return StatusRejected, true
	case "EXECUTED":
		return StatusExecuted, true
	case "EXECUTION_FAILED":
		return StatusExecutionFailed, true
	default:
		return 0, false
	}
}

// Terminal reports whether no further transition is possible.
// EXECUTION_FAILED is not terminal: an operator may retry execution.
func (s ProposalStatus) Terminal() bool {
	return s == StatusRejected || s == StatusExecuted
}

// ─── Payloads ───────────────────────────────────────────────────────────────

// DecisionSnapshot is an immutable copy of an agent decision, taken once at
// proposal creation. The engine never re-reads the live agent.
type DecisionSnapshot struct {
	AgentID    string  `json:"agent_id"`
	AgentType  string  `json:"agent_type"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"` // 0..1
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ParameterChange is the proposed-change payload for parameter proposals.
type ParameterChange struct {
	Parameter     string `json:"parameter"`
	CurrentValue  string `json:"current_value"`
	ProposedValue string `json:"proposed_value"`
}

// ─── Voting power ───────────────────────────────────────────────────────────

// VotingPower accumulates stake-weighted power per choice. Decimal, not
// float: many small stakes must sum without drift.
type VotingPower struct {
	For     decimal.Decimal `json:"for"`
	Against decimal.Decimal `json:"against"`
	Abstain decimal.Decimal `json:"abstain"`
}

// Total returns for+against+abstain.
func (v VotingPower) Total() decimal.Decimal {
	return v.For.Add(v.Against).Add(v.Abstain)
}

// ─── Outcome ────────────────────────────────────────────────────────────────

// LearningData is the feedback record nested in an executed proposal's
// outcome. ActualOutcome stays nil until reconciliation reports ground truth.
type LearningData struct {
	OriginalConfidence float64  `json:"original_confidence"`
	OverrideReason     string   `json:"override_reason,omitempty"`
	ActualOutcome      *float64 `json:"actual_outcome,omitempty"` // 0..1, set once
	Adjustment         float64  `json:"adjustment"`               // signed, default 0
}

// ExecutionResult is what the dispatcher produced for an executed proposal.
type ExecutionResult struct {
	// Agent override fields
	AgentID          string `json:"agent_id,omitempty"`
	OriginalDecision string `json:"original_decision,omitempty"`
	NewDecision      string `json:"new_decision,omitempty"`

	// Parameter change fields
	Parameter string `json:"parameter,omitempty"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Outcome is set on a proposal only once it has been executed.
type Outcome struct {
	Result       ExecutionResult `json:"result"`
	LearningData LearningData    `json:"learning_data"`
}

// ─── Proposal ───────────────────────────────────────────────────────────────

// Proposal is a governance proposal the electorate votes on.
type Proposal struct {
	ID          string       `json:"id"`
	Kind        ProposalKind `json:"kind"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Proposer    string       `json:"proposer"`

	// Set for agent_override proposals only.
	AgentDecision *DecisionSnapshot `json:"agent_decision,omitempty"`
	// The human-specified replacement decision (agent_override).
	ProposedOverride string `json:"proposed_override,omitempty"`
	// Set for parameter_change proposals only.
	ParameterChange *ParameterChange `json:"parameter_change,omitempty"`

	Power     VotingPower     `json:"voting_power"`
	Quorum    decimal.Decimal `json:"quorum"`
	Threshold decimal.Decimal `json:"threshold"` // fraction in (0,1]

	Status        ProposalStatus `json:"status"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"` // fixed at creation
	ExecutionTime time.Time      `json:"execution_time,omitzero"`

	Outcome *Outcome `json:"outcome,omitempty"`
}

// VotingEnded reports whether the voting window has closed at t.
// Display-only: status stays ACTIVE until someone calls execute.
func (p *Proposal) VotingEnded(t time.Time) bool {
	return t.After(p.EndTime)
}
