package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VoteChoice represents a voter's decision.
type VoteChoice int

const (
	VoteFor     VoteChoice = iota // Support the proposal
	VoteAgainst                   // Oppose the proposal
	VoteAbstain                   // Counted for quorum but not for/against
)

// String returns the wire name of the choice.
func (c VoteChoice) String() string {
	switch c {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the choice's wire name.
func (c VoteChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON reads a choice from its wire name.
func (c *VoteChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseVoteChoice(s)
	if !ok {
		return fmt.Errorf("unknown vote choice %q", s)
	}
	*c = parsed
	return nil
}

// ParseVoteChoice maps a wire name back to a VoteChoice.
func ParseVoteChoice(s string) (VoteChoice, bool) {
	switch s {
	case "for":
		return VoteFor, true
	case "against":
		return VoteAgainst, true
	case "abstain":
		return VoteAbstain, true
	default:
		return 0, false
	}
}

// Vote is one voter's stake-weighted vote on a proposal. Votes are created
// exactly once and never edited or deleted: the per-proposal vote list is an
// append-only audit log, ordered by arrival.
type Vote struct {
	ID         string          `json:"id"`
	ProposalID string          `json:"proposal_id"`
	Voter      string          `json:"voter"`
	Choice     VoteChoice      `json:"choice"`
	Stake      decimal.Decimal `json:"stake"`
	Reasoning  string          `json:"reasoning,omitempty"`
	CastAt     time.Time       `json:"cast_at"`
	// TxHash references the stake-ledger lock; empty if the ledger has not
	// confirmed a reference.
	TxHash string `json:"tx_hash,omitempty"`
}

// LearningEntry records one executed agent override for the feedback loop.
// Outcome stays nil until external reconciliation reports how the override
// actually turned out.
type LearningEntry struct {
	ProposalID       string    `json:"proposal_id"`
	AgentType        string    `json:"agent_type"`
	OriginalDecision string    `json:"original_decision"`
	HumanOverride    string    `json:"human_override"`
	Outcome          *float64  `json:"outcome,omitempty"` // 0..1, set once
	Timestamp        time.Time `json:"timestamp"`
}
