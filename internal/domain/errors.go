package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Proposal lookup / lifecycle errors
	ErrProposalNotFound = errors.New("proposal not found")
	ErrInvalidState     = errors.New("proposal is not in a valid state for this transition")
	ErrTooEarly         = errors.New("voting period has not ended yet")

	// Voting errors
	ErrVotingClosed  = errors.New("voting is closed for this proposal")
	ErrInvalidStake  = errors.New("stake amount must be positive")
	ErrInvalidChoice = errors.New("vote choice must be for, against, or abstain")
	ErrDuplicateVote = errors.New("voter has already voted on this proposal")

	// Stake ledger errors
	ErrStakeLockFailed = errors.New("stake ledger failed to lock stake")

	// Execution errors
	ErrInvalidProposal         = errors.New("proposal is missing the payload required by its kind")
	ErrUnsupportedProposalKind = errors.New("no execution defined for this proposal kind")

	// Agent registry errors
	ErrAgentNotFound = errors.New("agent not found")
	ErrUnknownAction = errors.New("unknown agent action")
)
