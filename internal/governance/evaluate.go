package governance

import "github.com/shopspring/decimal"

// TallyInput is the aggregated voting power a tally is computed from.
// All values are non-negative decimals; Threshold is a fraction in (0,1].
type TallyInput struct {
	For       decimal.Decimal `json:"for"`
	Against   decimal.Decimal `json:"against"`
	Abstain   decimal.Decimal `json:"abstain"`
	Quorum    decimal.Decimal `json:"quorum"`
	Threshold decimal.Decimal `json:"threshold"`
}

// TallyResult is the outcome of evaluating a tally.
type TallyResult struct {
	TotalPower decimal.Decimal `json:"total_power"`
	ForRatio   decimal.Decimal `json:"for_ratio"`
	QuorumMet  bool            `json:"quorum_met"`
	Passed     bool            `json:"passed"`
}

// Evaluate computes pass/fail from aggregated voting power. Pure and
// deterministic: callers use it both for the real passed→executed transition
// and for previewing a tally without touching the state machine.
//
// Quorum counts all three choices; the for-ratio excludes abstentions.
// A 0/0 for-ratio (nobody voted for or against) is defined as 0, so an
// abstain-only proposal that meets quorum still fails.
func Evaluate(in TallyInput) TallyResult {
	res := TallyResult{
		TotalPower: in.For.Add(in.Against).Add(in.Abstain),
	}
	res.QuorumMet = res.TotalPower.GreaterThanOrEqual(in.Quorum)

	decided := in.For.Add(in.Against)
	if decided.Sign() > 0 {
		res.ForRatio = in.For.Div(decided)
	}

	res.Passed = res.QuorumMet && res.ForRatio.GreaterThanOrEqual(in.Threshold)
	return res
}
