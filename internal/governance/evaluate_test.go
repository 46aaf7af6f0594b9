package governance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name                      string
		forP, against, abstain    string
		quorum, threshold         string
		wantQuorumMet, wantPassed bool
		wantTotal, wantRatio      string
	}{
		{
			name: "passes at exact threshold",
			forP: "600", against: "400", abstain: "0",
			quorum: "500", threshold: "0.6",
			wantQuorumMet: true, wantPassed: true,
			wantTotal: "1000", wantRatio: "0.6",
		},
		{
			name: "quorum not met",
			forP: "600", against: "400", abstain: "0",
			quorum: "1500", threshold: "0.6",
			wantQuorumMet: false, wantPassed: false,
			wantTotal: "1000", wantRatio: "0.6",
		},
		{
			name: "abstain counts toward quorum but not ratio",
			forP: "100", against: "0", abstain: "900",
			quorum: "500", threshold: "0.5",
			wantQuorumMet: true, wantPassed: true,
			wantTotal: "1000", wantRatio: "1",
		},
		{
			name: "abstain only defines ratio as zero",
			forP: "0", against: "0", abstain: "1000",
			quorum: "500", threshold: "0.5",
			wantQuorumMet: true, wantPassed: false,
			wantTotal: "1000", wantRatio: "0",
		},
		{
			name: "just below threshold fails",
			forP: "599", against: "401", abstain: "0",
			quorum: "500", threshold: "0.6",
			wantQuorumMet: true, wantPassed: false,
			wantTotal: "1000", wantRatio: "0.599",
		},
		{
			name: "quorum met at exact boundary",
			forP: "250", against: "250", abstain: "0",
			quorum: "500", threshold: "0.5",
			wantQuorumMet: true, wantPassed: true,
			wantTotal: "500", wantRatio: "0.5",
		},
		{
			name: "no votes at all",
			forP: "0", against: "0", abstain: "0",
			quorum: "500", threshold: "0.5",
			wantQuorumMet: false, wantPassed: false,
			wantTotal: "0", wantRatio: "0",
		},
		{
			name: "fractional stakes sum exactly",
			forP: "0.1", against: "0.2", abstain: "0",
			quorum: "0.3", threshold: "0.3",
			wantQuorumMet: true, wantPassed: true,
			wantTotal: "0.3", wantRatio: "0.3333333333333333",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(TallyInput{
				For:       dec(tc.forP),
				Against:   dec(tc.against),
				Abstain:   dec(tc.abstain),
				Quorum:    dec(tc.quorum),
				Threshold: dec(tc.threshold),
			})
			if res.QuorumMet != tc.wantQuorumMet {
				t.Errorf("QuorumMet = %v, want %v", res.QuorumMet, tc.wantQuorumMet)
			}
			if res.Passed != tc.wantPassed {
				t.Errorf("Passed = %v, want %v", res.Passed, tc.wantPassed)
			}
			if !res.TotalPower.Equal(dec(tc.wantTotal)) {
				t.Errorf("TotalPower = %s, want %s", res.TotalPower, tc.wantTotal)
			}
			if !res.ForRatio.Equal(dec(tc.wantRatio)) {
				t.Errorf("ForRatio = %s, want %s", res.ForRatio, tc.wantRatio)
			}
		})
	}
}

func TestAdjustmentFor(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		actual     float64
		want       float64
		wantOK     bool
	}{
		{"confident agent vindicated", 0.85, 0.9, -0.1, true},
		{"doubtful agent wrong", 0.3, 0.5, 0.1, true},
		{"mid confidence good outcome", 0.3, 0.9, 0, false},
		{"mid confidence mid outcome", 0.6, 0.6, 0, false},
		{"confidence at upper boundary", 0.8, 0.9, 0, false},
		{"outcome at success boundary", 0.85, 0.7, 0, false},
		{"confidence at doubt boundary", 0.5, 0.3, 0, false},
		{"just under doubt boundary", 0.49, 0.7, 0.1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := adjustmentFor(tc.confidence, tc.actual)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("adjustmentFor(%v, %v) = (%v, %v), want (%v, %v)",
					tc.confidence, tc.actual, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
