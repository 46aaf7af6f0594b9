package governance

import (
	"log"
	"sync"

	"github.com/sentinel-dao/sentinel/internal/domain"
	"github.com/sentinel-dao/sentinel/internal/infra/metrics"
)

// Confidence-adjustment contract. External calibration logic depends on
// these exact values; do not tune them without a coordinated change.
const (
	// outcomeSuccess: above this the override is judged to have worked.
	outcomeSuccess = 0.7
	// confidentAgent: above this the agent counted as confident.
	confidentAgent = 0.8
	// doubtfulAgent: below this the agent had signaled self-doubt.
	doubtfulAgent = 0.5
	// adjustmentStep is the magnitude of each trust correction.
	adjustmentStep = 0.1
)

// adjustmentFor applies the two-bucket heuristic:
//
//   - the override helped (>0.7) even though the agent was confident (>0.8):
//     trust high-confidence agent output less (−0.1);
//   - the override failed (≤0.7) and the agent had already doubted itself
//     (<0.5): the self-doubt was warranted, trust the low-confidence signal
//     more (+0.1);
//   - anything else: no change.
func adjustmentFor(originalConfidence, actualOutcome float64) (float64, bool) {
	switch {
	case actualOutcome > outcomeSuccess && originalConfidence > confidentAgent:
		return -adjustmentStep, true
	case actualOutcome <= outcomeSuccess && originalConfidence < doubtfulAgent:
		return +adjustmentStep, true
	default:
		return 0, false
	}
}

// ─── Learning log ───────────────────────────────────────────────────────────

// learningLog is the append-only record of executed agent overrides.
type learningLog struct {
	mu      sync.Mutex
	entries []*domain.LearningEntry
	byID    map[string]*domain.LearningEntry
}

func newLearningLog() *learningLog {
	return &learningLog{byID: make(map[string]*domain.LearningEntry)}
}

func (l *learningLog) append(e *domain.LearningEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	// First entry wins per proposal id; ids are unique so this is safe.
	if _, ok := l.byID[e.ProposalID]; !ok {
		l.byID[e.ProposalID] = e
	}
}

// setOutcome writes the observed outcome onto the matching entry and
// returns a copy. False if no entry exists for the id.
func (l *learningLog) setOutcome(proposalID string, outcome float64) (domain.LearningEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[proposalID]
	if !ok {
		return domain.LearningEntry{}, false
	}
	v := outcome
	e.Outcome = &v
	return *e, true
}

func (l *learningLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *learningLog) snapshot() []*domain.LearningEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.LearningEntry, len(l.entries))
	for i, e := range l.entries {
		c := *e
		if e.Outcome != nil {
			v := *e.Outcome
			c.Outcome = &v
		}
		out[i] = &c
	}
	return out
}

// ─── Engine surface ─────────────────────────────────────────────────────────

// LearningData returns all recorded learning entries, oldest first.
func (e *Engine) LearningData() []*domain.LearningEntry {
	return e.learning.snapshot()
}

// RecordOutcome reconciles an executed override with its observed outcome
// (0..1) and computes the confidence adjustment. Deliberately a no-op when
// the proposal, its outcome, or its learning entry is missing: outcome
// reconciliation callbacks may race with external measurement pipelines and
// must not fail on stale ids. Out-of-range outcomes are ignored the same
// way.
func (e *Engine) RecordOutcome(proposalID string, actualOutcome float64) {
	if actualOutcome < 0 || actualOutcome > 1 {
		log.Printf("[governance] ignoring out-of-range outcome %.3f for %s", actualOutcome, proposalID)
		return
	}

	st, err := e.state(proposalID)
	if err != nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	p := st.prop
	if p.Outcome == nil {
		return
	}

	v := actualOutcome
	p.Outcome.LearningData.ActualOutcome = &v

	if adj, ok := adjustmentFor(p.Outcome.LearningData.OriginalConfidence, actualOutcome); ok {
		p.Outcome.LearningData.Adjustment = adj
		direction := "raise"
		if adj < 0 {
			direction = "lower"
		}
		metrics.LearningAdjustments.WithLabelValues(direction).Inc()
		log.Printf("[governance] proposal %s outcome %.2f → adjustment %+.1f", proposalID, actualOutcome, adj)
	}

	if entry, ok := e.learning.setOutcome(proposalID, actualOutcome); ok && e.audit != nil {
		e.audit.LearningUpdated(&entry)
	}

	e.commitUpdate(p)
}
