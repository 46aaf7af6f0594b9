package agents

import (
	"sync"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

// Trust weight bounds. A weight of 1.0 means raw agent confidence is taken
// as-is; reconciled override outcomes move it within these bounds.
const (
	baseTrust = 1.0
	minTrust  = 0.5
	maxTrust  = 1.5
)

// Calibration turns accumulated learning adjustments into per-agent-type
// trust weights. This is the downstream consumer of the governance engine's
// feedback loop: each reconciled override shifts how much that agent type's
// confidence is trusted on future decisions.
type Calibration struct {
	mu      sync.RWMutex
	weights map[string]float64
}

// NewCalibration starts every agent type at base trust.
func NewCalibration() *Calibration {
	return &Calibration{weights: make(map[string]float64)}
}

// Recalibrate recomputes all trust weights from executed proposals.
// Idempotent: weights are derived from the full proposal set each time, not
// incrementally, so replays and retries cannot double-count.
func (c *Calibration) Recalibrate(proposals []*domain.Proposal) {
	sums := make(map[string]float64)
	for _, p := range proposals {
		if p.Kind != domain.KindAgentOverride || p.Outcome == nil || p.AgentDecision == nil {
			continue
		}
		if p.Outcome.LearningData.ActualOutcome == nil {
			continue
		}
		sums[p.AgentDecision.AgentType] += p.Outcome.LearningData.Adjustment
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = make(map[string]float64, len(sums))
	for agentType, sum := range sums {
		c.weights[agentType] = clamp(baseTrust+sum, minTrust, maxTrust)
	}
}

// Weight returns the trust weight for an agent type.
func (c *Calibration) Weight(agentType string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if w, ok := c.weights[agentType]; ok {
		return w
	}
	return baseTrust
}

// Weighted applies the agent type's trust weight to a raw confidence,
// clamped back into [0,1].
func (c *Calibration) Weighted(agentType string, confidence float64) float64 {
	return clamp(confidence*c.Weight(agentType), 0, 1)
}

// Weights returns a copy of all non-default weights.
func (c *Calibration) Weights() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
