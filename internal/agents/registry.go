// Package agents provides the agent-registry collaborator: simulated
// treasury agents that produce the decision snapshots governance proposals
// are created from, and the confidence calibration that consumes the
// engine's learning adjustments.
//
// The agents are simulations — deterministic pseudo-models, no real
// inference. The governance engine only ever sees an immutable
// DecisionSnapshot taken at proposal-creation time.
package agents

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/sentinel-dao/sentinel/internal/domain"
	"github.com/sentinel-dao/sentinel/internal/infra/metrics"
)

// Agent produces decisions for a treasury concern.
type Agent interface {
	ID() string
	Type() string
	Actions() []string
	Decide(action string, params map[string]string) (domain.DecisionSnapshot, error)
}

// Registry holds the known agents and their trust calibration.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent // keyed by agent type
	calib  *Calibration
}

// NewRegistry creates a registry with the four standard treasury agents.
// seed makes the simulated decisions reproducible.
func NewRegistry(seed int64) *Registry {
	r := &Registry{
		agents: make(map[string]Agent),
		calib:  NewCalibration(),
	}
	rng := rand.New(rand.NewSource(seed))
	for _, a := range []Agent{
		newSimAgent("agent-trader-01", "trader", rng, map[string]decisionTemplate{
			"optimize_portfolio": {"shift %d%% of stables into short-duration yield", 0.62, 0.93, "risk score below target band"},
			"rebalance":          {"rebalance %d%% toward target allocation", 0.80, 0.90, "drift from target allocation exceeded tolerance"},
			"risk_analysis":      {"reduce exposure by %d%% pending volatility review", 0.55, 0.85, "VaR above configured ceiling"},
			"yield_prediction":   {"rotate %d%% into predicted top-yield pool", 0.50, 0.80, "forecast spread over benchmark"},
			"execute_trade":      {"execute staged trade batch %d", 0.70, 0.95, "orders matched against approved plan"},
		}),
		newSimAgent("agent-compliance-01", "compliance", rng, map[string]decisionTemplate{
			"screen_transaction": {"hold transfer batch %d for enhanced review", 0.75, 0.97, "counterparty matched watchlist heuristic"},
			"audit":              {"flag %d ledger entries for manual audit", 0.60, 0.88, "entries deviate from policy template"},
		}),
		newSimAgent("agent-supervisor-01", "supervisor", rng, map[string]decisionTemplate{
			"review_decision": {"approve downstream decision %d with constraints", 0.65, 0.92, "aggregate agent confidence within band"},
		}),
		newSimAgent("agent-advisor-01", "advisor", rng, map[string]decisionTemplate{
			"crisis_simulation": {"raise reserve buffer by %d%% under stress scenario", 0.58, 0.86, "flash-crash scenario breached liquidity floor"},
			"recommend":         {"recommend strategy variant %d to council", 0.55, 0.82, "historical backtest favored variant"},
		}),
	} {
		r.agents[a.Type()] = a
	}
	return r
}

// Get returns the agent for a type.
func (r *Registry) Get(agentType string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[strings.ToLower(agentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, agentType)
	}
	return a, nil
}

// List returns all registered agents sorted by type.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })
	return out
}

// Decide asks an agent for a decision and weights its confidence by the
// agent type's current trust calibration.
func (r *Registry) Decide(agentType, action string, params map[string]string) (domain.DecisionSnapshot, error) {
	a, err := r.Get(agentType)
	if err != nil {
		return domain.DecisionSnapshot{}, err
	}
	snap, err := a.Decide(action, params)
	if err != nil {
		return domain.DecisionSnapshot{}, err
	}
	snap.Confidence = r.calib.Weighted(snap.AgentType, snap.Confidence)
	metrics.AgentDecisions.WithLabelValues(snap.AgentType).Inc()
	return snap, nil
}

// Recalibrate recomputes trust weights from executed proposals. Callers
// pass the engine's current proposal list; only executed agent overrides
// with a reconciled outcome contribute.
func (r *Registry) Recalibrate(proposals []*domain.Proposal) {
	r.calib.Recalibrate(proposals)
}

// TrustWeights returns the current per-agent-type trust weights.
func (r *Registry) TrustWeights() map[string]float64 {
	return r.calib.Weights()
}

// ─── Simulated agent ────────────────────────────────────────────────────────

// decisionTemplate parameterizes one simulated action: a decision format
// string with one integer slot, a confidence range, and canned reasoning.
type decisionTemplate struct {
	decisionFmt string
	minConf     float64
	maxConf     float64
	reasoning   string
}

type simAgent struct {
	id        string
	agentType string
	mu        sync.Mutex
	rng       *rand.Rand
	templates map[string]decisionTemplate
}

func newSimAgent(id, agentType string, rng *rand.Rand, templates map[string]decisionTemplate) *simAgent {
	return &simAgent{id: id, agentType: agentType, rng: rng, templates: templates}
}

func (a *simAgent) ID() string   { return a.id }
func (a *simAgent) Type() string { return a.agentType }

func (a *simAgent) Actions() []string {
	out := make([]string, 0, len(a.templates))
	for k := range a.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (a *simAgent) Decide(action string, params map[string]string) (domain.DecisionSnapshot, error) {
	tpl, ok := a.templates[action]
	if !ok {
		return domain.DecisionSnapshot{}, fmt.Errorf("%w: %s has no action %q", domain.ErrUnknownAction, a.agentType, action)
	}

	a.mu.Lock()
	n := 1 + a.rng.Intn(40)
	conf := tpl.minConf + a.rng.Float64()*(tpl.maxConf-tpl.minConf)
	a.mu.Unlock()

	reasoning := tpl.reasoning
	if note := params["note"]; note != "" {
		reasoning = reasoning + "; " + note
	}

	return domain.DecisionSnapshot{
		AgentID:    a.id,
		AgentType:  a.agentType,
		Decision:   fmt.Sprintf(tpl.decisionFmt, n),
		Confidence: conf,
		Reasoning:  reasoning,
	}, nil
}
