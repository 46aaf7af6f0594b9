// Package metrics provides Prometheus metrics for the Sentinel governance
// engine: proposals, votes, stake, executions, and learning feedback.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Proposals ──────────────────────────────────────────────────────────────

// ProposalsCreated counts proposals created, by kind.
var ProposalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "proposals_created_total",
	Help:      "Total governance proposals created.",
}, []string{"kind"})

// ProposalsExecuted counts execution dispatches, by kind and result.
var ProposalsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "proposals_executed_total",
	Help:      "Total execution dispatches, by kind and result.",
}, []string{"kind", "result"})

// ─── Voting ─────────────────────────────────────────────────────────────────

// VotesCast counts recorded votes, by choice.
var VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "votes_cast_total",
	Help:      "Total votes recorded.",
}, []string{"choice"})

// StakeLocked tracks the cumulative stake locked behind votes.
var StakeLocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "stake_locked_total",
	Help:      "Cumulative stake locked by the ledger for votes.",
})

// ─── Learning feedback ──────────────────────────────────────────────────────

// LearningAdjustments counts confidence adjustments, by direction.
var LearningAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "learning_adjustments_total",
	Help:      "Confidence-weighting adjustments applied after outcome reconciliation.",
}, []string{"direction"})

// ─── Agents ─────────────────────────────────────────────────────────────────

// AgentDecisions counts simulated agent decisions, by agent type.
var AgentDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sentinel",
	Name:      "agent_decisions_total",
	Help:      "Decisions produced by the agent registry.",
}, []string{"agent_type"})

// ─── API ────────────────────────────────────────────────────────────────────

// RequestDuration tracks HTTP handler latency in seconds.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sentinel",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})
