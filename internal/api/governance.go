package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

// proposalView decorates a proposal with display-only voting state. Status
// stays ACTIVE past the deadline until execute is called; voting_ended tells
// dashboards the window has closed without a state transition.
type proposalView struct {
	*domain.Proposal
	VotingEnded bool `json:"voting_ended"`
}

func (s *Server) view(p *domain.Proposal) proposalView {
	return proposalView{Proposal: p, VotingEnded: p.VotingEnded(time.Now())}
}

// ─── Proposal creation ──────────────────────────────────────────────────────

type createOverrideRequest struct {
	Proposer         string                  `json:"proposer"`
	AgentDecision    domain.DecisionSnapshot `json:"agent_decision"`
	ProposedOverride string                  `json:"proposed_override"`
	Reasoning        string                  `json:"reasoning"`
}

func (s *Server) handleCreateOverride(w http.ResponseWriter, r *http.Request) {
	var req createOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := s.engine.CreateAgentOverrideProposal(req.Proposer, req.AgentDecision, req.ProposedOverride, req.Reasoning)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(p))
}

type createParameterRequest struct {
	Proposer      string `json:"proposer"`
	Parameter     string `json:"parameter"`
	CurrentValue  string `json:"current_value"`
	ProposedValue string `json:"proposed_value"`
	Reasoning     string `json:"reasoning"`
}

func (s *Server) handleCreateParameter(w http.ResponseWriter, r *http.Request) {
	var req createParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := s.engine.CreateParameterChangeProposal(req.Proposer, req.Parameter, req.CurrentValue, req.ProposedValue, req.Reasoning)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(p))
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	var list []*domain.Proposal
	switch r.URL.Query().Get("status") {
	case "", "active":
		list = s.engine.ActiveProposals()
	case "all":
		list = s.engine.AllProposals()
	default:
		writeError(w, http.StatusBadRequest, "status must be 'active' or 'all'")
		return
	}

	views := make([]proposalView, len(list))
	for i, p := range list {
		views[i] = s.view(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": views})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetProposal(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleProposalVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.engine.ProposalVotes(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": votes})
}

func (s *Server) handleUserVotes(w http.ResponseWriter, r *http.Request) {
	voter := r.URL.Query().Get("voter")
	if voter == "" {
		writeError(w, http.StatusBadRequest, "voter query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": s.engine.UserVotes(voter)})
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	tally, err := s.engine.Tally(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GovernanceStats())
}

func (s *Server) handleLearning(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.engine.LearningData()})
}

// ─── Voting ─────────────────────────────────────────────────────────────────

type castVoteRequest struct {
	Voter     string `json:"voter"`
	Choice    string `json:"choice"`
	Stake     string `json:"stake"`
	Reasoning string `json:"reasoning"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	choice, ok := domain.ParseVoteChoice(req.Choice)
	if !ok {
		writeError(w, http.StatusBadRequest, "choice must be for, against, or abstain")
		return
	}
	stakeAmount, err := decimal.NewFromString(req.Stake)
	if err != nil {
		writeError(w, http.StatusBadRequest, "stake must be a decimal string")
		return
	}

	vote, err := s.engine.CastVote(r.Context(), chi.URLParam(r, "id"), req.Voter, choice, stakeAmount, req.Reasoning)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

// ─── Execution & reconciliation ─────────────────────────────────────────────

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	passed, err := s.engine.ExecuteProposal(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{"proposal_id": id, "passed": passed}
	if p, err := s.engine.GetProposal(id); err == nil {
		resp["status"] = p.Status.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type recordOutcomeRequest struct {
	ActualOutcome float64 `json:"actual_outcome"`
}

func (s *Server) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req recordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Reconciliation is a deliberate no-op on unknown or unexecuted
	// proposals; it always acknowledges.
	s.engine.RecordOutcome(chi.URLParam(r, "id"), req.ActualOutcome)

	// Reconciled outcomes shift agent trust immediately.
	if s.registry != nil {
		s.registry.Recalibrate(s.engine.AllProposals())
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
