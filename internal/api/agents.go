package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type agentInfo struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Actions     []string `json:"actions"`
	TrustWeight float64  `json:"trust_weight"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	// Weights reflect all reconciled overrides to date.
	s.registry.Recalibrate(s.engine.AllProposals())
	weights := s.registry.TrustWeights()

	var out []agentInfo
	for _, a := range s.registry.List() {
		weight, ok := weights[a.Type()]
		if !ok {
			weight = 1.0
		}
		out = append(out, agentInfo{
			ID:          a.ID(),
			Type:        a.Type(),
			Actions:     a.Actions(),
			TrustWeight: weight,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

type decideRequest struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

func (s *Server) handleAgentDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Calibrate before deciding so the returned confidence already carries
	// the learning-adjusted trust weight.
	s.registry.Recalibrate(s.engine.AllProposals())

	snap, err := s.registry.Decide(chi.URLParam(r, "type"), req.Action, req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
