package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/domain"
)

// Store is the write-behind audit sink for the governance engine. Sink
// failures are logged, never propagated: the in-memory engine has already
// committed and remains authoritative.
type Store struct {
	db *DB
}

// NewStore creates a governance audit store on an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// ─── AuditSink ──────────────────────────────────────────────────────────────

// ProposalCreated persists a new proposal.
func (s *Store) ProposalCreated(p *domain.Proposal) {
	if err := s.upsertProposal(p); err != nil {
		log.Printf("[sqlite] persist proposal %s: %v", p.ID, err)
	}
}

// ProposalUpdated persists a proposal state change.
func (s *Store) ProposalUpdated(p *domain.Proposal) {
	if err := s.upsertProposal(p); err != nil {
		log.Printf("[sqlite] update proposal %s: %v", p.ID, err)
	}
}

// VoteRecorded appends a vote to the audit log.
func (s *Store) VoteRecorded(v *domain.Vote) {
	_, err := s.db.db.Exec(
		`INSERT INTO votes (id, proposal_id, voter, choice, stake, reasoning, cast_at, tx_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ProposalID, v.Voter, v.Choice.String(), v.Stake.String(),
		v.Reasoning, v.CastAt.UnixMilli(), v.TxHash,
	)
	if err != nil {
		log.Printf("[sqlite] persist vote %s: %v", v.ID, err)
	}
}

// LearningRecorded persists a new learning entry.
func (s *Store) LearningRecorded(e *domain.LearningEntry) {
	_, err := s.db.db.Exec(
		`INSERT OR REPLACE INTO learning_entries
		 (proposal_id, agent_type, original_decision, human_override, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ProposalID, e.AgentType, e.OriginalDecision, e.HumanOverride,
		nullableFloat(e.Outcome), e.Timestamp.UnixMilli(),
	)
	if err != nil {
		log.Printf("[sqlite] persist learning entry %s: %v", e.ProposalID, err)
	}
}

// LearningUpdated writes a reconciled outcome onto its entry.
func (s *Store) LearningUpdated(e *domain.LearningEntry) {
	_, err := s.db.db.Exec(
		`UPDATE learning_entries SET outcome = ? WHERE proposal_id = ?`,
		nullableFloat(e.Outcome), e.ProposalID,
	)
	if err != nil {
		log.Printf("[sqlite] update learning entry %s: %v", e.ProposalID, err)
	}
}

func (s *Store) upsertProposal(p *domain.Proposal) error {
	agentJSON, err := marshalNullable(p.AgentDecision)
	if err != nil {
		return err
	}
	paramJSON, err := marshalNullable(p.ParameterChange)
	if err != nil {
		return err
	}
	outcomeJSON, err := marshalNullable(p.Outcome)
	if err != nil {
		return err
	}

	var execTime any
	if !p.ExecutionTime.IsZero() {
		execTime = p.ExecutionTime.UnixMilli()
	}

	_, err = s.db.db.Exec(
		`INSERT INTO proposals
		 (id, kind, title, description, proposer, agent_decision, proposed_override,
		  parameter_change, power_for, power_against, power_abstain, quorum, threshold,
		  status, start_time, end_time, execution_time, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		  power_for = excluded.power_for,
		  power_against = excluded.power_against,
		  power_abstain = excluded.power_abstain,
		  status = excluded.status,
		  execution_time = excluded.execution_time,
		  outcome = excluded.outcome`,
		p.ID, p.Kind.String(), p.Title, p.Description, p.Proposer,
		agentJSON, p.ProposedOverride, paramJSON,
		p.Power.For.String(), p.Power.Against.String(), p.Power.Abstain.String(),
		p.Quorum.String(), p.Threshold.String(),
		p.Status.String(), p.StartTime.UnixMilli(), p.EndTime.UnixMilli(),
		execTime, outcomeJSON,
	)
	return err
}

// ─── Restore ────────────────────────────────────────────────────────────────

// Snapshot is everything needed to rebuild the engine's state at startup.
type Snapshot struct {
	Proposals []*domain.Proposal
	Votes     map[string][]*domain.Vote // proposal id → votes in cast order
	Learning  []*domain.LearningEntry
}

// Load reads the full governance state back out of the audit log.
func (s *Store) Load() (*Snapshot, error) {
	snap := &Snapshot{Votes: make(map[string][]*domain.Vote)}

	rows, err := s.db.db.Query(
		`SELECT id, kind, title, description, proposer, agent_decision, proposed_override,
		        parameter_change, power_for, power_against, power_abstain, quorum, threshold,
		        status, start_time, end_time, execution_time, outcome
		 FROM proposals ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		snap.Proposals = append(snap.Proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}

	vrows, err := s.db.db.Query(
		`SELECT id, proposal_id, voter, choice, stake, reasoning, cast_at, tx_hash
		 FROM votes ORDER BY cast_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var v domain.Vote
		var choice, stakeStr string
		var castAt int64
		if err := vrows.Scan(&v.ID, &v.ProposalID, &v.Voter, &choice, &stakeStr,
			&v.Reasoning, &castAt, &v.TxHash); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		c, ok := domain.ParseVoteChoice(choice)
		if !ok {
			return nil, fmt.Errorf("vote %s: bad choice %q", v.ID, choice)
		}
		v.Choice = c
		v.Stake, err = decimal.NewFromString(stakeStr)
		if err != nil {
			return nil, fmt.Errorf("vote %s: bad stake %q", v.ID, stakeStr)
		}
		v.CastAt = time.UnixMilli(castAt)
		snap.Votes[v.ProposalID] = append(snap.Votes[v.ProposalID], &v)
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}

	lrows, err := s.db.db.Query(
		`SELECT proposal_id, agent_type, original_decision, human_override, outcome, created_at
		 FROM learning_entries ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load learning entries: %w", err)
	}
	defer lrows.Close()

	for lrows.Next() {
		var e domain.LearningEntry
		var outcome sql.NullFloat64
		var created int64
		if err := lrows.Scan(&e.ProposalID, &e.AgentType, &e.OriginalDecision,
			&e.HumanOverride, &outcome, &created); err != nil {
			return nil, fmt.Errorf("scan learning entry: %w", err)
		}
		if outcome.Valid {
			v := outcome.Float64
			e.Outcome = &v
		}
		e.Timestamp = time.UnixMilli(created)
		snap.Learning = append(snap.Learning, &e)
	}
	return snap, lrows.Err()
}

func scanProposal(rows *sql.Rows) (*domain.Proposal, error) {
	var p domain.Proposal
	var kind, status string
	var forStr, againstStr, abstainStr, quorumStr, thresholdStr string
	var agentJSON, paramJSON, outcomeJSON sql.NullString
	var start, end int64
	var exec sql.NullInt64

	err := rows.Scan(&p.ID, &kind, &p.Title, &p.Description, &p.Proposer,
		&agentJSON, &p.ProposedOverride, &paramJSON,
		&forStr, &againstStr, &abstainStr, &quorumStr, &thresholdStr,
		&status, &start, &end, &exec, &outcomeJSON)
	if err != nil {
		return nil, fmt.Errorf("scan proposal: %w", err)
	}

	k, ok := domain.ParseProposalKind(kind)
	if !ok {
		return nil, fmt.Errorf("proposal %s: bad kind %q", p.ID, kind)
	}
	p.Kind = k

	st, ok := domain.ParseProposalStatus(status)
	if !ok {
		return nil, fmt.Errorf("proposal %s: bad status %q", p.ID, status)
	}
	p.Status = st

	for _, d := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.Power.For, forStr}, {&p.Power.Against, againstStr},
		{&p.Power.Abstain, abstainStr}, {&p.Quorum, quorumStr}, {&p.Threshold, thresholdStr},
	} {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return nil, fmt.Errorf("proposal %s: bad decimal %q", p.ID, d.src)
		}
		*d.dst = v
	}

	p.StartTime = time.UnixMilli(start)
	p.EndTime = time.UnixMilli(end)
	if exec.Valid {
		p.ExecutionTime = time.UnixMilli(exec.Int64)
	}

	if agentJSON.Valid && agentJSON.String != "" {
		p.AgentDecision = &domain.DecisionSnapshot{}
		if err := json.Unmarshal([]byte(agentJSON.String), p.AgentDecision); err != nil {
			return nil, fmt.Errorf("proposal %s: agent snapshot: %w", p.ID, err)
		}
	}
	if paramJSON.Valid && paramJSON.String != "" {
		p.ParameterChange = &domain.ParameterChange{}
		if err := json.Unmarshal([]byte(paramJSON.String), p.ParameterChange); err != nil {
			return nil, fmt.Errorf("proposal %s: parameter change: %w", p.ID, err)
		}
	}
	if outcomeJSON.Valid && outcomeJSON.String != "" {
		p.Outcome = &domain.Outcome{}
		if err := json.Unmarshal([]byte(outcomeJSON.String), p.Outcome); err != nil {
			return nil, fmt.Errorf("proposal %s: outcome: %w", p.ID, err)
		}
	}

	return &p, nil
}

func marshalNullable(v any) (any, error) {
	switch x := v.(type) {
	case *domain.DecisionSnapshot:
		if x == nil {
			return nil, nil
		}
	case *domain.ParameterChange:
		if x == nil {
			return nil, nil
		}
	case *domain.Outcome:
		if x == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return string(b), nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
