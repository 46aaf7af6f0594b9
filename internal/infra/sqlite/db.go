// Package sqlite provides the durable audit store for governance state.
// Uses WAL mode for concurrent reads and crash-safe writes. The engine
// stays authoritative in memory; this store is a write-behind audit log
// replayed at daemon start.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/governance.db.
// Enables WAL mode, foreign keys, and a 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "governance.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS proposals (
			id                TEXT PRIMARY KEY,
			kind              TEXT NOT NULL,
			title             TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			proposer          TEXT NOT NULL,
			agent_decision    TEXT,
			proposed_override TEXT NOT NULL DEFAULT '',
			parameter_change  TEXT,
			power_for         TEXT NOT NULL DEFAULT '0',
			power_against     TEXT NOT NULL DEFAULT '0',
			power_abstain     TEXT NOT NULL DEFAULT '0',
			quorum            TEXT NOT NULL,
			threshold         TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'ACTIVE',
			start_time        INTEGER NOT NULL,
			end_time          INTEGER NOT NULL,
			execution_time    INTEGER,
			outcome           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_proposer ON proposals(proposer)`,

		// Vote log: append-only, one vote per (proposal, voter)
		`CREATE TABLE IF NOT EXISTS votes (
			id          TEXT PRIMARY KEY,
			proposal_id TEXT NOT NULL REFERENCES proposals(id),
			voter       TEXT NOT NULL,
			choice      TEXT NOT NULL,
			stake       TEXT NOT NULL,
			reasoning   TEXT NOT NULL DEFAULT '',
			cast_at     INTEGER NOT NULL,
			tx_hash     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_voter ON votes(proposal_id, lower(voter))`,
		`CREATE INDEX IF NOT EXISTS idx_votes_proposal ON votes(proposal_id)`,

		// Learning feedback entries for executed agent overrides
		`CREATE TABLE IF NOT EXISTS learning_entries (
			proposal_id       TEXT PRIMARY KEY,
			agent_type        TEXT NOT NULL,
			original_decision TEXT NOT NULL,
			human_override    TEXT NOT NULL,
			outcome           REAL,
			created_at        INTEGER NOT NULL
		)`,
	}

	for i, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
