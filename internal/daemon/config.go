// Package daemon manages the Sentinel daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	API        APIConfig        `toml:"api"`
	Governance GovernanceConfig `toml:"governance"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig identifies this node.
type NodeConfig struct {
	ID string `toml:"id"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// GovernanceConfig controls the governance engine's vote policy.
type GovernanceConfig struct {
	// Quorum is the minimum combined voting power for a meaningful vote.
	Quorum string `toml:"quorum"`
	// Threshold is the for/(for+against) fraction required to pass.
	Threshold string `toml:"threshold"`
	// MaxActiveProposals limits concurrent open proposals.
	MaxActiveProposals int `toml:"max_active_proposals"`
}

// LedgerConfig controls the stake-ledger collaborator.
type LedgerConfig struct {
	// LockDays is how long each vote's stake stays locked.
	LockDays int `toml:"lock_days"`
	// TimeoutSeconds bounds each lock call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := sentinelHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8741,
			CORSOrigins: []string{"*"},
		},
		Governance: GovernanceConfig{
			Quorum:             "500",
			Threshold:          "0.5",
			MaxActiveProposals: 50,
		},
		Ledger: LedgerConfig{
			LockDays:       7,
			TimeoutSeconds: 30,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "sentinel.log"),
		},
	}
}

// LoadConfig reads config from ~/.sentinel/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(sentinelHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.sentinel/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(sentinelHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// sentinelHome returns the Sentinel data directory.
func sentinelHome() string {
	if env := os.Getenv("SENTINEL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sentinel")
}

// SentinelHome is exported for use by other packages.
func SentinelHome() string {
	return sentinelHome()
}
