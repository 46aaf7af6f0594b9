package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("SENTINEL_HOME", t.TempDir())

	cfg := DefaultConfig()
	if cfg.API.Host != "127.0.0.1" || cfg.API.Port != 8741 {
		t.Fatalf("api defaults = %+v", cfg.API)
	}
	if cfg.Governance.Quorum != "500" || cfg.Governance.Threshold != "0.5" {
		t.Fatalf("governance defaults = %+v", cfg.Governance)
	}
	if cfg.Ledger.LockDays != 7 || cfg.Ledger.TimeoutSeconds != 30 {
		t.Fatalf("ledger defaults = %+v", cfg.Ledger)
	}
	if !cfg.Telemetry.Prometheus {
		t.Fatal("prometheus should default on")
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("SENTINEL_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 8741 {
		t.Fatalf("port = %d", cfg.API.Port)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SENTINEL_HOME", home)

	content := `
[api]
port = 9000

[governance]
quorum = "1200"
threshold = "0.66"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.API.Port)
	}
	// Host untouched by the partial file.
	if cfg.API.Host != "127.0.0.1" {
		t.Fatalf("host = %q", cfg.API.Host)
	}
	if cfg.Governance.Quorum != "1200" || cfg.Governance.Threshold != "0.66" {
		t.Fatalf("governance = %+v", cfg.Governance)
	}
	if cfg.Governance.MaxActiveProposals != 50 {
		t.Fatalf("max active proposals = %d", cfg.Governance.MaxActiveProposals)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("SENTINEL_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Node.ID = "node-test"
	cfg.Governance.Quorum = "750"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Node.ID != "node-test" || loaded.Governance.Quorum != "750" {
		t.Fatalf("round trip = %+v", loaded)
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SENTINEL_HOME", home)

	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("not = [toml"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}
