package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sentinel-dao/sentinel/internal/agents"
	"github.com/sentinel-dao/sentinel/internal/api"
	"github.com/sentinel-dao/sentinel/internal/governance"
	_ "github.com/sentinel-dao/sentinel/internal/infra/metrics" // Register Prometheus metrics
	"github.com/sentinel-dao/sentinel/internal/infra/sqlite"
	"github.com/sentinel-dao/sentinel/internal/stake"
)

// Daemon is the core Sentinel runtime. It wires together the governance
// engine, the simulated collaborators, persistence, and the API server.
type Daemon struct {
	Config   Config
	DB       *sqlite.DB
	Store    *sqlite.Store
	Engine   *governance.Engine
	Ledger   *stake.SimLedger
	Registry *agents.Registry
	Server   *api.Server

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	db, err := sqlite.Open(sentinelHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := sqlite.NewStore(db)

	engCfg, err := engineConfig(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	ledger := stake.NewSimLedger()
	engine := governance.NewEngine(engCfg, ledger)

	// Replay the audit log before attaching the sink, so restored records
	// do not round-trip back into the store.
	snap, err := store.Load()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("restore governance state: %w", err)
	}
	engine.Restore(snap.Proposals, snap.Votes, snap.Learning)
	if n := len(snap.Proposals); n > 0 {
		log.Printf("[daemon] restored %d proposals, %d learning entries", n, len(snap.Learning))
	}
	engine.SetAudit(store)

	registry := agents.NewRegistry(time.Now().UnixNano())
	registry.Recalibrate(engine.AllProposals())

	srv := api.NewServer(engine, registry)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Engine:   engine,
		Ledger:   ledger,
		Registry: registry,
		Server:   srv,
	}, nil
}

// engineConfig translates daemon config into engine config.
func engineConfig(cfg Config) (governance.Config, error) {
	engCfg := governance.DefaultConfig()

	if cfg.Governance.Quorum != "" {
		q, err := decimal.NewFromString(cfg.Governance.Quorum)
		if err != nil || q.Sign() < 0 {
			return engCfg, fmt.Errorf("config: invalid governance quorum %q", cfg.Governance.Quorum)
		}
		engCfg.DefaultQuorum = q
	}
	if cfg.Governance.Threshold != "" {
		t, err := decimal.NewFromString(cfg.Governance.Threshold)
		if err != nil || t.Sign() <= 0 || t.GreaterThan(decimal.NewFromInt(1)) {
			return engCfg, fmt.Errorf("config: governance threshold %q must be in (0,1]", cfg.Governance.Threshold)
		}
		engCfg.DefaultThreshold = t
	}
	if cfg.Governance.MaxActiveProposals > 0 {
		engCfg.MaxActiveProposals = cfg.Governance.MaxActiveProposals
	}
	if cfg.Ledger.LockDays > 0 {
		engCfg.StakeLockDuration = time.Duration(cfg.Ledger.LockDays) * 24 * time.Hour
	}
	if cfg.Ledger.TimeoutSeconds > 0 {
		engCfg.LedgerTimeout = time.Duration(cfg.Ledger.TimeoutSeconds) * time.Second
	}
	return engCfg, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("Sentinel governance serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop triggers a graceful shutdown.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Close releases daemon resources. Used by one-shot CLI commands.
func (d *Daemon) Close() error {
	return d.DB.Close()
}
