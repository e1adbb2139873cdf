package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/statecraft/internal/api"
	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/persistence"
)

// saveEvery is how many turns pass between world-state saves.
const saveEvery = 10

func newRunCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation in real time with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP API port")
	return cmd
}

func runServer(cfg config.Config) error {
	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Server.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		var err error
		db, err = persistence.Open(cfg.Server.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Server.DBPath)
	} else {
		slog.Warn("no db_path configured, history and saves disabled")
	}

	// ── Load or Seed World State ─────────────────────────────────────
	sim := engine.NewSimulation(cfg)
	eng := engine.NewEngine(cfg.TurnInterval)

	if db != nil && db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		ws, err := db.LoadWorldState(cfg.Economy.ResourceTypes)
		if err != nil {
			return err
		}
		if err := sim.Restore(ws); err != nil {
			return fmt.Errorf("restore world: %w", err)
		}
		eng.SetTurn(ws.Turn)
		if err := db.TruncateHistory(ws.Turn); err != nil {
			slog.Error("truncate history failed", "turn", ws.Turn, "error", err)
		}
	} else {
		slog.Info("no saved state found, seeding new world...")
		if err := sim.Seed(cfg); err != nil {
			return err
		}
		if db != nil {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("initial save failed", "error", err)
			}
		}
	}

	// ── Turn Observers ───────────────────────────────────────────────
	if db != nil {
		sim.OnTurnComplete(func(snap engine.TurnSnapshot) {
			if err := db.RecordTurn(snap); err != nil {
				slog.Error("record turn failed", "turn", snap.Turn, "error", err)
			}
			if snap.Turn%saveEvery == 0 {
				if err := db.SaveWorldState(sim); err != nil {
					slog.Error("periodic save failed", "turn", snap.Turn, "error", err)
				}
			}
		})
	}
	lastLevel := engine.HealthHealthy
	sim.OnTurnComplete(func(snap engine.TurnSnapshot) {
		if h := engine.Triage(snap); h.Level != lastLevel {
			slog.Warn("world health changed",
				"turn", snap.Turn,
				"from", lastLevel,
				"to", h.Level,
				"avg_unrest", fmt.Sprintf("%.3f", h.AvgUnrest),
				"lowest_stability", fmt.Sprintf("%.3f", h.LowestStability),
			)
			lastLevel = h.Level
		}
		slog.Debug("turn complete",
			"turn", snap.Turn,
			"wealth", humanize.Comma(int64(snap.Stats.TotalWealth)),
			"inflation", fmt.Sprintf("%.4f", snap.Stats.Inflation),
			"cycle", snap.Stats.Cycle,
		)
	})

	eng.OnTurn = func(turn int) { sim.EndTurn(turn) }

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("STATECRAFT_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("STATECRAFT_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Server.Port,
		AdminKey: adminKey,

		TrustedProxies: cfg.Server.TrustedProxies,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	stats := sim.Snapshot().Stats
	fmt.Printf("\n%d regions across %d nations, %s people, total wealth %s.\n",
		stats.Regions, stats.Nations,
		humanize.Comma(int64(stats.TotalPopulation)), humanize.Comma(int64(stats.TotalWealth)))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	if t := eng.Turn(); t > 0 {
		fmt.Printf("Resuming from turn %d\n", t)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	if db != nil {
		slog.Info("final save...")
		if err := db.SaveWorldState(sim); err != nil {
			return fmt.Errorf("final save: %w", err)
		}
		fmt.Println("Simulation stopped. World state saved.")
		return nil
	}
	fmt.Println("Simulation stopped.")
	return nil
}
