// Command outbreak runs an epidemic session and serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/talgya/outbreak/internal/api"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/persistence"
)

func main() {
	rt := config.FromEnv()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(rt.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(rt); err != nil {
		slog.Error("outbreak failed", "error", err)
		os.Exit(1)
	}
}

func run(rt config.Runtime) error {
	preset, err := rt.Preset()
	if err != nil {
		return fmt.Errorf("load preset: %w", err)
	}
	slog.Info("outbreak starting",
		"difficulty", preset.Name,
		"population", preset.Population,
		"initial_infected", preset.InitialInfected,
		"budget", preset.Budget,
	)

	// ── Entropy ───────────────────────────────────────────────────────
	var rng entropy.Source
	switch {
	case rt.Seed != 0:
		rng = entropy.NewSeeded(rt.Seed)
		slog.Info("entropy: seeded", "seed", rt.Seed)
	case rt.EntropyKey != "":
		rng = entropy.NewClient(rt.EntropyKey)
		slog.Info("entropy: random.org with crypto fallback")
	default:
		rng = entropy.Crypto{}
		slog.Info("entropy: crypto")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub()
	var opts []engine.Option

	// ── Database ──────────────────────────────────────────────────────
	var (
		db  *persistence.DB
		rec *persistence.Recorder
	)
	if rt.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(rt.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(rt.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", rt.DBPath)

		rec, err = persistence.NewRecorder(db, *preset)
		if err != nil {
			return err
		}
		opts = append(opts, rec.Options()...)
	} else {
		slog.Warn("OUTBREAK_DB empty, history recording disabled")
	}

	// ── Simulation ────────────────────────────────────────────────────
	srv := api.NewServer(nil, hub, rt.Port, rt.AdminKey)
	opts = append(opts, srv.Hooks()...)

	sim, err := engine.NewSimulation(*preset, rng, opts...)
	if err != nil {
		return fmt.Errorf("new simulation: %w", err)
	}
	runner := engine.NewRunner(sim, rt.FrameRate)

	// ── HTTP API ──────────────────────────────────────────────────────
	srv.Runner = runner
	srv.DB = db
	if rec != nil {
		srv.SessionID = rec.SessionID()
	}
	if rt.AdminKey == "" {
		slog.Warn("OUTBREAK_ADMIN_KEY not set, control endpoints will be disabled")
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Printf("\nOutbreak is live: %d people, %d infected, budget %s.\n",
		sim.Pop.Len(), preset.InitialInfected, sim.Ledger.BudgetString())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", rt.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	var (
		wg     sync.WaitGroup
		simErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		// A halted simulation takes the whole process down with it.
		if simErr = runner.Run(ctx); simErr != nil {
			cancel()
		}
	}()

	err = srv.Run(ctx)
	cancel()
	wg.Wait()
	if simErr != nil {
		return fmt.Errorf("simulation halted: %w", simErr)
	}

	if o := sim.Outcome(); o.Won() {
		fmt.Printf("Session ended: %s. The outbreak is over.\n", o)
	} else {
		fmt.Printf("Session stopped: %s.\n", o)
	}
	return err
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
