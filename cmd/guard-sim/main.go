// Guard-sim is a simulated conveyor safety backend. It serves the REST and
// WebSocket contract the dashboard consumes, holds zones in memory and, in
// demo mode, fabricates detection events. Shutdown is handled gracefully on
// SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/config"
	"github.com/large-farva/conveyor-guard/internal/logging"
	"github.com/large-farva/conveyor-guard/internal/sim"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to config TOML or YAML")
		bind       = pflag.String("bind", "", "HTTP bind address (default from config, 127.0.0.1:8000)")
		demo       = pflag.Bool("demo", true, "Fabricate detection events")
		interval   = pflag.Int("interval", 0, "Seconds between demo events (default from config)")
		confirm    = pflag.Bool("require-confirmation", false, "Ask for confirmation on every automatic start")
		bare       = pflag.Bool("bare-frames", false, "Push events as bare JSON objects instead of {type, data} envelopes")
		logLevel   = pflag.String("log-level", "", "Log level (default from config)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}
	if *bind != "" {
		cfg.Sim.Bind = *bind
	}
	if *interval > 0 {
		cfg.Sim.IntervalSeconds = *interval
	}
	if pflag.CommandLine.Changed("require-confirmation") {
		cfg.Sim.RequireConfirmation = *confirm
	}
	if pflag.CommandLine.Changed("bare-frames") {
		cfg.Sim.BareFrames = *bare
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, "guard-sim")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a := sim.New(sim.Options{
		Logger: logger,
		Cfg:    cfg.Sim,
		Demo:   *demo,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatal("guard-sim failed", zap.Error(err))
	}
}
