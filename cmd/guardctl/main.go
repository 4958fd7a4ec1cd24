// Guardctl is the command-line dashboard for the conveyor safety backend.
// It queries event history and zones over HTTP, sends control commands with
// operator confirmation, and runs a live dashboard fed by the event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/config"
	"github.com/large-farva/conveyor-guard/internal/ctl"
	"github.com/large-farva/conveyor-guard/internal/logging"
	"github.com/large-farva/conveyor-guard/internal/models"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "Path to config TOML or YAML")
		host       = pflag.StringP("url", "u", "", "Backend base URL (e.g. http://192.168.8.1:8000)")
		jsonOut    = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		imageSize  = pflag.String("image-size", "", "Video frame size WxH used for zone coordinates")
		logLevel   = pflag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --limit are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *host != "" {
		cfg.Backend.URL = *host
	}
	if *imageSize != "" {
		size, err := models.ParseImageSize(*imageSize)
		if err != nil {
			fatal(err)
		}
		cfg.Dashboard.ImageWidth, cfg.Dashboard.ImageHeight = size.Width, size.Height
	}

	logger, err := logging.New(*logLevel, cfg.Logging.Format, "guardctl")
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := ctl.NewEnv(cfg, *jsonOut, logger)
	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(ctx, env)

	case "health":
		err = ctl.Health(ctx, env)

	case "version":
		err = ctl.VersionInfo(env)

	case "config":
		err = ctl.Config(env)

	case "video-url":
		err = ctl.VideoURL(env)

	case "logs":
		opts := ctl.LogsOptions{}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.IntVar(&opts.Limit, "limit", 0, "Number of events to fetch (1-200)")
		logFlags.StringSliceVar(&opts.Risk, "risk", nil, "Only show these risk levels (e.g. --risk critical,high)")
		logFlags.StringSliceVar(&opts.Events, "event", nil, "Only show these event types (e.g. --event critical_falling)")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(ctx, env, opts)

	case "zones":
		err = ctl.Zones(ctx, env)

	// ── Zone commands ─────────────────────────────────────────────
	case "zone-create":
		var name string
		zoneFlags := pflag.NewFlagSet("zone-create", pflag.ContinueOnError)
		zoneFlags.StringVar(&name, "name", "", "Zone name (default: Zone N)")
		_ = zoneFlags.Parse(subArgs)
		points, perr := ctl.ParsePoints(zoneFlags.Args())
		if perr != nil {
			fatal(perr)
		}
		err = ctl.ZoneCreate(ctx, env, name, points)

	case "zone-update":
		var name string
		zoneFlags := pflag.NewFlagSet("zone-update", pflag.ContinueOnError)
		zoneFlags.StringVar(&name, "name", "", "New zone name (default: keep)")
		_ = zoneFlags.Parse(subArgs)
		if zoneFlags.NArg() < 1 {
			fatal(errors.New("zone-update needs a zone id"))
		}
		points, perr := ctl.ParsePoints(zoneFlags.Args()[1:])
		if perr != nil {
			fatal(perr)
		}
		err = ctl.ZoneUpdate(ctx, env, zoneFlags.Arg(0), name, points)

	case "zone-delete":
		if len(subArgs) < 1 {
			fatal(errors.New("zone-delete needs a zone id"))
		}
		err = ctl.ZoneDelete(ctx, env, subArgs[0])

	// ── Control commands ──────────────────────────────────────────
	case "start-auto", "start-maintenance", "stop", "reset":
		kind, _ := api.ParseControlKind(cmd)
		opts := ctl.ControlOptions{Next: ctl.ScanLines(os.Stdin)}
		ctrlFlags := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		ctrlFlags.BoolVarP(&opts.Yes, "yes", "y", false, "Accept a confirmation request without asking")
		_ = ctrlFlags.Parse(subArgs)
		err = ctl.Control(ctx, env, kind, opts)

	// ── Live ──────────────────────────────────────────────────────
	case "watch":
		opts := ctl.WatchOptions{}
		watchFlags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
		watchFlags.StringSliceVar(&opts.Filter, "filter", nil, "Frame kinds to show (log, status, raw)")
		_ = watchFlags.Parse(subArgs)
		err = ctl.Watch(ctx, env, opts)

	case "dashboard":
		opts := ctl.DashboardOptions{In: os.Stdin}
		dashFlags := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
		dashFlags.BoolVarP(&opts.Yes, "yes", "y", false, "Accept every confirmation request without asking")
		dashFlags.IntVar(&opts.Logs, "rows", 15, "Number of events shown in the panel")
		_ = dashFlags.Parse(subArgs)
		err = ctl.Dashboard(ctx, env, opts)

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Print(`
  guardctl — conveyor safety dashboard CLI

  USAGE
    guardctl [flags] <command> [command-flags]

  COMMANDS (query)
    status              Show operation mode and lock state
    health              Check that the REST API and event stream answer
    version             Show CLI version information
    config              Show the effective configuration
    video-url           Print the live video feed URL
    logs                Show recent safety events
    zones               List danger zones

  COMMANDS (zones)
    zone-create X,Y X,Y X,Y ...        Create a zone from ratio points (0..1)
    zone-update ID X,Y X,Y X,Y ...     Replace the polygon of a zone
    zone-delete ID                     Delete a zone

  COMMANDS (control)
    start-auto          Start automatic mode (asks when the backend wants confirmation)
    start-maintenance   Start maintenance mode
    stop                Stop the conveyor
    reset               Release the lock after a critical event

  COMMANDS (live)
    watch               Stream live frames from the backend (Ctrl-C to stop)
    dashboard           Live dashboard driven by typed commands ('help' inside)

  GLOBAL FLAGS
    -c, --config PATH       Config file (.toml, .yaml or .yml)
    -u, --url URL           Backend base URL (default: http://127.0.0.1:8000)
        --json              Output raw JSON instead of formatted text
        --image-size WxH    Video frame size for zone coordinates (default: 640x480)
        --log-level LEVEL   Log level on stderr (default: warn)

  COMMAND FLAGS
    logs:
        --limit N           Number of events to fetch (1-200)
        --risk LEVELS       Only show these risk levels (comma-separated)
        --event TYPES       Only show these event types (e.g. critical_falling,loto_active)
        --tail              Stream live events

    zone-create, zone-update:
        --name NAME         Zone name

    start-auto, start-maintenance, stop, reset, dashboard:
    -y, --yes               Accept confirmation requests without asking

    watch:
        --filter KINDS      Frame kinds to show: log, status, raw

    dashboard:
        --rows N            Number of events shown (default: 15)

  EXAMPLES
    guardctl status
    guardctl --json logs --limit 20
    guardctl --url http://192.168.8.1:8000 watch
    guardctl logs --risk critical,high
    guardctl zone-create --name "Loading bay" 0.1,0.1 0.5,0.1 0.3,0.4
    guardctl zone-update 4f1c... --name Press 0.2,0.2 0.6,0.2 0.4,0.5
    guardctl start-auto --yes
    guardctl reset
    guardctl dashboard

`)
}
