// Package sim is a simulated factory-safety backend. It serves the same
// HTTP and WebSocket contract as the real service: event history, zone CRUD,
// conveyor control with operator confirmation and lock/reset, and a push
// stream of events and status changes. Events are fabricated by a demo
// runner; zones live in memory.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/config"
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/telemetry"
	"github.com/large-farva/conveyor-guard/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *zap.Logger
	Cfg    config.SimConfig
	// Demo enables the event generator.
	Demo bool
}

// App is the simulated backend process.
type App struct {
	log   *zap.Logger
	cfg   config.SimConfig
	demo  bool
	plant *Plant
	hub   *ws.Hub
	echo  *echo.Echo

	startedAt time.Time
}

// New builds the app and its routes. Call Run to serve, or use Handler with
// an httptest server.
func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		log:       log,
		cfg:       opts.Cfg,
		demo:      opts.Demo,
		plant:     NewPlant(),
		hub:       ws.NewHub(log.Named("hub")),
		startedAt: time.Now(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.errorHandler
	e.Use(middleware.Recover())
	a.registerRoutes(e)
	a.echo = e
	return a
}

// Plant exposes the simulated state, mostly for tests and the demo runner.
func (a *App) Plant() *Plant {
	return a.plant
}

// Hub exposes the push hub.
func (a *App) Hub() *ws.Hub {
	return a.hub
}

// Handler is the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.echo
}

// Start runs the hub and, when enabled, the demo runner. It returns
// immediately; both stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go a.hub.Run(ctx)
	if a.demo {
		r := NewRunner(a)
		if a.cfg.IntervalSeconds > 0 {
			r.Interval = time.Duration(a.cfg.IntervalSeconds) * time.Second
		}
		go r.Run(ctx)
	}
}

// Run listens on the configured bind address and serves until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	bind := a.cfg.Bind
	if bind == "" {
		bind = "127.0.0.1:8000"
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           a.echo,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.Start(ctx)
	a.log.Info("simulated backend listening",
		zap.String("addr", "http://"+ln.Addr().String()),
		zap.Bool("demo", a.demo),
		zap.Bool("require_confirmation", a.cfg.RequireConfirmation),
		zap.Bool("bare_frames", a.cfg.BareFrames),
	)

	go func() {
		<-ctx.Done()
		a.log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Emit records an event, locks the plant on a critical one, and pushes both
// to every connected dashboard.
func (a *App) Emit(e models.LogEntry) models.LogEntry {
	e = a.plant.Record(e)
	a.pushLog(e)
	a.log.Debug("event emitted",
		zap.String("id", e.ID),
		zap.String("event_type", string(e.EventType)),
		zap.String("risk_level", string(e.RiskLevel)),
	)

	switch e.EventType {
	case models.EventCriticalFalling, models.EventCriticalSensor:
		if a.plant.Lock() {
			a.log.Warn("system locked", zap.String("reason", e.EventType.Label()))
			a.pushStatus("System locked: " + e.EventType.Label())
		}
	case models.EventIntrusionSlowdown:
		a.plant.SetPersonnel(true)
	case models.EventNormalOperation:
		a.plant.SetPersonnel(false)
	}
	return e
}

func (a *App) pushLog(e models.LogEntry) {
	if a.cfg.BareFrames {
		b, err := json.Marshal(e)
		if err != nil {
			a.log.Error("marshal event", zap.Error(err))
			return
		}
		a.hub.Broadcast(b)
		return
	}
	a.hub.BroadcastJSON(telemetry.NewLogEvent(e))
}

func (a *App) pushStatus(message string) {
	mode, locked := a.plant.Mode()
	a.hub.BroadcastJSON(telemetry.NewStatusEvent(telemetry.StatusUpdate{
		OperationMode: mode,
		IsLocked:      locked,
		Message:       message,
	}))
}
