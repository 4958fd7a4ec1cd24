package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/config"
	"github.com/large-farva/conveyor-guard/internal/dashboard"
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
)

// Env is what every command needs: the resolved configuration, a REST
// client for the backend and where to write.
type Env struct {
	Cfg  config.Config
	API  *api.Client
	Log  *zap.Logger
	JSON bool
	Out  io.Writer
}

// NewEnv builds an Env for cfg, writing to stdout.
func NewEnv(cfg config.Config, jsonOut bool, log *zap.Logger) *Env {
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{
		Cfg:  cfg,
		API:  api.New(cfg.Backend.URL, cfg.Backend.Timeout(), log.Named("api")),
		Log:  log,
		JSON: jsonOut,
		Out:  os.Stdout,
	}
}

// ImageSize is the frame size used for ratio/pixel conversion.
func (e *Env) ImageSize() models.ImageSize {
	return models.ImageSize{Width: e.Cfg.Dashboard.ImageWidth, Height: e.Cfg.Dashboard.ImageHeight}
}

// storeOptions maps the dashboard config onto store options.
func (e *Env) storeOptions(confirmer dashboard.Confirmer) dashboard.Options {
	d := e.Cfg.Dashboard
	opts := dashboard.DefaultOptions()
	opts.LogLimit = d.LogLimit
	opts.MaxLogs = d.MaxLogs
	opts.AlertTTL = time.Duration(d.AlertSeconds) * time.Second
	opts.PopupTTL = time.Duration(d.PopupSeconds) * time.Second
	opts.BannerTTL = time.Duration(d.BannerSeconds) * time.Second
	opts.ImageSize = e.ImageSize()
	opts.Confirmer = confirmer
	opts.Logger = e.Log.Named("dashboard")
	return opts
}

// streamOptions maps the stream config onto client options.
func (e *Env) streamOptions() stream.Options {
	opts := stream.DefaultOptions()
	opts.RetryDelay = e.Cfg.Stream.RetryDelay()
	opts.MaxRetries = e.Cfg.Stream.MaxRetries
	opts.Logger = e.Log.Named("stream")
	return opts
}

func (e *Env) printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}

func (e *Env) println(args ...any) {
	fmt.Fprintln(e.Out, args...)
}

// printJSON prints v as indented JSON.
func (e *Env) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(e.Out, string(b))
	return nil
}
