// Package config handles loading, defaulting, and validation of the
// conveyor-guard configuration file. TOML is the native format; files ending
// in .yaml or .yml are decoded as YAML with the same keys. Every section maps
// to a typed struct so the rest of the codebase gets strong typing without
// manual key lookups.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration, mirroring the file sections.
type Config struct {
	Backend   BackendConfig   `toml:"backend"   yaml:"backend"   json:"backend"`
	Stream    StreamConfig    `toml:"stream"    yaml:"stream"    json:"stream"`
	Dashboard DashboardConfig `toml:"dashboard" yaml:"dashboard" json:"dashboard"`
	Logging   LoggingConfig   `toml:"logging"   yaml:"logging"   json:"logging"`
	Sim       SimConfig       `toml:"sim"       yaml:"sim"       json:"sim"`
}

type BackendConfig struct {
	URL            string `toml:"url"             yaml:"url"             json:"url"`
	StreamPath     string `toml:"stream_path"     yaml:"stream_path"     json:"stream_path"`
	VideoPath      string `toml:"video_path"      yaml:"video_path"      json:"video_path"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

type StreamConfig struct {
	RetryDelayMs int `toml:"retry_delay_ms" yaml:"retry_delay_ms" json:"retry_delay_ms"`
	MaxRetries   int `toml:"max_retries"    yaml:"max_retries"    json:"max_retries"`
}

type DashboardConfig struct {
	LogLimit      int `toml:"log_limit"       yaml:"log_limit"       json:"log_limit"`
	MaxLogs       int `toml:"max_logs"        yaml:"max_logs"        json:"max_logs"`
	AlertSeconds  int `toml:"alert_seconds"   yaml:"alert_seconds"   json:"alert_seconds"`
	PopupSeconds  int `toml:"popup_seconds"   yaml:"popup_seconds"   json:"popup_seconds"`
	BannerSeconds int `toml:"banner_seconds"  yaml:"banner_seconds"  json:"banner_seconds"`
	ImageWidth    int `toml:"image_width"     yaml:"image_width"     json:"image_width"`
	ImageHeight   int `toml:"image_height"    yaml:"image_height"    json:"image_height"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  yaml:"level"  json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

type SimConfig struct {
	Bind                string `toml:"bind"                 yaml:"bind"                 json:"bind"`
	IntervalSeconds     int    `toml:"interval_seconds"     yaml:"interval_seconds"     json:"interval_seconds"`
	RequireConfirmation bool   `toml:"require_confirmation" yaml:"require_confirmation" json:"require_confirmation"`
	BareFrames          bool   `toml:"bare_frames"          yaml:"bare_frames"          json:"bare_frames"`
	ImageWidth          int    `toml:"image_width"          yaml:"image_width"          json:"image_width"`
	ImageHeight         int    `toml:"image_height"         yaml:"image_height"         json:"image_height"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the file omits a field.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:8000",
			StreamPath:     "/ws/logs",
			VideoPath:      "/api/streaming/video_feed",
			TimeoutSeconds: 5,
		},
		Stream: StreamConfig{
			RetryDelayMs: 5000,
			MaxRetries:   3,
		},
		Dashboard: DashboardConfig{
			LogLimit:      50,
			MaxLogs:       200,
			AlertSeconds:  10,
			PopupSeconds:  5,
			BannerSeconds: 2,
			ImageWidth:    640,
			ImageHeight:   480,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Sim: SimConfig{
			Bind:            "127.0.0.1:8000",
			IntervalSeconds: 5,
			ImageWidth:      640,
			ImageHeight:     480,
		},
	}
}

// Load reads the file at path, layers it on top of the defaults, and
// validates the result. An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = toml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RetryDelay is the fixed delay between stream reconnect attempts.
func (c StreamConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Timeout is the per-request REST timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StreamURL derives the WebSocket URL of the event stream from the backend URL.
func (c BackendConfig) StreamURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.URL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.StreamPath
	u.RawQuery = ""
	return u.String(), nil
}

// VideoURL is the MJPEG endpoint an operator opens in a browser or player.
func (c BackendConfig) VideoURL() string {
	return strings.TrimRight(c.URL, "/") + c.VideoPath
}

func validate(cfg Config) error {
	if cfg.Backend.URL == "" {
		return errors.New("backend.url must not be empty")
	}
	if !strings.HasPrefix(cfg.Backend.StreamPath, "/") {
		return errors.New("backend.stream_path must start with /")
	}
	if cfg.Backend.TimeoutSeconds < 1 {
		return errors.New("backend.timeout_seconds must be >= 1")
	}
	if cfg.Stream.RetryDelayMs < 0 {
		return errors.New("stream.retry_delay_ms must be >= 0")
	}
	if cfg.Stream.MaxRetries < 0 {
		return errors.New("stream.max_retries must be >= 0")
	}
	if cfg.Dashboard.LogLimit < 1 || cfg.Dashboard.LogLimit > 200 {
		return errors.New("dashboard.log_limit must be between 1 and 200")
	}
	if cfg.Dashboard.MaxLogs < cfg.Dashboard.LogLimit {
		return errors.New("dashboard.max_logs must be >= dashboard.log_limit")
	}
	if cfg.Dashboard.AlertSeconds < 1 || cfg.Dashboard.PopupSeconds < 1 || cfg.Dashboard.BannerSeconds < 1 {
		return errors.New("dashboard alert/popup/banner seconds must be >= 1")
	}
	if cfg.Dashboard.ImageWidth < 0 || cfg.Dashboard.ImageHeight < 0 {
		return errors.New("dashboard image size must not be negative")
	}
	if cfg.Sim.IntervalSeconds < 0 {
		return errors.New("sim.interval_seconds must be >= 0")
	}
	return nil
}
