package ctl

import (
	"strings"
)

// Config displays the effective configuration after defaults, the config
// file and command-line overrides have been applied.
func Config(env *Env) error {
	cfg := env.Cfg
	if env.JSON {
		return env.printJSON(cfg)
	}

	env.println()
	env.println(header("  EFFECTIVE CONFIGURATION"))
	env.println(colorize(dim, "  "+strings.Repeat("─", 50)))

	section := func(name string) {
		env.printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		env.printf("    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("backend")
	field("url", cfg.Backend.URL)
	field("stream_path", cfg.Backend.StreamPath)
	field("video_path", cfg.Backend.VideoPath)
	field("timeout_seconds", cfg.Backend.TimeoutSeconds)

	section("stream")
	field("retry_delay_ms", cfg.Stream.RetryDelayMs)
	field("max_retries", cfg.Stream.MaxRetries)

	section("dashboard")
	field("log_limit", cfg.Dashboard.LogLimit)
	field("max_logs", cfg.Dashboard.MaxLogs)
	field("alert_seconds", cfg.Dashboard.AlertSeconds)
	field("popup_seconds", cfg.Dashboard.PopupSeconds)
	field("banner_seconds", cfg.Dashboard.BannerSeconds)
	field("image_size", env.ImageSize())

	section("logging")
	field("level", cfg.Logging.Level)
	field("format", cfg.Logging.Format)

	env.println()
	return nil
}
