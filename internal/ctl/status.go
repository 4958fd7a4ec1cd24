package ctl

import (
	"context"
	"strings"
)

// Status fetches the conveyor's control status and prints a formatted summary.
func Status(ctx context.Context, env *Env) error {
	st, err := env.API.Status(ctx)
	if err != nil {
		return err
	}
	mode := st.Mode()

	if env.JSON {
		return env.printJSON(map[string]any{
			"operation_mode": mode,
			"is_locked":      st.IsLocked,
			"backend":        env.Cfg.Backend.URL,
		})
	}

	streamURL, err := env.Cfg.Backend.StreamURL()
	if err != nil {
		streamURL = "invalid: " + err.Error()
	}

	env.println()
	env.println(header("  CONVEYOR STATUS"))
	env.println(rule(38))
	env.printf("  %-12s %s\n", colorize(dim, "Mode:"), formatMode(mode, st.IsLocked))
	if st.IsLocked {
		env.printf("  %-12s %s\n", colorize(dim, "Lock:"), colorize(red, "reset required before restart"))
	}
	env.printf("  %-12s %s\n", colorize(dim, "Backend:"), strings.TrimRight(env.Cfg.Backend.URL, "/"))
	env.printf("  %-12s %s\n", colorize(dim, "Events:"), streamURL)
	env.printf("  %-12s %s\n", colorize(dim, "Video:"), env.Cfg.Backend.VideoURL())
	env.println()
	return nil
}

// VideoURL prints the live video endpoint. The feed itself is opened by a
// browser or media player.
func VideoURL(env *Env) error {
	u := env.Cfg.Backend.VideoURL()
	if env.JSON {
		return env.printJSON(map[string]string{"video_url": u})
	}
	env.println(u)
	return nil
}
