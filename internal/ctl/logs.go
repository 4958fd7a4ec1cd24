package ctl

import (
	"context"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// LogsOptions configures the logs command.
type LogsOptions struct {
	Limit int
	// Risk keeps only events at these levels.
	Risk []string
	// Events keeps only these event types, by full or short tag.
	Events []string
	Tail   bool
}

// Logs shows recent safety events, or streams them live with --tail.
func Logs(ctx context.Context, env *Env, opts LogsOptions) error {
	if opts.Tail {
		return Watch(ctx, env, WatchOptions{Filter: []string{"log"}})
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = env.Cfg.Dashboard.LogLimit
	}
	events, err := parseEventTypes(opts.Events)
	if err != nil {
		return err
	}
	logs, err := env.API.Logs(ctx, limit)
	if err != nil {
		return err
	}
	logs = filterEvents(filterRisk(logs, opts.Risk), events)

	if env.JSON {
		return env.printJSON(logs)
	}

	env.println()
	env.println(header("  SAFETY EVENTS"))
	env.println(rule(70))
	if len(logs) == 0 {
		env.println("  No events found.")
	}
	for _, e := range logs {
		env.println("  " + formatLogLine(e))
	}
	env.println()
	return nil
}

func filterRisk(logs []models.LogEntry, levels []string) []models.LogEntry {
	if len(levels) == 0 {
		return logs
	}
	want := make(map[models.RiskLevel]bool, len(levels))
	for _, l := range levels {
		want[models.ParseRiskLevel(l)] = true
	}
	out := make([]models.LogEntry, 0, len(logs))
	for _, e := range logs {
		if want[e.RiskLevel] {
			out = append(out, e)
		}
	}
	return out
}

func parseEventTypes(names []string) (map[models.EventType]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	want := make(map[models.EventType]bool, len(names))
	for _, n := range names {
		t, err := models.ParseEventType(n)
		if err != nil {
			return nil, err
		}
		want[t] = true
	}
	return want, nil
}

func filterEvents(logs []models.LogEntry, want map[models.EventType]bool) []models.LogEntry {
	if want == nil {
		return logs
	}
	out := make([]models.LogEntry, 0, len(logs))
	for _, e := range logs {
		if want[e.EventType] {
			out = append(out, e)
		}
	}
	return out
}
