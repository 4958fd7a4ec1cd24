package ctl

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/large-farva/conveyor-guard/internal/stream"
	"github.com/large-farva/conveyor-guard/internal/telemetry"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // frame kinds to show: log, status, raw (empty = all)
}

// Watch subscribes to the backend's event stream and prints every frame
// until ctx is cancelled or the stream gives up reconnecting.
func Watch(ctx context.Context, env *Env, opts WatchOptions) error {
	u, err := env.Cfg.Backend.StreamURL()
	if err != nil {
		return err
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[strings.ToLower(strings.TrimSpace(f))] = true
	}

	handler := func(f telemetry.Frame) {
		if len(filterSet) > 0 && !filterSet[frameKind(f)] {
			return
		}
		if env.JSON {
			printFrameJSON(env, f)
			return
		}
		env.println(renderFrame(f))
	}

	sopts := env.streamOptions()
	sopts.OnStatus = func(st stream.Status) {
		if env.JSON {
			return
		}
		env.println(renderConnection(st, u))
	}

	c, err := stream.Connect(ctx, u, handler, sopts)
	if err != nil {
		return err
	}
	if !env.JSON && len(opts.Filter) > 0 {
		env.printf("  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
	}

	select {
	case <-ctx.Done():
		c.Close()
		return nil
	case <-c.Done():
	}
	if st := c.Status(); st.Err != nil && ctx.Err() == nil {
		return st.Err
	}
	return nil
}

func frameKind(f telemetry.Frame) string {
	switch f.(type) {
	case *telemetry.LogFrame:
		return "log"
	case *telemetry.StatusUpdateFrame:
		return "status"
	default:
		return "raw"
	}
}

// renderFrame prints one frame as a single line.
func renderFrame(f telemetry.Frame) string {
	switch f := f.(type) {
	case *telemetry.LogFrame:
		return "  " + formatLogLine(f.Entry)
	case *telemetry.StatusUpdateFrame:
		line := "  " + colorize(bold, "STATUS  ") + "  " + formatMode(f.Status.OperationMode, f.Status.IsLocked)
		if f.Status.Message != "" {
			line += "  " + colorize(dim, f.Status.Message)
		}
		return line
	case *telemetry.RawFrame:
		return "  " + colorize(dim, "RAW     ") + "  " + f.Text
	default:
		return ""
	}
}

func renderConnection(st stream.Status, u string) string {
	line := "  " + colorize(connColor(st.State), st.State.String())
	switch st.State {
	case stream.StateConnecting:
		line += " " + colorize(dim, u)
		if st.Retries > 0 {
			line += colorize(dim, " (retry "+strconv.Itoa(st.Retries)+")")
		}
	case stream.StateClosed, stream.StateErrored:
		if st.Err != nil {
			line += " " + colorize(dim, st.Err.Error())
		}
		if st.Terminal {
			line += " " + colorize(red, "giving up")
		}
	}
	return line
}

// printFrameJSON prints the frame as one JSON line, tagged with its kind.
func printFrameJSON(env *Env, f telemetry.Frame) {
	var v any
	switch f := f.(type) {
	case *telemetry.LogFrame:
		v = map[string]any{"kind": "log", "data": f.Entry}
	case *telemetry.StatusUpdateFrame:
		v = map[string]any{"kind": "status", "data": f.Status}
	case *telemetry.RawFrame:
		v = map[string]any{"kind": "raw", "text": f.Text}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	env.println(string(b))
}
