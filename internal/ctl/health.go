package ctl

import (
	"context"
	"time"

	"github.com/large-farva/conveyor-guard/internal/stream"
	"github.com/large-farva/conveyor-guard/internal/telemetry"
)

// Health checks that the REST API answers and that the event stream accepts
// a connection. The stream probe does not retry.
func Health(ctx context.Context, env *Env) error {
	start := time.Now()
	_, apiErr := env.API.Status(ctx)
	apiLatency := time.Since(start)

	u, streamErr := env.Cfg.Backend.StreamURL()
	if streamErr == nil {
		streamErr = probeStream(ctx, env, u)
	}

	if env.JSON {
		resp := map[string]any{
			"url":         env.Cfg.Backend.URL,
			"api_healthy": apiErr == nil,
			"stream_ok":   streamErr == nil,
		}
		if apiErr != nil {
			resp["api_error"] = apiErr.Error()
		}
		if streamErr != nil {
			resp["stream_error"] = streamErr.Error()
		}
		return env.printJSON(resp)
	}

	env.println()
	if apiErr == nil {
		env.printf("  %s  REST API answered in %s\n", colorize(green, "HEALTHY  "), apiLatency.Round(time.Millisecond))
	} else {
		env.printf("  %s  REST API: %s\n", colorize(red, "UNHEALTHY"), apiErr)
	}
	if streamErr == nil {
		env.printf("  %s  event stream accepted a connection\n", colorize(green, "HEALTHY  "))
	} else {
		env.printf("  %s  event stream: %s\n", colorize(red, "UNHEALTHY"), streamErr)
	}
	env.printf("  %s\n", colorize(dim, env.Cfg.Backend.URL))
	env.println()

	if apiErr != nil {
		return apiErr
	}
	return streamErr
}

// probeStream connects once and reports whether the socket opened.
func probeStream(ctx context.Context, env *Env, u string) error {
	opened := make(chan struct{}, 1)
	opts := env.streamOptions()
	opts.MaxRetries = 0
	opts.OnStatus = func(st stream.Status) {
		if st.State == stream.StateOpen {
			select {
			case opened <- struct{}{}:
			default:
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, env.Cfg.Backend.Timeout())
	defer cancel()
	c, err := stream.Connect(ctx, u, func(telemetry.Frame) {}, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	select {
	case <-opened:
		return nil
	case <-c.Done():
		if err := c.Status().Err; err != nil {
			return err
		}
		return ctx.Err()
	}
}
