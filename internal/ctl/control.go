package ctl

import (
	"context"
	"errors"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/dashboard"
)

// ControlOptions configures a one-shot control command.
type ControlOptions struct {
	// Yes accepts a confirmation request without prompting.
	Yes bool
	// Next supplies the answer to a confirmation prompt.
	Next LineSource
}

// Control sends one control command. A confirmation request from the
// backend is put to the operator before the command is resubmitted.
func Control(ctx context.Context, env *Env, kind api.ControlKind, opts ControlOptions) error {
	prompt := &Prompt{Out: env.Out, Next: opts.Next, Yes: opts.Yes}
	store := dashboard.New(env.API, env.storeOptions(prompt))
	defer store.Close()

	err := store.DispatchControl(ctx, kind)
	declined := errors.Is(err, dashboard.ErrDeclined)
	if err != nil && !declined {
		return err
	}
	st := store.Snapshot()

	if env.JSON {
		return env.printJSON(map[string]any{
			"command":        kind,
			"declined":       declined,
			"operation_mode": st.Mode,
			"is_locked":      st.Locked,
		})
	}

	env.println()
	if declined {
		env.printf("  %s  %s was not sent\n", colorize(yellow, "CANCELLED"), kind)
		env.println()
		return nil
	}
	env.printf("  %s  %s\n", colorize(green, "OK"), kind)
	env.printf("  %-12s %s\n", colorize(dim, "Mode:"), formatMode(st.Mode, st.Locked))
	env.println()
	return nil
}
