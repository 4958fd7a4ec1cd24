package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/dashboard"
	"github.com/large-farva/conveyor-guard/internal/models"
)

var (
	errQuit = errors.New("quit")
	errHelp = errors.New("help")
)

// DashboardOptions configures a live session.
type DashboardOptions struct {
	In io.Reader
	// Yes accepts every confirmation request without prompting.
	Yes bool
	// Logs is how many events the panel shows.
	Logs int
}

// Dashboard runs a live session: the initial load, the event stream, and a
// panel redrawn on every state change. Operator input is read line by line
// and dispatched to the store until "quit", end of input or ctx is done.
func Dashboard(ctx context.Context, env *Env, opts DashboardOptions) error {
	if opts.Logs <= 0 {
		opts.Logs = 15
	}
	next := ScanLines(opts.In)
	prompt := &Prompt{Out: env.Out, Next: next, Yes: opts.Yes}
	store := dashboard.New(env.API, env.storeOptions(prompt))
	defer store.Close()

	redraw := colorEnabled()
	unsubscribe := store.Subscribe(func(st dashboard.State) {
		if redraw {
			io.WriteString(env.Out, clearScreen)
		}
		RenderPanel(env.Out, st, opts.Logs)
	})
	defer unsubscribe()

	if err := store.Load(ctx); err != nil {
		env.Log.Warn("initial load failed", zap.Error(err))
	}

	u, err := env.Cfg.Backend.StreamURL()
	if err != nil {
		return err
	}
	if err := store.AttachStream(ctx, u, env.streamOptions()); err != nil {
		return err
	}

	for {
		line, ok := next(ctx)
		if !ok {
			return nil
		}
		cmd, err := ParseLine(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, errHelp):
			io.WriteString(env.Out, dashboardHelp)
			continue
		case err != nil:
			env.printf("  %s  %s\n", colorize(yellow, "?"), err)
			continue
		case cmd == nil:
			continue
		}
		// Failures are already reflected in the panel.
		if err := store.Dispatch(ctx, cmd); err != nil {
			env.Log.Debug("command failed", zap.String("line", line), zap.Error(err))
		}
	}
}

// ParseLine maps one line of operator input to a store command. An empty
// line yields a nil command.
func ParseLine(line string) (dashboard.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	word, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	if kind, err := api.ParseControlKind(word); err == nil {
		return dashboard.Control{Kind: kind}, nil
	}

	switch word {
	case "quit", "q":
		return nil, errQuit
	case "help", "?":
		return nil, errHelp
	case "reload":
		return dashboard.Reload{}, nil
	case "zones":
		return dashboard.RefreshZones{}, nil
	case "config":
		return dashboard.EnterZoneConfig{}, nil
	case "exit":
		return dashboard.ExitZoneConfig{}, nil
	case "create":
		return dashboard.SetZoneAction{Action: dashboard.ZoneActionCreate}, nil
	case "update":
		return dashboard.SetZoneAction{Action: dashboard.ZoneActionUpdate}, nil
	case "view":
		return dashboard.SetZoneAction{Action: dashboard.ZoneActionView}, nil
	case "select":
		return dashboard.SelectZone{ID: rest}, nil
	case "name":
		return dashboard.SetDraftName{Name: rest}, nil
	case "point":
		p, err := parsePointArgs(args)
		if err != nil {
			return nil, err
		}
		return dashboard.AddPoint{Point: p}, nil
	case "undo":
		return dashboard.UndoPoint{}, nil
	case "clear":
		return dashboard.ResetDraft{}, nil
	case "save":
		return dashboard.SaveZone{}, nil
	case "delete":
		return dashboard.DeleteZone{ID: rest}, nil
	case "size":
		if len(args) != 1 {
			return nil, errors.New("usage: size WxH")
		}
		size, err := models.ParseImageSize(args[0])
		if err != nil {
			return nil, err
		}
		return dashboard.SetImageSize{Size: size}, nil
	case "dismiss":
		return dashboard.DismissPopup{}, nil
	default:
		return nil, fmt.Errorf("unknown command %q, type 'help'", fields[0])
	}
}

// parsePointArgs accepts "X Y" or "X,Y".
func parsePointArgs(args []string) (models.Point, error) {
	switch len(args) {
	case 1:
		return models.ParsePoint(args[0])
	case 2:
		return models.ParsePoint(args[0] + "," + args[1])
	default:
		return models.Point{}, errors.New("usage: point X Y")
	}
}
