package dashboard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/api"
)

// DispatchControl sends a control command. When the backend asks for
// confirmation the Confirmer is consulted once: on approval the command is
// resubmitted with confirmed=true, on refusal nothing else happens and
// ErrDeclined is returned. Only one command may be in flight; a second one
// is rejected with ErrControlBusy.
func (s *Store) DispatchControl(ctx context.Context, kind api.ControlKind) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.popup("Another control command is still in progress")
		return ErrControlBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	log := s.log.With(zap.String("command", string(kind)))

	res, err := s.backend.Control(ctx, kind, false)
	if err != nil {
		log.Warn("control command failed", zap.Error(err))
		s.popup(fmt.Sprintf("Failed to %s: %s", controlVerb(kind), errText(err)))
		return err
	}

	if res.ConfirmationRequired {
		ok, err := s.confirm(ctx, res.Message)
		if err != nil {
			s.popup(fmt.Sprintf("Failed to %s: %s", controlVerb(kind), err))
			return err
		}
		if !ok {
			log.Info("control command declined by operator")
			return ErrDeclined
		}

		res, err = s.backend.Control(ctx, kind, true)
		if err != nil {
			log.Warn("confirmed control command failed", zap.Error(err))
			s.popup(fmt.Sprintf("Failed to %s: %s", controlVerb(kind), errText(err)))
			return err
		}
		if res.ConfirmationRequired {
			err := errors.New("backend still requires confirmation")
			s.popup(fmt.Sprintf("Failed to %s: %s", controlVerb(kind), err))
			return err
		}
	}

	s.update(func(st State) State { return st.SetMode(res.OperationMode, res.IsLocked) })
	log.Info("control command applied", zap.String("mode", string(res.OperationMode)))
	return nil
}

func (s *Store) confirm(ctx context.Context, message string) (bool, error) {
	if message == "" {
		message = "The backend asks for confirmation. Continue?"
	}
	if s.opts.Confirmer == nil {
		s.log.Warn("confirmation requested but no confirmer configured", zap.String("message", message))
		return false, nil
	}
	return s.opts.Confirmer.Confirm(ctx, message)
}

func controlVerb(kind api.ControlKind) string {
	switch kind {
	case api.ControlStartAutomatic:
		return "start automatic mode"
	case api.ControlStartMaintenance:
		return "start maintenance mode"
	case api.ControlStop:
		return "stop the conveyor"
	case api.ControlReset:
		return "reset the system"
	default:
		return string(kind)
	}
}
