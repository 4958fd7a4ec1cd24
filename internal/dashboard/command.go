package dashboard

import (
	"context"
	"fmt"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/models"
)

// Command is a user intent forwarded by a view. Dispatch is the only entry
// point a view needs.
type Command interface {
	command()
}

type (
	// Control sends a control command, with confirmation when asked.
	Control struct{ Kind api.ControlKind }
	// Reload repeats the initial fetch.
	Reload          struct{}
	EnterZoneConfig struct{}
	ExitZoneConfig  struct{}
	RefreshZones    struct{}
	// SelectZone loads a zone into the editor; an empty ID clears it.
	SelectZone    struct{ ID string }
	SetDraftName  struct{ Name string }
	SetZoneAction struct{ Action ZoneAction }
	// AddPoint appends a ratio point to the draft polygon.
	AddPoint   struct{ Point models.Point }
	UndoPoint  struct{}
	ResetDraft struct{}
	// SaveZone creates or updates from the draft, depending on the action.
	SaveZone struct{}
	// DeleteZone removes ID, or the selected zone when ID is empty.
	DeleteZone   struct{ ID string }
	SetImageSize struct{ Size models.ImageSize }
	DismissPopup struct{}
)

func (Control) command()         {}
func (Reload) command()          {}
func (EnterZoneConfig) command() {}
func (ExitZoneConfig) command()  {}
func (RefreshZones) command()    {}
func (SelectZone) command()      {}
func (SetDraftName) command()    {}
func (SetZoneAction) command()   {}
func (AddPoint) command()        {}
func (UndoPoint) command()       {}
func (ResetDraft) command()      {}
func (SaveZone) command()        {}
func (DeleteZone) command()      {}
func (SetImageSize) command()    {}
func (DismissPopup) command()    {}

// Dispatch executes cmd. Failures are also reflected in State as a popup,
// so callers may ignore the returned error.
func (s *Store) Dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case Control:
		return s.DispatchControl(ctx, c.Kind)
	case Reload:
		return s.Load(ctx)
	case EnterZoneConfig:
		return s.EnterZoneConfig(ctx)
	case ExitZoneConfig:
		s.ExitZoneConfig()
	case RefreshZones:
		return s.RefreshZones(ctx)
	case SelectZone:
		if c.ID != "" {
			if _, ok := s.Snapshot().Zone(c.ID); !ok {
				err := fmt.Errorf("zone %s not found", c.ID)
				s.popup(err.Error())
				return err
			}
		}
		s.update(func(st State) State { return st.SelectZone(c.ID) })
	case SetDraftName:
		s.update(func(st State) State { return st.SetDraftName(c.Name) })
	case SetZoneAction:
		s.update(func(st State) State { return st.SetZoneAction(c.Action) })
	case AddPoint:
		if err := checkRatio(c.Point); err != nil {
			s.popup(err.Error())
			return err
		}
		s.update(func(st State) State { return st.AddDraftPoint(c.Point) })
	case UndoPoint:
		s.update(State.RemoveLastDraftPoint)
	case ResetDraft:
		s.update(State.ResetDraft)
	case SaveZone:
		return s.saveDraft(ctx)
	case DeleteZone:
		id := c.ID
		if id == "" {
			id = s.Snapshot().SelectedZone
		}
		return s.DeleteZone(ctx, id)
	case SetImageSize:
		s.SetImageSize(c.Size)
	case DismissPopup:
		s.DismissPopup()
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

func (s *Store) saveDraft(ctx context.Context) error {
	snap := s.Snapshot()
	switch snap.ZoneAction {
	case ZoneActionCreate:
		_, err := s.CreateZone(ctx, snap.DraftPoints, snap.DraftName)
		return err
	case ZoneActionUpdate:
		return s.UpdateZone(ctx, snap.SelectedZone, snap.DraftPoints)
	default:
		s.popup(ErrNothingToSave.Error())
		return ErrNothingToSave
	}
}
