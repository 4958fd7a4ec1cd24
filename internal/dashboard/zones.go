package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// EnterZoneConfig opens the zone editor and refetches the zone list.
func (s *Store) EnterZoneConfig(ctx context.Context) error {
	s.update(State.EnterZoneConfig)
	return s.RefreshZones(ctx)
}

// ExitZoneConfig closes the zone editor, dropping the selection and draft.
func (s *Store) ExitZoneConfig() {
	s.update(State.ExitZoneConfig)
}

// RefreshZones replaces the zone list with the backend's.
func (s *Store) RefreshZones(ctx context.Context) error {
	zones, err := s.backend.Zones(ctx)
	if err != nil {
		s.popup("Failed to load zones: " + errText(err))
		return err
	}
	s.update(func(st State) State { return st.SetZones(zones) })
	return nil
}

// CreateZone persists a new zone drawn as ratio points. An empty name becomes
// "Zone N". The zone list is refetched afterwards rather than patched.
func (s *Store) CreateZone(ctx context.Context, points []models.Point, name string) (models.Zone, error) {
	snap := s.Snapshot()
	px, err := toPixels(points, snap.ImageSize)
	if err != nil {
		s.popup(err.Error())
		return models.Zone{}, err
	}
	if name == "" {
		name = fmt.Sprintf("Zone %d", len(snap.Zones)+1)
	}

	z := models.Zone{ID: s.opts.NewID(), Name: name, Points: px}
	if _, err := s.backend.CreateZone(ctx, z); err != nil {
		s.log.Warn("create zone failed", zap.String("id", z.ID), zap.Error(err))
		s.popup("Failed to create zone: " + errText(err))
		return models.Zone{}, err
	}
	s.log.Info("zone created", zap.String("id", z.ID), zap.String("name", z.Name))

	s.update(func(st State) State { return st.SetZoneAction(ZoneActionView) })
	s.banner(fmt.Sprintf("Zone %q created", z.Name))
	return z, s.RefreshZones(ctx)
}

// UpdateZone replaces the points of zone id. The draft name is used when set,
// otherwise the zone keeps its current name.
func (s *Store) UpdateZone(ctx context.Context, id string, points []models.Point) error {
	if id == "" {
		s.popup(ErrNoZoneSelected.Error())
		return ErrNoZoneSelected
	}
	snap := s.Snapshot()
	px, err := toPixels(points, snap.ImageSize)
	if err != nil {
		s.popup(err.Error())
		return err
	}
	name := snap.DraftName
	if name == "" {
		if z, ok := snap.Zone(id); ok {
			name = z.Name
		}
	}

	if _, err := s.backend.UpdateZone(ctx, id, name, px); err != nil {
		s.log.Warn("update zone failed", zap.String("id", id), zap.Error(err))
		s.popup("Failed to update zone: " + errText(err))
		return err
	}
	s.log.Info("zone updated", zap.String("id", id))

	s.banner("Zone updated")
	if err := s.RefreshZones(ctx); err != nil {
		return err
	}
	s.update(func(st State) State { return st.SelectZone(id) })
	return nil
}

// DeleteZone removes zone id and refetches the list.
func (s *Store) DeleteZone(ctx context.Context, id string) error {
	if id == "" {
		s.popup(ErrNoZoneSelected.Error())
		return ErrNoZoneSelected
	}
	if _, err := s.backend.DeleteZone(ctx, id); err != nil {
		s.log.Warn("delete zone failed", zap.String("id", id), zap.Error(err))
		s.popup("Failed to delete zone: " + errText(err))
		return err
	}
	s.log.Info("zone deleted", zap.String("id", id))

	s.update(func(st State) State {
		if st.SelectedZone == id {
			st = st.SelectZone("")
		}
		return st
	})
	s.banner("Zone deleted")
	return s.RefreshZones(ctx)
}

// toPixels validates ratio points and converts them to backend pixel space.
func toPixels(points []models.Point, size models.ImageSize) ([]models.Point, error) {
	if len(points) < models.MinZonePoints {
		return nil, ErrTooFewPoints
	}
	if !size.Known() {
		return nil, ErrImageSizeUnknown
	}
	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if err := checkRatio(p); err != nil {
			return nil, err
		}
		out = append(out, size.ToPixels(p))
	}
	return out, nil
}

func checkRatio(p models.Point) error {
	if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
		return fmt.Errorf("%w: (%g, %g)", ErrPointOutOfRange, p.X, p.Y)
	}
	return nil
}
