package ctl

import (
	"context"
	"math"

	"github.com/large-farva/conveyor-guard/internal/dashboard"
	"github.com/large-farva/conveyor-guard/internal/models"
)

// Zones lists the configured danger zones. Points are shown both as the
// backend's pixels and as ratios of the configured frame size.
func Zones(ctx context.Context, env *Env) error {
	zones, err := env.API.Zones(ctx)
	if err != nil {
		return err
	}
	if env.JSON {
		return env.printJSON(zones)
	}

	size := env.ImageSize()
	env.println()
	env.println(header("  DANGER ZONES"))
	env.println(rule(70))
	if len(zones) == 0 {
		env.println("  No zones configured.")
	}
	for _, z := range zones {
		ratios := make([]models.Point, 0, len(z.Points))
		for _, p := range z.Points {
			ratios = append(ratios, size.ToRatio(p))
		}
		env.printf("  %s  %s\n", colorize(bold, padRight(z.DisplayName(), 20)), colorize(dim, z.ID))
		env.printf("    %-10s %s\n", colorize(dim, "pixels:"), formatPoints(z.Points))
		env.printf("    %-10s %s\n", colorize(dim, "ratios:"), formatPoints(roundPoints(ratios)))
	}
	env.println()
	return nil
}

// ParsePoints parses "x,y" arguments as ratio points.
func ParsePoints(args []string) ([]models.Point, error) {
	points := make([]models.Point, 0, len(args))
	for _, a := range args {
		p, err := models.ParsePoint(a)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// ZoneCreate creates a zone from ratio points. An empty name lets the
// store pick "Zone N".
func ZoneCreate(ctx context.Context, env *Env, name string, points []models.Point) error {
	store := dashboard.New(env.API, env.storeOptions(nil))
	defer store.Close()

	// The zone list is needed to number an unnamed zone.
	if err := store.RefreshZones(ctx); err != nil {
		return err
	}
	z, err := store.CreateZone(ctx, points, name)
	if err != nil {
		return err
	}
	if env.JSON {
		return env.printJSON(z)
	}
	env.printf("\n  %s  zone %q created (%s)\n\n", colorize(green, "OK"), z.Name, z.ID)
	return nil
}

// ZoneUpdate replaces the polygon of zone id. An empty name keeps the
// current one.
func ZoneUpdate(ctx context.Context, env *Env, id, name string, points []models.Point) error {
	store := dashboard.New(env.API, env.storeOptions(nil))
	defer store.Close()

	if err := store.RefreshZones(ctx); err != nil {
		return err
	}
	if err := store.Dispatch(ctx, dashboard.SelectZone{ID: id}); err != nil {
		return err
	}
	if name != "" {
		if err := store.Dispatch(ctx, dashboard.SetDraftName{Name: name}); err != nil {
			return err
		}
	}
	if err := store.UpdateZone(ctx, id, points); err != nil {
		return err
	}

	z, _ := store.Snapshot().Zone(id)
	if env.JSON {
		return env.printJSON(z)
	}
	env.printf("\n  %s  zone %q updated\n\n", colorize(green, "OK"), z.DisplayName())
	return nil
}

// ZoneDelete removes zone id.
func ZoneDelete(ctx context.Context, env *Env, id string) error {
	store := dashboard.New(env.API, env.storeOptions(nil))
	defer store.Close()

	if err := store.DeleteZone(ctx, id); err != nil {
		return err
	}
	if env.JSON {
		return env.printJSON(map[string]string{"deleted": id})
	}
	env.printf("\n  %s  zone %s deleted\n\n", colorize(green, "OK"), id)
	return nil
}

func roundPoints(points []models.Point) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i] = models.Point{X: round3(p.X), Y: round3(p.Y)}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
