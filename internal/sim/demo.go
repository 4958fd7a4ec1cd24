package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// Runner fabricates detection events on an interval. What it emits depends
// on the plant's mode, so the stream reads like a real shift: routine
// frames while running, LOTO checks during maintenance, and the occasional
// intrusion or fall.
type Runner struct {
	App      *App
	Interval time.Duration
	// CriticalEvery emits a fall every Nth event while running; 0 disables it.
	CriticalEvery int

	tick int
	rnd  *rand.Rand
}

// NewRunner creates a runner with a 5s interval.
func NewRunner(a *App) *Runner {
	return &Runner{
		App:           a,
		Interval:      5 * time.Second,
		CriticalEvery: 40,
		rnd:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// Run emits one event immediately and then one per interval until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.App.log.Info("demo mode active, simulating detections", zap.Duration("interval", r.Interval))
	r.Step()

	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Step()
		}
	}
}

// Step emits the next simulated event and returns it.
func (r *Runner) Step() models.LogEntry {
	r.tick++
	mode, locked := r.App.plant.Mode()
	et := r.next(mode, locked)

	details := map[string]any{
		"description": describe(et),
		"confidence":  0.80 + r.rnd.Float64()*0.19,
		"source":      "sim",
	}
	if zones := r.App.plant.Zones(); len(zones) > 0 && et == models.EventIntrusionSlowdown {
		z := zones[r.rnd.IntN(len(zones))]
		details["zone_id"] = z.ID
		details["zone_name"] = z.DisplayName()
	}

	return r.App.Emit(models.LogEntry{
		EventType: et,
		Details:   details,
	})
}

func (r *Runner) next(mode models.OperationMode, locked bool) models.EventType {
	switch {
	case locked:
		return models.EventSystemError
	case mode == models.ModeMaintenance:
		if r.tick%3 == 0 {
			return models.EventLOTOActive
		}
		return models.EventMaintenanceSafe
	case mode == models.ModeAutomatic:
		if r.CriticalEvery > 0 && r.tick%r.CriticalEvery == 0 {
			return models.EventCriticalFalling
		}
		switch n := r.rnd.IntN(10); {
		case n < 6:
			return models.EventNormalOperation
		case n < 8:
			return models.EventCrouchingWarn
		default:
			return models.EventIntrusionSlowdown
		}
	default:
		return models.EventNormalOperation
	}
}

func describe(et models.EventType) string {
	switch et {
	case models.EventNormalOperation:
		return "No personnel near the conveyor"
	case models.EventCrouchingWarn:
		return "Worker crouching next to the belt"
	case models.EventIntrusionSlowdown:
		return "Person entered a danger zone, conveyor slowed"
	case models.EventCriticalFalling:
		return "Fall detected beside the conveyor, emergency stop"
	case models.EventLOTOActive:
		return "Worker inside the guarded area, lockout/tagout in force"
	case models.EventMaintenanceSafe:
		return "Maintenance area clear"
	case models.EventSystemError:
		return "System locked, waiting for operator reset"
	default:
		return fmt.Sprintf("simulated %s", et)
	}
}
