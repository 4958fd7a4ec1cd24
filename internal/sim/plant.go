package sim

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/large-farva/conveyor-guard/internal/models"
)

const maxStoredLogs = 500

var (
	errZoneExists   = errors.New("zone already exists")
	errZoneNotFound = errors.New("zone not found")
	errLocked       = errors.New("system is locked after a critical event, reset required")
	errConfirm      = errors.New("confirmation required")
)

// Plant is the simulated backend state: the conveyor's logical control
// state, the configured zones and the event history.
type Plant struct {
	mu sync.Mutex

	mode      models.OperationMode
	locked    bool
	personnel bool

	zones  map[string]models.Zone
	order  []string
	logs   []models.LogEntry
	nextID int
}

// NewPlant returns a stopped, unlocked plant with no zones or events.
func NewPlant() *Plant {
	return &Plant{
		mode:  models.ModeInactive,
		zones: make(map[string]models.Zone),
	}
}

// Status mirrors GET /api/control/status.
type Status struct {
	IsOperating   bool    `json:"is_operating"`
	OperationMode *string `json:"operation_mode"`
	IsLocked      bool    `json:"is_locked"`
}

func (p *Plant) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Plant) statusLocked() Status {
	st := Status{IsLocked: p.locked}
	if p.mode != models.ModeInactive {
		m := string(p.mode)
		st.OperationMode = &m
		st.IsOperating = !p.locked
	}
	return st
}

// Mode returns the current mode and lock flag.
func (p *Plant) Mode() (models.OperationMode, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode, p.locked
}

// SetPersonnel flags whether somebody is standing inside a danger zone.
func (p *Plant) SetPersonnel(present bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.personnel = present
}

// Start switches to mode. Starting automatic mode with personnel flagged
// needs confirmed; requireConfirm forces that for every automatic start.
func (p *Plant) Start(mode models.OperationMode, confirmed, requireConfirm bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locked {
		return errLocked
	}
	if mode == models.ModeAutomatic && !confirmed && (p.personnel || requireConfirm) {
		return errConfirm
	}
	p.mode = mode
	return nil
}

// Stop deactivates the conveyor. The lock, if any, stays.
func (p *Plant) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = models.ModeInactive
}

// Lock stops the conveyor until Reset.
func (p *Plant) Lock() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locked {
		return false
	}
	p.locked = true
	p.mode = models.ModeInactive
	return true
}

// Reset clears the lock and leaves the conveyor stopped. It reports whether
// there was a lock to clear.
func (p *Plant) Reset() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.locked
	p.locked = false
	p.personnel = false
	p.mode = models.ModeInactive
	return was
}

// Record stores an event, assigning an id and timestamp when missing.
func (p *Plant) Record(e models.LogEntry) models.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	if e.ID == "" {
		e.ID = strconv.Itoa(p.nextID)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.RiskLevel == "" {
		e.RiskLevel = e.EventType.DefaultRisk()
	}
	if e.OperationMode == models.ModeUnknown {
		e.OperationMode = p.mode
	}

	logs := make([]models.LogEntry, 0, min(len(p.logs)+1, maxStoredLogs))
	logs = append(logs, e)
	logs = append(logs, p.logs[:min(len(p.logs), maxStoredLogs-1)]...)
	p.logs = logs
	return e
}

// Logs returns up to limit events, newest first.
func (p *Plant) Logs(limit int) []models.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := min(limit, len(p.logs))
	return append([]models.LogEntry{}, p.logs[:n]...)
}

// Zones returns every zone in creation order.
func (p *Plant) Zones() []models.Zone {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Zone, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.zones[id])
	}
	return out
}

func (p *Plant) Zone(id string) (models.Zone, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	z, ok := p.zones[id]
	if !ok {
		return models.Zone{}, fmt.Errorf("%w: %s", errZoneNotFound, id)
	}
	return z, nil
}

func (p *Plant) CreateZone(z models.Zone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.zones[z.ID]; ok {
		return fmt.Errorf("%w: %s", errZoneExists, z.ID)
	}
	p.zones[z.ID] = z
	p.order = append(p.order, z.ID)
	return nil
}

func (p *Plant) UpdateZone(z models.Zone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.zones[z.ID]; !ok {
		return fmt.Errorf("%w: %s", errZoneNotFound, z.ID)
	}
	p.zones[z.ID] = z
	return nil
}

func (p *Plant) DeleteZone(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.zones[id]; !ok {
		return fmt.Errorf("%w: %s", errZoneNotFound, id)
	}
	delete(p.zones, id)
	for i, zid := range p.order {
		if zid == id {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}
