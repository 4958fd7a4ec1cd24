package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/models"
)

// call is one recorded backend request.
type call struct {
	Method    string
	Kind      api.ControlKind
	Confirmed bool
	Zone      models.Zone
}

// fakeBackend records calls and answers from canned values.
type fakeBackend struct {
	mu    sync.Mutex
	calls []call

	logs     []models.LogEntry
	zones    []models.Zone
	status   models.ControlStatus
	logsErr  error
	zoneErr  error
	writeErr error

	// control answers by confirmed flag.
	control    map[bool]api.ControlResult
	controlErr error
	// block, when set, holds Control until closed.
	block chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		control: map[bool]api.ControlResult{
			false: {OperationMode: models.ModeAutomatic},
			true:  {OperationMode: models.ModeAutomatic},
		},
	}
}

func (f *fakeBackend) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeBackend) recorded(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeBackend) Logs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	f.record(call{Method: "logs"})
	return f.logs, f.logsErr
}

func (f *fakeBackend) Zones(ctx context.Context) ([]models.Zone, error) {
	f.record(call{Method: "zones"})
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Zone(nil), f.zones...), f.zoneErr
}

func (f *fakeBackend) CreateZone(ctx context.Context, z models.Zone) (api.ZoneResponse, error) {
	f.record(call{Method: "create", Zone: z})
	if f.writeErr != nil {
		return api.ZoneResponse{}, f.writeErr
	}
	f.mu.Lock()
	f.zones = append(f.zones, z)
	f.mu.Unlock()
	return api.ZoneResponse{Status: "success", ZoneID: z.ID}, nil
}

func (f *fakeBackend) UpdateZone(ctx context.Context, id, name string, points []models.Point) (api.ZoneResponse, error) {
	f.record(call{Method: "update", Zone: models.Zone{ID: id, Name: name, Points: points}})
	if f.writeErr != nil {
		return api.ZoneResponse{}, f.writeErr
	}
	f.mu.Lock()
	for i := range f.zones {
		if f.zones[i].ID == id {
			f.zones[i] = models.Zone{ID: id, Name: name, Points: points}
		}
	}
	f.mu.Unlock()
	return api.ZoneResponse{Status: "success", ZoneID: id}, nil
}

func (f *fakeBackend) DeleteZone(ctx context.Context, id string) (api.ZoneResponse, error) {
	f.record(call{Method: "delete", Zone: models.Zone{ID: id}})
	if f.writeErr != nil {
		return api.ZoneResponse{}, f.writeErr
	}
	f.mu.Lock()
	kept := f.zones[:0]
	for _, z := range f.zones {
		if z.ID != id {
			kept = append(kept, z)
		}
	}
	f.zones = kept
	f.mu.Unlock()
	return api.ZoneResponse{Status: "success", ZoneID: id}, nil
}

func (f *fakeBackend) Control(ctx context.Context, kind api.ControlKind, confirmed bool) (api.ControlResult, error) {
	f.record(call{Method: "control", Kind: kind, Confirmed: confirmed})
	if f.block != nil {
		<-f.block
	}
	if f.controlErr != nil {
		return api.ControlResult{}, f.controlErr
	}
	return f.control[confirmed], nil
}

func (f *fakeBackend) Status(ctx context.Context) (models.ControlStatus, error) {
	f.record(call{Method: "status"})
	return f.status, nil
}

// fakeClock is a Scheduler driven by Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	at time.Duration
	id int
	f  func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{timers: make(map[int]*fakeTimer)}
}

func (c *fakeClock) Schedule(d time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &fakeTimer{at: c.now + d, id: id, f: f}
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, id)
	}
}

// Advance moves time forward and fires due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for id, t := range c.timers {
		if t.at <= c.now {
			due = append(due, t)
			delete(c.timers, id)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].id < due[j].id
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// scriptedConfirmer answers with a fixed decision and counts prompts.
type scriptedConfirmer struct {
	mu      sync.Mutex
	accept  bool
	prompts []string
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, message)
	return c.accept, nil
}
