package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
	"github.com/large-farva/conveyor-guard/internal/telemetry"
)

var (
	ErrTooFewPoints     = fmt.Errorf("a zone needs at least %d points", models.MinZonePoints)
	ErrPointOutOfRange  = errors.New("zone points must be ratios between 0 and 1")
	ErrImageSizeUnknown = errors.New("video frame size is unknown")
	ErrNoZoneSelected   = errors.New("no zone selected")
	ErrNothingToSave    = errors.New("choose create or select a zone first")
	ErrControlBusy      = errors.New("a control command is already in progress")
	ErrDeclined         = errors.New("command cancelled by operator")
	ErrStreamActive     = errors.New("event stream already attached")
)

// Backend is the subset of the REST API the store drives. *api.Client
// satisfies it.
type Backend interface {
	Logs(ctx context.Context, limit int) ([]models.LogEntry, error)
	Zones(ctx context.Context) ([]models.Zone, error)
	CreateZone(ctx context.Context, z models.Zone) (api.ZoneResponse, error)
	UpdateZone(ctx context.Context, id, name string, points []models.Point) (api.ZoneResponse, error)
	DeleteZone(ctx context.Context, id string) (api.ZoneResponse, error)
	Control(ctx context.Context, kind api.ControlKind, confirmed bool) (api.ControlResult, error)
	Status(ctx context.Context) (models.ControlStatus, error)
}

// Confirmer asks the operator to approve a command the backend flagged.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Scheduler runs f once after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (cancel func())

// AfterFunc is the wall-clock Scheduler.
func AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Options configures a Store.
type Options struct {
	LogLimit  int
	MaxLogs   int
	AlertTTL  time.Duration
	PopupTTL  time.Duration
	BannerTTL time.Duration
	ImageSize models.ImageSize

	// Confirmer is asked before resubmitting a command with confirmed=true.
	// Without one every confirmation is declined.
	Confirmer Confirmer
	Schedule  Scheduler
	NewID     func() string
	Logger    *zap.Logger
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		LogLimit:  50,
		MaxLogs:   200,
		AlertTTL:  10 * time.Second,
		PopupTTL:  5 * time.Second,
		BannerTTL: 2 * time.Second,
		ImageSize: models.ImageSize{Width: 640, Height: 480},
	}
}

// Store is the single owner of a session's State. All methods are safe for
// concurrent use; observers are called outside the lock in mutation order.
type Store struct {
	backend Backend
	opts    Options
	log     *zap.Logger

	mu        sync.Mutex
	state     State
	seq       uint64
	observers []func(State)
	timers    map[uint64]func()
	busy      bool
	closed    bool

	// pending holds snapshots not yet delivered; emitting marks the
	// goroutine currently draining it.
	pending  []State
	emitting bool

	streamMu sync.Mutex
	stream   *stream.Client
}

// New creates a store for one dashboard session.
func New(backend Backend, opts Options) *Store {
	if opts.Schedule == nil {
		opts.Schedule = AfterFunc
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		opts:    opts,
		log:     opts.Logger,
		state:   NewState(opts.ImageSize),
		timers:  make(map[uint64]func()),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state, in mutation order.
// An observer may call Store methods; the resulting states are delivered
// after it returns. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
	idx := len(s.observers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.observers) {
			s.observers[idx] = nil
		}
	}
}

// update applies fn under the lock and queues the result for observers.
// Whichever goroutine finds the queue idle drains it, so a nested update
// from inside an observer only enqueues.
func (s *Store) update(fn func(State) State) State {
	s.mu.Lock()
	s.state = fn(s.state)
	snap := s.state
	s.pending = append(s.pending, snap)
	if s.emitting {
		s.mu.Unlock()
		return snap
	}
	s.emitting = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		observers := append([]func(State){}, s.observers...)
		s.mu.Unlock()
		for _, o := range observers {
			if o != nil {
				o(next)
			}
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.emitting = false
	s.mu.Unlock()
	return snap
}

func (s *Store) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// after runs f once d has elapsed, unless the store is closed first.
func (s *Store) after(d time.Duration, f func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	id := s.seq
	s.mu.Unlock()

	cancel := s.opts.Schedule(d, func() {
		s.mu.Lock()
		if _, ok := s.timers[id]; ok {
			delete(s.timers, id)
		} else {
			// Fired before it was registered below.
			s.timers[id] = nil
		}
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			f()
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.timers[id]; ok && c == nil {
		delete(s.timers, id)
		return
	}
	if s.closed {
		cancel()
		return
	}
	s.timers[id] = cancel
}

// AppendLog records a pushed event. CRITICAL and HIGH events raise the
// global alert, which clears itself after AlertTTL unless a newer alert has
// replaced it.
func (s *Store) AppendLog(e models.LogEntry) {
	var alertSeq uint64
	if e.RiskLevel.Alerting() {
		alertSeq = s.nextSeq()
	}
	s.update(func(st State) State {
		st = st.AppendLog(e, s.opts.MaxLogs)
		if alertSeq != 0 {
			st = st.SetAlert(alertSeq, e)
		}
		return st
	})
	if alertSeq == 0 {
		return
	}
	s.log.Info("safety alert raised",
		zap.String("id", e.ID),
		zap.String("event_type", string(e.EventType)),
		zap.String("risk_level", string(e.RiskLevel)),
	)
	s.after(s.opts.AlertTTL, func() {
		s.update(func(st State) State { return st.ClearAlertIf(alertSeq) })
	})
}

// ApplyFrame folds one stream frame into the state, in arrival order.
func (s *Store) ApplyFrame(f telemetry.Frame) {
	switch f := f.(type) {
	case *telemetry.LogFrame:
		s.AppendLog(f.Entry)
	case *telemetry.StatusUpdateFrame:
		s.update(func(st State) State {
			return st.SetMode(f.Status.OperationMode, f.Status.IsLocked)
		})
		if f.Status.Message != "" {
			s.log.Info("control status pushed",
				zap.String("mode", string(f.Status.OperationMode)),
				zap.String("message", f.Status.Message),
			)
		}
	case *telemetry.RawFrame:
		s.log.Warn("unrecognized stream frame", zap.String("text", f.Text))
	}
}

// Load performs the initial fetch of logs, zones and control status. A log
// or zone failure sets the blocking Error; a status failure is only logged.
func (s *Store) Load(ctx context.Context) error {
	s.update(func(st State) State { return st.SetLoading(true).SetError("") })

	logs, err := s.backend.Logs(ctx, s.opts.LogLimit)
	if err != nil {
		s.update(func(st State) State {
			return st.SetLoading(false).SetError("Failed to load logs: " + errText(err))
		})
		return err
	}
	zones, err := s.backend.Zones(ctx)
	if err != nil {
		s.update(func(st State) State {
			return st.SetLoading(false).SetError("Failed to load zones: " + errText(err))
		})
		return err
	}

	status, statusErr := s.backend.Status(ctx)
	if statusErr != nil {
		s.log.Warn("control status unavailable", zap.Error(statusErr))
	}

	s.update(func(st State) State {
		st = st.SetLogs(logs, s.opts.MaxLogs).SetZones(zones).SetLoading(false)
		if statusErr == nil {
			st = st.SetMode(status.Mode(), status.IsLocked)
		}
		return st
	})
	s.log.Info("dashboard loaded", zap.Int("logs", len(logs)), zap.Int("zones", len(zones)))
	return nil
}

// DismissPopup clears the popup error immediately.
func (s *Store) DismissPopup() {
	s.update(State.ClearPopupError)
}

// SetImageSize records the rendered size of the video frame.
func (s *Store) SetImageSize(size models.ImageSize) {
	s.update(func(st State) State { return st.SetImageSize(size) })
}

// popup shows an action failure that dismisses itself after PopupTTL.
func (s *Store) popup(text string) {
	seq := s.nextSeq()
	s.update(func(st State) State { return st.SetPopupError(seq, text) })
	s.after(s.opts.PopupTTL, func() {
		s.update(func(st State) State { return st.ClearPopupErrorIf(seq) })
	})
}

// banner shows a success message that dismisses itself after BannerTTL.
func (s *Store) banner(text string) {
	seq := s.nextSeq()
	s.update(func(st State) State { return st.SetBanner(seq, text) })
	s.after(s.opts.BannerTTL, func() {
		s.update(func(st State) State { return st.ClearBannerIf(seq) })
	})
}

// AttachStream opens the session's event stream. Frames are applied in
// arrival order and connection changes are reflected in State. Only one
// stream may be live per store.
func (s *Store) AttachStream(ctx context.Context, url string, opts stream.Options) error {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.stream != nil {
		select {
		case <-s.stream.Done():
		default:
			return ErrStreamActive
		}
	}
	if opts.Logger == nil {
		opts.Logger = s.log
	}
	observe := opts.OnStatus
	opts.OnStatus = func(st stream.Status) {
		s.update(func(state State) State { return state.SetConnection(st) })
		if observe != nil {
			observe(st)
		}
	}

	c, err := stream.Connect(ctx, url, s.ApplyFrame, opts)
	if err != nil {
		return fmt.Errorf("attach stream: %w", err)
	}
	s.stream = c
	return nil
}

// DetachStream closes the event stream, if any, and waits for it to stop.
func (s *Store) DetachStream() {
	s.streamMu.Lock()
	c := s.stream
	s.stream = nil
	s.streamMu.Unlock()

	if c != nil {
		c.Close()
	}
}

// Close ends the session: the stream is torn down and pending timers are
// cancelled.
func (s *Store) Close() {
	s.DetachStream()

	s.mu.Lock()
	s.closed = true
	timers := s.timers
	s.timers = make(map[uint64]func())
	s.mu.Unlock()

	for _, cancel := range timers {
		if cancel != nil {
			cancel()
		}
	}
}

// errText prefers the backend's detail message over the wrapped chain.
func errText(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) && ae.Detail != "" {
		return ae.Detail
	}
	return err.Error()
}
