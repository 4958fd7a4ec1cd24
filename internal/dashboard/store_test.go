package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
	"github.com/large-farva/conveyor-guard/internal/telemetry"
)

func newTestStore(t *testing.T, b *fakeBackend, clock *fakeClock, confirm Confirmer) *Store {
	t.Helper()
	opts := DefaultOptions()
	opts.Schedule = clock.Schedule
	opts.Confirmer = confirm
	opts.Logger = zap.NewNop()
	n := 0
	opts.NewID = func() string {
		n++
		return fmt.Sprintf("zone-%d", n)
	}
	s := New(b, opts)
	t.Cleanup(s.Close)
	return s
}

func entry(id string, risk models.RiskLevel) models.LogEntry {
	return models.LogEntry{
		ID:        id,
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: models.EventCriticalFalling,
		RiskLevel: risk,
	}
}

func TestApplyFrame_CriticalEventRaisesAlert(t *testing.T) {
	s := newTestStore(t, newFakeBackend(), newFakeClock(), nil)

	frame := telemetry.Decode([]byte(`{"event_type":"LOG_CRITICAL_FALLING","risk_level":"CRITICAL","id":"e1","timestamp":"2025-01-01T00:00:00Z"}`))
	s.ApplyFrame(frame)

	st := s.Snapshot()
	require.Len(t, st.Logs, 1)
	assert.Equal(t, "e1", st.Logs[0].ID)
	require.NotNil(t, st.Alert)
	assert.Equal(t, "e1", st.Alert.Entry.ID)
}

func TestAppendLog_NewestFirstAndCapped(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.MaxLogs = 3
	opts.Schedule = clock.Schedule
	s := New(b, opts)
	defer s.Close()

	for i := 1; i <= 5; i++ {
		s.AppendLog(entry(fmt.Sprint(i), models.RiskSafe))
	}
	st := s.Snapshot()
	require.Len(t, st.Logs, 3)
	assert.Equal(t, "5", st.Logs[0].ID)
	assert.Equal(t, "3", st.Logs[2].ID)
	assert.Nil(t, st.Alert)
}

func TestAlert_ClearsAfterTTL(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, newFakeBackend(), clock, nil)

	s.AppendLog(entry("h1", models.RiskHigh))
	require.NotNil(t, s.Snapshot().Alert)

	clock.Advance(9 * time.Second)
	require.NotNil(t, s.Snapshot().Alert)

	clock.Advance(time.Second)
	assert.Nil(t, s.Snapshot().Alert)
}

func TestApplyFrame_EpochTimestampStillAlerts(t *testing.T) {
	s := newTestStore(t, newFakeBackend(), newFakeClock(), nil)

	s.ApplyFrame(telemetry.Decode([]byte(`{"type":"LOG","data":{"id":"e1","event_type":"LOG_CRITICAL_FALLING","risk_level":"CRITICAL","timestamp":1735689600}}`)))
	s.ApplyFrame(telemetry.Decode([]byte(`{"id":"e2","event_type":"LOG_CRITICAL_SENSOR","timestamp":"2025-01-01T09:00:00+0900"}`)))

	st := s.Snapshot()
	require.Len(t, st.Logs, 2)
	assert.Equal(t, "e2", st.Logs[0].ID)
	assert.True(t, st.Logs[1].Timestamp.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, st.Alert)
	assert.Equal(t, "e2", st.Alert.Entry.ID)
}

func TestAlert_EarlierTimerDoesNotClearNewerAlert(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, newFakeBackend(), clock, nil)

	s.AppendLog(entry("a", models.RiskCritical))
	clock.Advance(5 * time.Second)
	s.AppendLog(entry("b", models.RiskCritical))

	// a's timer fires here.
	clock.Advance(5 * time.Second)
	st := s.Snapshot()
	require.NotNil(t, st.Alert)
	assert.Equal(t, "b", st.Alert.Entry.ID)

	clock.Advance(5 * time.Second)
	assert.Nil(t, s.Snapshot().Alert)
}

func TestAlert_SameIDStillSuperseded(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, newFakeBackend(), clock, nil)

	s.AppendLog(entry("dup", models.RiskCritical))
	clock.Advance(5 * time.Second)
	s.AppendLog(entry("dup", models.RiskCritical))
	clock.Advance(5 * time.Second)
	assert.NotNil(t, s.Snapshot().Alert)
}

func TestApplyFrame_StatusAndRaw(t *testing.T) {
	s := newTestStore(t, newFakeBackend(), newFakeClock(), nil)

	s.ApplyFrame(&telemetry.StatusUpdateFrame{Status: telemetry.StatusUpdate{
		OperationMode: models.ModeInactive,
		IsLocked:      true,
	}})
	st := s.Snapshot()
	assert.Equal(t, models.ModeInactive, st.Mode)
	assert.True(t, st.Locked)

	before := s.Snapshot()
	s.ApplyFrame(&telemetry.RawFrame{Text: "garbage"})
	assert.Equal(t, before, s.Snapshot())
}

func TestLoad(t *testing.T) {
	b := newFakeBackend()
	b.logs = []models.LogEntry{entry("2", models.RiskSafe), entry("1", models.RiskSafe)}
	b.zones = []models.Zone{{ID: "z", Name: "Press", Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}}}
	mode := "MAINTENANCE"
	b.status = models.ControlStatus{OperationMode: &mode}
	s := newTestStore(t, b, newFakeClock(), nil)

	require.NoError(t, s.Load(context.Background()))
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Len(t, st.Logs, 2)
	assert.Len(t, st.Zones, 1)
	assert.Equal(t, models.ModeMaintenance, st.Mode)
}

func TestLoad_FailureSetsBlockingError(t *testing.T) {
	b := newFakeBackend()
	b.logsErr = &api.Error{Status: 500, Detail: "database offline"}
	s := newTestStore(t, b, newFakeClock(), nil)

	err := s.Load(context.Background())
	require.Error(t, err)
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Contains(t, st.Error, "database offline")
	assert.Nil(t, st.Popup)
}

func TestCreateZone_ConvertsToPixelsAndRefetches(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	s := newTestStore(t, b, clock, nil)

	points := []models.Point{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}, {X: 0.3, Y: 0.4}}
	z, err := s.CreateZone(context.Background(), points, "Belt-1")
	require.NoError(t, err)
	assert.Equal(t, "zone-1", z.ID)

	creates := b.recorded("create")
	require.Len(t, creates, 1)
	got := creates[0].Zone
	assert.Equal(t, "Belt-1", got.Name)
	require.Len(t, got.Points, 3)
	want := []models.Point{{X: 64, Y: 48}, {X: 320, Y: 48}, {X: 192, Y: 192}}
	for i := range want {
		assert.InDelta(t, want[i].X, got.Points[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, got.Points[i].Y, 1e-9)
	}

	assert.Equal(t, []string{"create", "zones"}, b.methods())
	st := s.Snapshot()
	require.Len(t, st.Zones, 1)
	require.NotNil(t, st.Banner)

	clock.Advance(2 * time.Second)
	assert.Nil(t, s.Snapshot().Banner)
}

func TestCreateZone_DefaultName(t *testing.T) {
	b := newFakeBackend()
	b.zones = []models.Zone{{ID: "old"}}
	s := newTestStore(t, b, newFakeClock(), nil)
	require.NoError(t, s.RefreshZones(context.Background()))

	z, err := s.CreateZone(context.Background(), []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, "Zone 2", z.Name)
}

func TestZoneWrites_RejectedLocally(t *testing.T) {
	cases := []struct {
		name   string
		points []models.Point
		size   models.ImageSize
		want   error
	}{
		{"empty", nil, models.ImageSize{Width: 640, Height: 480}, ErrTooFewPoints},
		{"two points", []models.Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}, models.ImageSize{Width: 640, Height: 480}, ErrTooFewPoints},
		{"out of range", []models.Point{{X: 0.1, Y: 0.1}, {X: 1.2, Y: 0.2}, {X: 0.3, Y: 0.3}}, models.ImageSize{Width: 640, Height: 480}, ErrPointOutOfRange},
		{"no image size", []models.Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}, {X: 0.3, Y: 0.3}}, models.ImageSize{}, ErrImageSizeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newFakeBackend()
			b.zones = []models.Zone{{ID: "z1", Name: "Press"}}
			s := newTestStore(t, b, newFakeClock(), nil)
			s.SetImageSize(tc.size)

			_, err := s.CreateZone(context.Background(), tc.points, "x")
			assert.ErrorIs(t, err, tc.want)
			err = s.UpdateZone(context.Background(), "z1", tc.points)
			assert.ErrorIs(t, err, tc.want)

			assert.Empty(t, b.methods())
			require.NotNil(t, s.Snapshot().Popup)
		})
	}
}

func TestUpdateZone(t *testing.T) {
	b := newFakeBackend()
	b.zones = []models.Zone{{ID: "z1", Name: "Press", Points: []models.Point{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 64, Y: 48}}}}
	s := newTestStore(t, b, newFakeClock(), nil)
	ctx := context.Background()
	require.NoError(t, s.RefreshZones(ctx))

	require.NoError(t, s.UpdateZone(ctx, "z1", []models.Point{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}, {X: 1, Y: 1}}))
	updates := b.recorded("update")
	require.Len(t, updates, 1)
	assert.Equal(t, "Press", updates[0].Zone.Name)
	assert.Equal(t, models.Point{X: 320, Y: 240}, updates[0].Zone.Points[0])
	assert.Equal(t, []string{"zones", "update", "zones"}, b.methods())

	err := s.UpdateZone(ctx, "", []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrNoZoneSelected)
}

func TestDeleteZone_ClearsSelection(t *testing.T) {
	b := newFakeBackend()
	b.zones = []models.Zone{{ID: "z1", Name: "Press", Points: []models.Point{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 64, Y: 48}}}}
	s := newTestStore(t, b, newFakeClock(), nil)
	ctx := context.Background()
	require.NoError(t, s.EnterZoneConfig(ctx))
	require.NoError(t, s.Dispatch(ctx, SelectZone{ID: "z1"}))

	require.NoError(t, s.Dispatch(ctx, DeleteZone{}))
	st := s.Snapshot()
	assert.Empty(t, st.SelectedZone)
	assert.Empty(t, st.Zones)
	assert.Equal(t, ZoneActionView, st.ZoneAction)
}

func TestZoneWriteFailureShowsDetail(t *testing.T) {
	b := newFakeBackend()
	b.writeErr = &api.Error{Status: 409, Detail: "zone already exists"}
	clock := newFakeClock()
	s := newTestStore(t, b, clock, nil)

	_, err := s.CreateZone(context.Background(), []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, "A")
	require.Error(t, err)
	st := s.Snapshot()
	require.NotNil(t, st.Popup)
	assert.Contains(t, st.Popup.Text, "zone already exists")
	assert.Empty(t, st.Zones)
	assert.Equal(t, []string{"create"}, b.methods())

	clock.Advance(5 * time.Second)
	assert.Nil(t, s.Snapshot().Popup)
}

func TestDispatchControl_ConfirmAccepted(t *testing.T) {
	b := newFakeBackend()
	b.control[false] = api.ControlResult{ConfirmationRequired: true, Message: "Personnel in zone. Start anyway?"}
	b.control[true] = api.ControlResult{OperationMode: models.ModeAutomatic}
	confirm := &scriptedConfirmer{accept: true}
	s := newTestStore(t, b, newFakeClock(), confirm)

	require.NoError(t, s.DispatchControl(context.Background(), api.ControlStartAutomatic))

	calls := b.recorded("control")
	require.Len(t, calls, 2)
	assert.False(t, calls[0].Confirmed)
	assert.True(t, calls[1].Confirmed)
	assert.Equal(t, []string{"Personnel in zone. Start anyway?"}, confirm.prompts)
	assert.Equal(t, models.ModeAutomatic, s.Snapshot().Mode)
}

func TestDispatchControl_ConfirmDeclined(t *testing.T) {
	b := newFakeBackend()
	b.control[false] = api.ControlResult{ConfirmationRequired: true, Message: "Start anyway?"}
	s := newTestStore(t, b, newFakeClock(), &scriptedConfirmer{accept: false})

	err := s.DispatchControl(context.Background(), api.ControlStartAutomatic)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Len(t, b.recorded("control"), 1)
	assert.Equal(t, models.ModeUnknown, s.Snapshot().Mode)
	assert.Nil(t, s.Snapshot().Popup)
}

func TestDispatchControl_ConfirmedCallNeverReprompts(t *testing.T) {
	b := newFakeBackend()
	b.control[false] = api.ControlResult{ConfirmationRequired: true}
	b.control[true] = api.ControlResult{ConfirmationRequired: true}
	confirm := &scriptedConfirmer{accept: true}
	s := newTestStore(t, b, newFakeClock(), confirm)

	err := s.DispatchControl(context.Background(), api.ControlStartAutomatic)
	require.Error(t, err)
	assert.Len(t, b.recorded("control"), 2)
	assert.Len(t, confirm.prompts, 1)
	assert.NotNil(t, s.Snapshot().Popup)
}

func TestDispatchControl_NoConfirmerDeclines(t *testing.T) {
	b := newFakeBackend()
	b.control[false] = api.ControlResult{ConfirmationRequired: true}
	s := newTestStore(t, b, newFakeClock(), nil)

	assert.ErrorIs(t, s.DispatchControl(context.Background(), api.ControlStartAutomatic), ErrDeclined)
	assert.Len(t, b.recorded("control"), 1)
}

func TestDispatchControl_FailureIsPopup(t *testing.T) {
	b := newFakeBackend()
	b.controlErr = &api.Error{Status: 409, Detail: "system locked"}
	clock := newFakeClock()
	s := newTestStore(t, b, clock, nil)
	s.update(func(st State) State { return st.SetMode(models.ModeMaintenance, false) })

	err := s.DispatchControl(context.Background(), api.ControlStop)
	require.Error(t, err)
	st := s.Snapshot()
	require.NotNil(t, st.Popup)
	assert.Contains(t, st.Popup.Text, "system locked")
	assert.Equal(t, models.ModeMaintenance, st.Mode)

	clock.Advance(5 * time.Second)
	assert.Nil(t, s.Snapshot().Popup)
}

func TestDispatchControl_Serialized(t *testing.T) {
	b := newFakeBackend()
	b.block = make(chan struct{})
	s := newTestStore(t, b, newFakeClock(), nil)

	done := make(chan error, 1)
	go func() { done <- s.DispatchControl(context.Background(), api.ControlStartMaintenance) }()
	require.Eventually(t, func() bool { return len(b.recorded("control")) == 1 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.DispatchControl(context.Background(), api.ControlStop), ErrControlBusy)
	close(b.block)
	require.NoError(t, <-done)
	assert.Len(t, b.recorded("control"), 1)
}

func TestExitZoneConfig_ClearsSelectionAndDraft(t *testing.T) {
	for _, action := range []ZoneAction{ZoneActionView, ZoneActionCreate, ZoneActionUpdate} {
		t.Run(string(action), func(t *testing.T) {
			b := newFakeBackend()
			b.zones = []models.Zone{{ID: "z1", Name: "Press", Points: []models.Point{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 64, Y: 48}}}}
			s := newTestStore(t, b, newFakeClock(), nil)
			ctx := context.Background()

			require.NoError(t, s.Dispatch(ctx, EnterZoneConfig{}))
			require.NoError(t, s.Dispatch(ctx, SelectZone{ID: "z1"}))
			require.NoError(t, s.Dispatch(ctx, SetZoneAction{Action: action}))
			require.NoError(t, s.Dispatch(ctx, SetDraftName{Name: "draft"}))
			require.NoError(t, s.Dispatch(ctx, AddPoint{Point: models.Point{X: 0.2, Y: 0.2}}))

			require.NoError(t, s.Dispatch(ctx, ExitZoneConfig{}))
			st := s.Snapshot()
			assert.False(t, st.ZoneConfig)
			assert.Empty(t, st.SelectedZone)
			assert.Empty(t, st.DraftName)
			assert.Empty(t, st.DraftPoints)
		})
	}
}

func TestDispatch_DrawAndSave(t *testing.T) {
	b := newFakeBackend()
	s := newTestStore(t, b, newFakeClock(), nil)
	ctx := context.Background()

	require.NoError(t, s.Dispatch(ctx, SetImageSize{Size: models.ImageSize{Width: 100, Height: 200}}))
	require.NoError(t, s.Dispatch(ctx, EnterZoneConfig{}))
	require.NoError(t, s.Dispatch(ctx, SetZoneAction{Action: ZoneActionCreate}))
	require.NoError(t, s.Dispatch(ctx, SetDraftName{Name: "Loading bay"}))
	for _, p := range []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.9}} {
		require.NoError(t, s.Dispatch(ctx, AddPoint{Point: p}))
	}
	require.NoError(t, s.Dispatch(ctx, UndoPoint{}))

	assert.ErrorIs(t, s.Dispatch(ctx, AddPoint{Point: models.Point{X: -0.1, Y: 0}}), ErrPointOutOfRange)
	require.NoError(t, s.Dispatch(ctx, DismissPopup{}))
	assert.Nil(t, s.Snapshot().Popup)

	require.NoError(t, s.Dispatch(ctx, SaveZone{}))
	creates := b.recorded("create")
	require.Len(t, creates, 1)
	assert.Equal(t, "Loading bay", creates[0].Zone.Name)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}}, creates[0].Zone.Points)

	st := s.Snapshot()
	assert.Equal(t, ZoneActionView, st.ZoneAction)
	assert.Empty(t, st.DraftPoints)
	assert.Len(t, st.Zones, 1)
}

func TestDispatch_SaveWithoutActionIsRejected(t *testing.T) {
	b := newFakeBackend()
	s := newTestStore(t, b, newFakeClock(), nil)

	assert.ErrorIs(t, s.Dispatch(context.Background(), SaveZone{}), ErrNothingToSave)
	assert.Empty(t, b.methods())
}

func TestDispatch_ControlCommand(t *testing.T) {
	b := newFakeBackend()
	b.control[false] = api.ControlResult{OperationMode: models.ModeMaintenance}
	s := newTestStore(t, b, newFakeClock(), nil)

	require.NoError(t, s.Dispatch(context.Background(), Control{Kind: api.ControlStartMaintenance}))
	assert.Equal(t, models.ModeMaintenance, s.Snapshot().Mode)
}

func TestSubscribe_ObserversSeeEveryChange(t *testing.T) {
	s := newTestStore(t, newFakeBackend(), newFakeClock(), nil)

	var seen []int
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, len(st.Logs)) })
	s.AppendLog(entry("1", models.RiskSafe))
	s.AppendLog(entry("2", models.RiskSafe))
	unsubscribe()
	s.AppendLog(entry("3", models.RiskSafe))

	assert.Equal(t, []int{1, 2}, seen)
}

func TestSubscribe_ObserverMayCallStore(t *testing.T) {
	b := newFakeBackend()
	b.controlErr = &api.Error{Status: 409, Detail: "system locked"}
	s := newTestStore(t, b, newFakeClock(), nil)

	var popups []bool
	s.Subscribe(func(st State) {
		popups = append(popups, st.Popup != nil)
		if st.Popup != nil {
			s.DismissPopup()
		}
	})

	done := make(chan error, 1)
	go func() { done <- s.DispatchControl(context.Background(), api.ControlStop) }()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("DispatchControl did not return")
	}

	assert.Nil(t, s.Snapshot().Popup)
	require.NotEmpty(t, popups)
	assert.False(t, popups[len(popups)-1])
	assert.Contains(t, popups, true)
}

func TestClose_StopsTimers(t *testing.T) {
	clock := newFakeClock()
	b := newFakeBackend()
	opts := DefaultOptions()
	opts.Schedule = clock.Schedule
	s := New(b, opts)

	s.AppendLog(entry("x", models.RiskCritical))
	require.Equal(t, 1, clock.Pending())
	s.Close()
	assert.Equal(t, 0, clock.Pending())
	assert.NotNil(t, s.Snapshot().Alert)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func TestAttachStream_FramesAndTeardown(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event_type":"LOG_CRITICAL_FALLING","risk_level":"CRITICAL","id":"e1","timestamp":"2025-01-01T00:00:00Z"}`))
		<-release
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	s := newTestStore(t, newFakeBackend(), newFakeClock(), nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/logs"
	opts := stream.Options{RetryDelay: 5 * time.Millisecond, MaxRetries: 3}

	require.NoError(t, s.AttachStream(context.Background(), url, opts))
	assert.ErrorIs(t, s.AttachStream(context.Background(), url, opts), ErrStreamActive)

	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return st.Connection == stream.StateOpen && len(st.Logs) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "e1", s.Snapshot().Alert.Entry.ID)

	s.DetachStream()
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	st := s.Snapshot()
	assert.Equal(t, stream.StateClosed, st.Connection)
	assert.True(t, st.ConnectionLost)

	// A stopped stream can be replaced.
	require.NoError(t, s.AttachStream(context.Background(), url, opts))
}

func TestErrText(t *testing.T) {
	assert.Equal(t, "nope", errText(fmt.Errorf("wrap: %w", &api.Error{Status: 400, Detail: "nope"})))
	assert.Equal(t, "plain", errText(errors.New("plain")))
}
