package sim

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/conveyor-guard/internal/api"
	"github.com/large-farva/conveyor-guard/internal/config"
	"github.com/large-farva/conveyor-guard/internal/dashboard"
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
)

// Dashboard sessions driven against a live simulator.

func newSession(t *testing.T, c *api.Client, accept bool, prompts *int) *dashboard.Store {
	t.Helper()
	opts := dashboard.DefaultOptions()
	opts.Confirmer = dashboard.ConfirmFunc(func(context.Context, string) (bool, error) {
		*prompts++
		return accept, nil
	})
	s := dashboard.New(c, opts)
	t.Cleanup(s.Close)
	return s
}

func TestSession_LoadAndCreateZone(t *testing.T) {
	a, _, c := startSim(t, config.SimConfig{})
	a.Emit(models.LogEntry{EventType: models.EventNormalOperation})
	a.Emit(models.LogEntry{EventType: models.EventCrouchingWarn})

	var prompts int
	s := newSession(t, c, true, &prompts)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	st := s.Snapshot()
	require.Len(t, st.Logs, 2)
	assert.Equal(t, models.EventCrouchingWarn, st.Logs[0].EventType)
	assert.Equal(t, models.ModeInactive, st.Mode)

	require.NoError(t, s.EnterZoneConfig(ctx))
	z, err := s.CreateZone(ctx, []models.Point{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}, {X: 0.3, Y: 0.4}}, "")
	require.NoError(t, err)

	stored, err := a.Plant().Zone(z.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 64, Y: 48}, {X: 320, Y: 48}, {X: 192, Y: 192}}, stored.Points)
	assert.Equal(t, "Zone 1", stored.Name)

	st = s.Snapshot()
	require.Len(t, st.Zones, 1)
	assert.Equal(t, z.ID, st.Zones[0].ID)
	require.NotNil(t, st.Banner)

	require.NoError(t, s.DeleteZone(ctx, z.ID))
	assert.Empty(t, s.Snapshot().Zones)
	assert.Empty(t, a.Plant().Zones())
}

func TestSession_ConfirmedStart(t *testing.T) {
	a, _, c := startSim(t, config.SimConfig{RequireConfirmation: true})

	var prompts int
	s := newSession(t, c, true, &prompts)
	require.NoError(t, s.DispatchControl(context.Background(), api.ControlStartAutomatic))

	assert.Equal(t, 1, prompts)
	assert.Equal(t, models.ModeAutomatic, s.Snapshot().Mode)
	mode, _ := a.Plant().Mode()
	assert.Equal(t, models.ModeAutomatic, mode)
}

func TestSession_DeclinedStart(t *testing.T) {
	a, _, c := startSim(t, config.SimConfig{RequireConfirmation: true})

	var prompts int
	s := newSession(t, c, false, &prompts)
	err := s.DispatchControl(context.Background(), api.ControlStartAutomatic)
	require.ErrorIs(t, err, dashboard.ErrDeclined)

	assert.Equal(t, 1, prompts)
	assert.Nil(t, s.Snapshot().Popup)
	mode, _ := a.Plant().Mode()
	assert.Equal(t, models.ModeInactive, mode)
}

func TestSession_LockedControlShowsPopup(t *testing.T) {
	a, _, c := startSim(t, config.SimConfig{})
	a.Emit(models.LogEntry{EventType: models.EventCriticalSensor})

	var prompts int
	s := newSession(t, c, true, &prompts)
	err := s.DispatchControl(context.Background(), api.ControlStartMaintenance)
	require.Error(t, err)

	st := s.Snapshot()
	require.NotNil(t, st.Popup)
	assert.Contains(t, st.Popup.Text, "reset required")
}

func TestSession_StreamRaisesAlert(t *testing.T) {
	a, srv, c := startSim(t, config.SimConfig{})

	var prompts int
	s := newSession(t, c, true, &prompts)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/logs"
	require.NoError(t, s.AttachStream(context.Background(), url, stream.DefaultOptions()))

	require.Eventually(t, func() bool {
		return s.Snapshot().Connection == stream.StateOpen && a.Hub().Clients() == 1
	}, 5*time.Second, 5*time.Millisecond)

	e := a.Emit(models.LogEntry{EventType: models.EventCriticalFalling})
	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return st.Alert != nil && st.Locked
	}, 5*time.Second, 5*time.Millisecond)

	st := s.Snapshot()
	assert.Equal(t, e.ID, st.Alert.Entry.ID)
	require.NotEmpty(t, st.Logs)
	assert.Equal(t, e.ID, st.Logs[0].ID)

	s.DetachStream()
	assert.Equal(t, stream.StateClosed, s.Snapshot().Connection)
}
