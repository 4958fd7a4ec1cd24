// Package dashboard owns the state of one operator session: the event log,
// zones, the conveyor's operation mode, connection status and the transient
// notices shown to the operator. State is a plain value changed only through
// the pure transitions in this file; Store serializes those transitions and
// performs the network calls and timers around them.
package dashboard

import (
	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
)

// ZoneAction is what the zone editor is doing.
type ZoneAction string

const (
	ZoneActionView   ZoneAction = "view"
	ZoneActionCreate ZoneAction = "create"
	ZoneActionUpdate ZoneAction = "update"
)

// Notice is a transient message. Seq identifies the notice so a late timer
// can only dismiss the notice it was started for.
type Notice struct {
	Seq  uint64
	Text string
}

// Alert is the global safety alert raised by a CRITICAL or HIGH event.
type Alert struct {
	Seq   uint64
	Entry models.LogEntry
}

// State is a snapshot of the dashboard. Slices are never modified in place,
// so a snapshot stays valid after later transitions.
type State struct {
	Logs   []models.LogEntry
	Zones  []models.Zone
	Mode   models.OperationMode
	Locked bool

	Connection     stream.State
	ConnectionErr  string
	Retries        int
	ConnectionLost bool

	Loading bool
	// Error blocks the dashboard; it is set when the initial load fails.
	Error  string
	Popup  *Notice
	Banner *Notice
	Alert  *Alert

	ZoneConfig   bool
	ZoneAction   ZoneAction
	SelectedZone string
	DraftName    string
	// DraftPoints are ratios in [0,1] of the rendered video frame.
	DraftPoints []models.Point
	ImageSize   models.ImageSize
}

// NewState returns the state of a fresh session.
func NewState(size models.ImageSize) State {
	return State{
		Mode:       models.ModeUnknown,
		Connection: stream.StateConnecting,
		ZoneAction: ZoneActionView,
		ImageSize:  size,
	}
}

// AppendLog puts e at the front of the log, dropping the oldest entries
// beyond max. A max <= 0 means unbounded.
func (s State) AppendLog(e models.LogEntry, max int) State {
	n := len(s.Logs) + 1
	if max > 0 && n > max {
		n = max
	}
	logs := make([]models.LogEntry, 0, n)
	logs = append(logs, e)
	logs = append(logs, s.Logs[:n-1]...)
	s.Logs = logs
	return s
}

// SetLogs replaces the log with a fetched page, already newest first.
func (s State) SetLogs(logs []models.LogEntry, max int) State {
	if max > 0 && len(logs) > max {
		logs = logs[:max]
	}
	s.Logs = append([]models.LogEntry(nil), logs...)
	return s
}

func (s State) SetZones(zones []models.Zone) State {
	s.Zones = append([]models.Zone(nil), zones...)
	if s.SelectedZone != "" && s.zone(s.SelectedZone) == nil {
		s.SelectedZone = ""
		if s.ZoneAction == ZoneActionUpdate {
			s.ZoneAction = ZoneActionView
		}
	}
	return s
}

func (s State) SetMode(mode models.OperationMode, locked bool) State {
	s.Mode = mode
	s.Locked = locked
	return s
}

func (s State) SetConnection(st stream.Status) State {
	s.Connection = st.State
	s.Retries = st.Retries
	s.ConnectionErr = ""
	if st.Err != nil {
		s.ConnectionErr = st.Err.Error()
	}
	s.ConnectionLost = st.Terminal
	return s
}

func (s State) SetLoading(loading bool) State {
	s.Loading = loading
	return s
}

func (s State) SetError(msg string) State {
	s.Error = msg
	return s
}

func (s State) SetAlert(seq uint64, e models.LogEntry) State {
	s.Alert = &Alert{Seq: seq, Entry: e}
	return s
}

// ClearAlertIf clears the alert only if it is still the one raised as seq.
func (s State) ClearAlertIf(seq uint64) State {
	if s.Alert != nil && s.Alert.Seq == seq {
		s.Alert = nil
	}
	return s
}

func (s State) SetPopupError(seq uint64, text string) State {
	s.Popup = &Notice{Seq: seq, Text: text}
	return s
}

func (s State) ClearPopupErrorIf(seq uint64) State {
	if s.Popup != nil && s.Popup.Seq == seq {
		s.Popup = nil
	}
	return s
}

func (s State) ClearPopupError() State {
	s.Popup = nil
	return s
}

func (s State) SetBanner(seq uint64, text string) State {
	s.Banner = &Notice{Seq: seq, Text: text}
	return s
}

func (s State) ClearBannerIf(seq uint64) State {
	if s.Banner != nil && s.Banner.Seq == seq {
		s.Banner = nil
	}
	return s
}

// EnterZoneConfig opens the zone editor in view mode.
func (s State) EnterZoneConfig() State {
	s.ZoneConfig = true
	s.ZoneAction = ZoneActionView
	return s
}

// ExitZoneConfig closes the editor and discards the selection and draft.
func (s State) ExitZoneConfig() State {
	s.ZoneConfig = false
	s.ZoneAction = ZoneActionView
	s.SelectedZone = ""
	return s.ResetDraft()
}

// SelectZone makes id the zone being edited and loads its name and points
// into the draft. An empty id clears the selection.
func (s State) SelectZone(id string) State {
	if id == "" {
		s.SelectedZone = ""
		s.ZoneAction = ZoneActionView
		return s.ResetDraft()
	}
	z := s.zone(id)
	if z == nil {
		return s
	}
	s.SelectedZone = id
	s.ZoneAction = ZoneActionUpdate
	s.DraftName = z.Name
	s.DraftPoints = nil
	if s.ImageSize.Known() {
		pts := make([]models.Point, 0, len(z.Points))
		for _, p := range z.Points {
			pts = append(pts, s.ImageSize.ToRatio(p))
		}
		s.DraftPoints = pts
	}
	return s
}

func (s State) SetDraftName(name string) State {
	s.DraftName = name
	return s
}

// SetZoneAction switches the editor. Starting a new zone drops the selection
// and the draft.
func (s State) SetZoneAction(a ZoneAction) State {
	s.ZoneAction = a
	switch a {
	case ZoneActionCreate:
		s.SelectedZone = ""
		s = s.ResetDraft()
	case ZoneActionView:
		s = s.ResetDraft()
	}
	return s
}

func (s State) AddDraftPoint(p models.Point) State {
	pts := make([]models.Point, 0, len(s.DraftPoints)+1)
	pts = append(pts, s.DraftPoints...)
	s.DraftPoints = append(pts, p)
	return s
}

func (s State) RemoveLastDraftPoint() State {
	if len(s.DraftPoints) == 0 {
		return s
	}
	s.DraftPoints = append([]models.Point(nil), s.DraftPoints[:len(s.DraftPoints)-1]...)
	return s
}

func (s State) ResetDraft() State {
	s.DraftName = ""
	s.DraftPoints = nil
	return s
}

func (s State) SetImageSize(size models.ImageSize) State {
	s.ImageSize = size
	return s
}

// Zone returns the zone with the given id, if loaded.
func (s State) Zone(id string) (models.Zone, bool) {
	z := s.zone(id)
	if z == nil {
		return models.Zone{}, false
	}
	return *z, true
}

func (s State) zone(id string) *models.Zone {
	for i := range s.Zones {
		if s.Zones[i].ID == id {
			return &s.Zones[i]
		}
	}
	return nil
}
