package models

import "strings"

// OperationMode is the conveyor's control regime. The backend owns it; the
// client only caches the last value it saw.
type OperationMode string

const (
	ModeUnknown     OperationMode = ""
	ModeAutomatic   OperationMode = "AUTOMATIC"
	ModeMaintenance OperationMode = "MAINTENANCE"
	ModeInactive    OperationMode = "INACTIVE"
)

// ParseOperationMode folds the names used across backend revisions onto the
// three canonical modes. A null or empty mode means the system is stopped.
func ParseOperationMode(s string) OperationMode {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "AUTOMATIC", "AUTO", "ON", "RUNNING":
		return ModeAutomatic
	case "MAINTENANCE", "LOTO":
		return ModeMaintenance
	case "", "NULL", "NONE", "INACTIVE", "STOPPED", "STOP", "OFF":
		return ModeInactive
	default:
		return OperationMode(v)
	}
}

// Label returns the operator-facing name of the mode.
func (m OperationMode) Label() string {
	switch m {
	case ModeAutomatic:
		return "Automatic"
	case ModeMaintenance:
		return "Maintenance"
	case ModeInactive:
		return "Stopped"
	case ModeUnknown:
		return "Unknown"
	default:
		return string(m)
	}
}

// ControlStatus mirrors GET /api/control/status. Older backends only report
// is_operating.
type ControlStatus struct {
	IsOperating   *bool   `json:"is_operating,omitempty"`
	OperationMode *string `json:"operation_mode,omitempty"`
	IsLocked      bool    `json:"is_locked,omitempty"`
}

// Mode resolves the reported mode, falling back to is_operating.
func (s ControlStatus) Mode() OperationMode {
	if s.OperationMode != nil {
		return ParseOperationMode(*s.OperationMode)
	}
	if s.IsOperating != nil {
		if *s.IsOperating {
			return ModeAutomatic
		}
		return ModeInactive
	}
	return ModeInactive
}
