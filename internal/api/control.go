package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// ControlKind names a control endpoint under /api/control/.
type ControlKind string

const (
	ControlStartAutomatic   ControlKind = "start_automatic"
	ControlStartMaintenance ControlKind = "start_maintenance"
	ControlStop             ControlKind = "stop"
	ControlReset            ControlKind = "reset"
)

// ControlKinds lists every control command.
var ControlKinds = []ControlKind{
	ControlStartAutomatic,
	ControlStartMaintenance,
	ControlStop,
	ControlReset,
}

// ParseControlKind accepts the endpoint name or a short alias.
func ParseControlKind(s string) (ControlKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start_automatic", "start-auto", "auto", "automatic":
		return ControlStartAutomatic, nil
	case "start_maintenance", "start-maintenance", "maint", "maintenance":
		return ControlStartMaintenance, nil
	case "stop":
		return ControlStop, nil
	case "reset":
		return ControlReset, nil
	default:
		names := make([]string, len(ControlKinds))
		for i, k := range ControlKinds {
			names[i] = string(k)
		}
		return "", fmt.Errorf("unknown control command %q (want one of %s)", s, strings.Join(names, ", "))
	}
}

// Mode is the operation mode the command puts the conveyor in when the
// backend does not say so itself.
func (k ControlKind) Mode() models.OperationMode {
	switch k {
	case ControlStartAutomatic:
		return models.ModeAutomatic
	case ControlStartMaintenance:
		return models.ModeMaintenance
	default:
		return models.ModeInactive
	}
}

// ControlResult is the outcome of a control request. When
// ConfirmationRequired is set the command was not applied; the caller asks
// the operator and resubmits with confirmed=true.
type ControlResult struct {
	ConfirmationRequired bool
	Message              string
	OperationMode        models.OperationMode
	IsLocked             bool
}

type controlBody struct {
	ConfirmationRequired bool    `json:"confirmation_required"`
	Message              string  `json:"message"`
	Status               string  `json:"status"`
	OperationMode        *string `json:"operation_mode"`
	IsOperating          *bool   `json:"is_operating"`
	IsLocked             bool    `json:"is_locked"`
}

// Control posts a control command. A 202 answer, or a body flagging
// confirmation_required, is reported as ConfirmationRequired rather than an
// error.
func (c *Client) Control(ctx context.Context, kind ControlKind, confirmed bool) (ControlResult, error) {
	var body controlBody
	req := c.http.R().SetContext(ctx).SetResult(&body).SetPathParam("kind", string(kind))
	if confirmed {
		req.SetQueryParam("confirmed", "true")
	}

	resp, err := req.Post("/api/control/{kind}")
	if err != nil {
		return ControlResult{}, fmt.Errorf("control %s: %w", kind, err)
	}
	if resp.StatusCode() >= 300 {
		return ControlResult{}, fmt.Errorf("control %s: %w", kind, &Error{
			Status: resp.StatusCode(),
			Detail: errorDetail(resp.Body()),
		})
	}

	res := ControlResult{
		Message:  body.Message,
		IsLocked: body.IsLocked,
	}
	if resp.StatusCode() == http.StatusAccepted || body.ConfirmationRequired {
		res.ConfirmationRequired = true
		return res, nil
	}

	status := models.ControlStatus{
		OperationMode: body.OperationMode,
		IsOperating:   body.IsOperating,
	}
	if body.OperationMode != nil || body.IsOperating != nil {
		res.OperationMode = status.Mode()
	} else {
		res.OperationMode = kind.Mode()
	}
	return res, nil
}
