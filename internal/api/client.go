// Package api is the REST client for the factory-safety backend. Every call
// fails fast: there are no retries, and a non-2xx answer comes back as *Error
// carrying the server's detail message.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/models"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Client talks to one backend.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// New builds a client rooted at baseURL, e.g. "http://127.0.0.1:8000".
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: hc, log: log}
}

// Logs fetches the most recent events, newest first. A limit <= 0 leaves the
// backend default in place.
func (c *Client) Logs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	req := c.http.R().SetContext(ctx)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	var out []models.LogEntry
	if err := c.do(req.SetResult(&out), http.MethodGet, "/api/logs"); err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	return out, nil
}

// Zones fetches every configured zone. Points are in backend pixel space.
func (c *Client) Zones(ctx context.Context) ([]models.Zone, error) {
	var out []models.Zone
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if err := c.do(req, http.MethodGet, "/api/zones/"); err != nil {
		return nil, fmt.Errorf("fetch zones: %w", err)
	}
	return out, nil
}

// ZoneResponse is the acknowledgement returned by zone writes.
type ZoneResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ZoneID  string `json:"zone_id"`
}

// CreateZone stores a new zone under the client-chosen id.
func (c *Client) CreateZone(ctx context.Context, z models.Zone) (ZoneResponse, error) {
	var out ZoneResponse
	req := c.http.R().SetContext(ctx).SetBody(z).SetResult(&out)
	if err := c.do(req, http.MethodPost, "/api/zones/"); err != nil {
		return out, fmt.Errorf("create zone %s: %w", z.ID, err)
	}
	return out, nil
}

// UpdateZone replaces the name and points of an existing zone.
func (c *Client) UpdateZone(ctx context.Context, id, name string, points []models.Point) (ZoneResponse, error) {
	body := struct {
		Name   string         `json:"name"`
		Points []models.Point `json:"points"`
	}{name, points}

	var out ZoneResponse
	req := c.http.R().SetContext(ctx).SetBody(body).SetResult(&out).SetPathParam("id", id)
	if err := c.do(req, http.MethodPut, "/api/zones/{id}"); err != nil {
		return out, fmt.Errorf("update zone %s: %w", id, err)
	}
	return out, nil
}

// DeleteZone removes a zone.
func (c *Client) DeleteZone(ctx context.Context, id string) (ZoneResponse, error) {
	var out ZoneResponse
	req := c.http.R().SetContext(ctx).SetResult(&out).SetPathParam("id", id)
	if err := c.do(req, http.MethodDelete, "/api/zones/{id}"); err != nil {
		return out, fmt.Errorf("delete zone %s: %w", id, err)
	}
	return out, nil
}

// Status fetches the conveyor's control state.
func (c *Client) Status(ctx context.Context) (models.ControlStatus, error) {
	var out models.ControlStatus
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if err := c.do(req, http.MethodGet, "/api/control/status"); err != nil {
		return out, fmt.Errorf("fetch control status: %w", err)
	}
	return out, nil
}

// do executes req and converts transport failures and non-2xx answers into
// errors. Successful bodies are decoded by resty into the request's result.
func (c *Client) do(req *resty.Request, method, path string) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		apiErr := &Error{Status: resp.StatusCode(), Detail: errorDetail(resp.Body())}
		c.log.Debug("backend returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.Status),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}
	return nil
}

// errorDetail pulls the human-readable message out of an error body. FastAPI
// uses "detail" (a string, or a list of validation problems); other backends
// use "error" or "message".
func errorDetail(body []byte) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				msgs = append(msgs, item.Msg)
			}
			return strings.Join(msgs, "; ")
		}
		return string(raw)
	}
	return strings.TrimSpace(string(body))
}
