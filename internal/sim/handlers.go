package sim

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/models"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

func (a *App) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", a.handleHealthz)
	e.GET("/ws/logs", echo.WrapHandler(a.hub))

	e.GET("/api/logs", a.handleLogs)

	zones := e.Group("/api/zones")
	zones.GET("", a.handleListZones)
	zones.GET("/", a.handleListZones)
	zones.POST("", a.handleCreateZone)
	zones.POST("/", a.handleCreateZone)
	zones.GET("/:id", a.handleGetZone)
	zones.PUT("/:id", a.handleUpdateZone)
	zones.DELETE("/:id", a.handleDeleteZone)

	control := e.Group("/api/control")
	control.GET("/status", a.handleStatus)
	control.POST("/start_automatic", a.handleStart(models.ModeAutomatic))
	control.POST("/start_maintenance", a.handleStart(models.ModeMaintenance))
	control.POST("/stop", a.handleStop)
	control.POST("/reset", a.handleReset)
}

// errorHandler renders every error as {"detail": ...}, the shape the real
// backend uses.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	detail := "internal server error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		detail = fmt.Sprint(he.Message)
	case errors.Is(err, errZoneNotFound):
		status, detail = http.StatusNotFound, err.Error()
	case errors.Is(err, errZoneExists):
		status, detail = http.StatusConflict, err.Error()
	case errors.Is(err, errLocked):
		status, detail = http.StatusConflict, err.Error()
	default:
		a.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	_ = c.JSON(status, map[string]string{"detail": detail})
}

func (a *App) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"clients":        a.hub.Clients(),
		"frame":          fmt.Sprintf("%dx%d", a.cfg.ImageWidth, a.cfg.ImageHeight),
	})
}

func (a *App) handleLogs(c echo.Context) error {
	limit := defaultLogLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLogLimit {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxLogLimit))
		}
		limit = n
	}
	return c.JSON(http.StatusOK, a.plant.Logs(limit))
}

func (a *App) handleListZones(c echo.Context) error {
	return c.JSON(http.StatusOK, a.plant.Zones())
}

func (a *App) handleGetZone(c echo.Context) error {
	z, err := a.plant.Zone(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, z)
}

type zoneResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ZoneID  string `json:"zone_id"`
}

// createZoneRequest accepts both the flat {id, name, points} body and the
// embedded {zone_id, zone_data} form.
type createZoneRequest struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Points   []models.Point `json:"points"`
	ZoneID   string         `json:"zone_id"`
	ZoneData *struct {
		Name   string         `json:"name"`
		Points []models.Point `json:"points"`
	} `json:"zone_data"`
}

func (a *App) handleCreateZone(c echo.Context) error {
	var req createZoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid zone body")
	}
	z := models.Zone{ID: req.ID, Name: req.Name, Points: req.Points}
	if req.ZoneData != nil {
		z.ID = req.ZoneID
		z.Name = req.ZoneData.Name
		z.Points = req.ZoneData.Points
	}
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	if err := a.checkZone(z); err != nil {
		return err
	}

	if err := a.plant.CreateZone(z); err != nil {
		return err
	}
	a.log.Info("zone created", zap.String("id", z.ID), zap.String("name", z.Name), zap.Int("points", len(z.Points)))
	return c.JSON(http.StatusCreated, zoneResponse{
		Status:  "success",
		Message: fmt.Sprintf("zone %s created", z.ID),
		ZoneID:  z.ID,
	})
}

// checkZone rejects polygons with too few points or points outside the
// video frame.
func (a *App) checkZone(z models.Zone) error {
	if !z.Valid() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("a zone needs at least %d points", models.MinZonePoints))
	}
	w, h := float64(a.cfg.ImageWidth), float64(a.cfg.ImageHeight)
	if w <= 0 || h <= 0 {
		return nil
	}
	for _, p := range z.Points {
		if p.X < 0 || p.Y < 0 || p.X > w || p.Y > h {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("point (%g, %g) is outside the %dx%d frame", p.X, p.Y, a.cfg.ImageWidth, a.cfg.ImageHeight))
		}
	}
	return nil
}

func (a *App) handleUpdateZone(c echo.Context) error {
	var req struct {
		Name   string         `json:"name"`
		Points []models.Point `json:"points"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid zone body")
	}
	z := models.Zone{ID: c.Param("id"), Name: req.Name, Points: req.Points}
	if err := a.checkZone(z); err != nil {
		return err
	}
	if err := a.plant.UpdateZone(z); err != nil {
		return err
	}
	a.log.Info("zone updated", zap.String("id", z.ID))
	return c.JSON(http.StatusOK, zoneResponse{
		Status:  "success",
		Message: fmt.Sprintf("zone %s updated", z.ID),
		ZoneID:  z.ID,
	})
}

func (a *App) handleDeleteZone(c echo.Context) error {
	id := c.Param("id")
	if err := a.plant.DeleteZone(id); err != nil {
		return err
	}
	a.log.Info("zone deleted", zap.String("id", id))
	return c.JSON(http.StatusOK, zoneResponse{
		Status:  "success",
		Message: fmt.Sprintf("zone %s deleted", id),
		ZoneID:  id,
	})
}

func (a *App) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, a.plant.Status())
}

type controlResponse struct {
	Status               string  `json:"status"`
	Message              string  `json:"message"`
	OperationMode        *string `json:"operation_mode"`
	IsLocked             bool    `json:"is_locked"`
	ConfirmationRequired bool    `json:"confirmation_required,omitempty"`
}

func (a *App) controlReply(c echo.Context, message string) error {
	st := a.plant.Status()
	return c.JSON(http.StatusOK, controlResponse{
		Status:        "success",
		Message:       message,
		OperationMode: st.OperationMode,
		IsLocked:      st.IsLocked,
	})
}

func (a *App) handleStart(mode models.OperationMode) echo.HandlerFunc {
	return func(c echo.Context) error {
		confirmed := c.QueryParam("confirmed") == "true"
		err := a.plant.Start(mode, confirmed, a.cfg.RequireConfirmation)
		if errors.Is(err, errConfirm) {
			return c.JSON(http.StatusAccepted, controlResponse{
				Status:               "pending",
				ConfirmationRequired: true,
				Message:              "Personnel may be inside a danger zone. Start automatic mode anyway?",
			})
		}
		if err != nil {
			return err
		}

		msg := mode.Label() + " mode started"
		a.log.Info("control command applied", zap.String("mode", string(mode)), zap.Bool("confirmed", confirmed))
		a.pushStatus(msg)
		return a.controlReply(c, msg)
	}
}

func (a *App) handleStop(c echo.Context) error {
	a.plant.Stop()
	a.log.Info("conveyor stopped")
	a.pushStatus("Conveyor stopped")
	return a.controlReply(c, "Conveyor stopped")
}

func (a *App) handleReset(c echo.Context) error {
	msg := "System was not locked"
	if a.plant.Reset() {
		msg = "Lock released, system is stopped"
		a.log.Info("system lock released")
	}
	a.pushStatus(msg)
	return a.controlReply(c, msg)
}
