package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

type connectionDirectory interface {
	List(ctx context.Context) ([]model.ChannelConnection, error)
	GetByID(ctx context.Context, id uint64) (*model.ChannelConnection, error)
}

type checkpointAdmin interface {
	ListByConnection(ctx context.Context, connectionID uint64) ([]model.SyncCheckpoint, error)
	Reset(ctx context.Context, connectionID uint64, entity model.SyncEntity, watermark time.Time) error
}

type cycleHistory interface {
	ListRecent(ctx context.Context, connectionID uint64, limit int) ([]model.SyncCycleLog, error)
}

type syncRunner interface {
	ForceSync(ctx context.Context, conn *model.ChannelConnection) error
}

// ConnectionHandler is the operations surface for channel connections:
// health listing, checkpoint inspection and reset, cycle history and
// forced sync runs.
type ConnectionHandler struct {
	connections connectionDirectory
	checkpoints checkpointAdmin
	cycles      cycleHistory
	scheduler   syncRunner
}

func NewConnectionHandler(connections connectionDirectory, checkpoints checkpointAdmin,
	cycles cycleHistory, scheduler syncRunner) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, checkpoints: checkpoints, cycles: cycles, scheduler: scheduler}
}

// connPart is the connection view returned to operators.  Credentials
// never leave the service.
type connPart struct {
	ID                  uint64 `json:"id"`
	HotelID             uint64 `json:"hotel_id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Active              bool   `json:"active"`
	PushRates           bool   `json:"push_rates"`
	PushAvailability    bool   `json:"push_availability"`
	ReceiveReservations bool   `json:"receive_reservations"`
	SyncFrequencyMin    int    `json:"sync_frequency_min"`
	Status              string `json:"status"`
}

func toConnPart(c *model.ChannelConnection) connPart {
	return connPart{
		ID:                  c.ID,
		HotelID:             c.HotelID,
		Name:                c.Name,
		Type:                string(c.Type),
		Active:              c.Active,
		PushRates:           c.PushRates,
		PushAvailability:    c.PushAvailability,
		ReceiveReservations: c.ReceiveReservations,
		SyncFrequencyMin:    c.SyncFrequencyMin,
		Status:              string(c.Status),
	}
}

// List returns every connection with its health for GET /v1/connections.
func (h *ConnectionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conns, err := h.connections.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list connections failed"})
	}
	parts := make([]connPart, 0, len(conns))
	for i := range conns {
		parts = append(parts, toConnPart(&conns[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"connections": parts})
}

// Get returns one connection for GET /v1/connections/:id.
func (h *ConnectionHandler) Get(c echo.Context) error {
	conn, ok, err := h.loadConnection(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, toConnPart(conn))
}

// Checkpoints returns the sync checkpoints of a connection for
// GET /v1/connections/:id/checkpoints.
func (h *ConnectionHandler) Checkpoints(c echo.Context) error {
	conn, ok, err := h.loadConnection(c)
	if !ok {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cps, err := h.checkpoints.ListByConnection(ctx, conn.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list checkpoints failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"checkpoints": cps})
}

type resetReq struct {
	Watermark string `json:"watermark"` // RFC3339
}

// ResetCheckpoint rewinds one checkpoint for
// POST /v1/connections/:id/checkpoints/:entity/reset.  This is the
// operator escape hatch behind a deliberate re-sync; the monotonic guard
// does not apply here.
func (h *ConnectionHandler) ResetCheckpoint(c echo.Context) error {
	conn, ok, err := h.loadConnection(c)
	if !ok {
		return err
	}
	entity := model.SyncEntity(c.Param("entity"))
	switch entity {
	case model.EntityBookings, model.EntityCalendar, model.EntityMessages:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown entity type"})
	}
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	watermark, err := time.Parse(time.RFC3339, req.Watermark)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "watermark must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.checkpoints.Reset(ctx, conn.ID, entity, watermark); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset checkpoint failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Cycles returns the recent sync cycle history for
// GET /v1/connections/:id/cycles?limit=.
func (h *ConnectionHandler) Cycles(c echo.Context) error {
	conn, ok, err := h.loadConnection(c)
	if !ok {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, err := h.cycles.ListRecent(ctx, conn.ID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list cycles failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"cycles": logs})
}

// ForceSync runs the connection's sync cycles immediately for
// POST /v1/connections/:id/sync.  Backoff and lease gates still apply, so
// a connection under rate-limit backpressure stays deferred.
func (h *ConnectionHandler) ForceSync(c echo.Context) error {
	conn, ok, err := h.loadConnection(c)
	if !ok {
		return err
	}
	if !conn.Active {
		return c.JSON(http.StatusConflict, echo.Map{"error": "connection is inactive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	if err := h.scheduler.ForceSync(ctx, conn); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync failed"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "completed"})
}

// loadConnection resolves the :id path param.  On failure it writes the
// response and returns ok=false with the write result.
func (h *ConnectionHandler) loadConnection(c echo.Context) (*model.ChannelConnection, bool, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid connection id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.connections.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
	}
	if err != nil {
		return nil, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "load connection failed"})
	}
	return conn, true, nil
}
