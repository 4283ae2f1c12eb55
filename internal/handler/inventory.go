package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/service"
)

// InventoryHandler exposes the derived availability view, inventory
// updates and the overbooking report.
type InventoryHandler struct {
	Inventory *service.InventoryService
}

func NewInventoryHandler(inv *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{Inventory: inv}
}

type inventoryUpdateReq struct {
	DateFrom          string `json:"date_from"`
	DateTo            string `json:"date_to"`
	Allotment         *int   `json:"allotment,omitempty"`
	MinStay           *int   `json:"min_stay,omitempty"`
	MaxStay           *int   `json:"max_stay,omitempty"`
	ClosedToArrival   *bool  `json:"closed_to_arrival,omitempty"`
	ClosedToDeparture *bool  `json:"closed_to_departure,omitempty"`
	StopSell          *bool  `json:"stop_sell,omitempty"`
}

// GetStatus returns the per-day availability for
// GET /v1/hotels/:hotelID/room-types/:roomTypeID/inventory?from=&to=.
// The range is half-open: to is the first excluded day.
func (h *InventoryHandler) GetStatus(c echo.Context) error {
	hotelID, roomTypeID, ok := pathIDs(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel or room type id"})
	}
	from, to, ok := queryRange(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to must be YYYY-MM-DD with to after from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	days, err := h.Inventory.GetStatus(ctx, hotelID, roomTypeID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load inventory failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"days": days})
}

// Update applies a partial inventory update over a date range for
// POST /v1/hotels/:hotelID/room-types/:roomTypeID/inventory.  Omitted
// fields keep their stored values.
func (h *InventoryHandler) Update(c echo.Context) error {
	hotelID, roomTypeID, ok := pathIDs(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel or room type id"})
	}
	var req inventoryUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	from, errFrom := time.Parse("2006-01-02", req.DateFrom)
	to, errTo := time.Parse("2006-01-02", req.DateTo)
	if errFrom != nil || errTo != nil || !to.After(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_from/date_to must be YYYY-MM-DD with date_to after date_from"})
	}
	if req.Allotment != nil && *req.Allotment < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "allotment must not be negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	err := h.Inventory.UpdateInventory(ctx, hotelID, roomTypeID, from, to, service.InventoryUpdate{
		Allotment:         req.Allotment,
		MinStay:           req.MinStay,
		MaxStay:           req.MaxStay,
		ClosedToArrival:   req.ClosedToArrival,
		ClosedToDeparture: req.ClosedToDeparture,
		StopSell:          req.StopSell,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update inventory failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Overbooking reports days where bookings exceed allotment for
// GET /v1/hotels/:hotelID/room-types/:roomTypeID/overbooking?from=&to=.
func (h *InventoryHandler) Overbooking(c echo.Context) error {
	hotelID, roomTypeID, ok := pathIDs(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel or room type id"})
	}
	from, to, ok := queryRange(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to must be YYYY-MM-DD with to after from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	alerts, err := h.Inventory.CheckOverbooking(ctx, hotelID, roomTypeID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "overbooking check failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"alerts": alerts, "critical": countCritical(alerts)})
}

func countCritical(alerts []model.OverbookingAlert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity == model.SeverityCritical {
			n++
		}
	}
	return n
}

func pathIDs(c echo.Context) (hotelID, roomTypeID uint64, ok bool) {
	hotelID, err1 := strconv.ParseUint(c.Param("hotelID"), 10, 64)
	roomTypeID, err2 := strconv.ParseUint(c.Param("roomTypeID"), 10, 64)
	return hotelID, roomTypeID, err1 == nil && err2 == nil && hotelID > 0 && roomTypeID > 0
}

func queryRange(c echo.Context) (from, to time.Time, ok bool) {
	from, errFrom := time.Parse("2006-01-02", c.QueryParam("from"))
	to, errTo := time.Parse("2006-01-02", c.QueryParam("to"))
	return from, to, errFrom == nil && errTo == nil && to.After(from)
}
