// Package handler contains the HTTP handlers of the API: the inbound
// reservation webhook, the inventory and overbooking views and the
// connection operations surface.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/service"
)

// reservationProcessor is the slice of the pipeline the webhook needs.
type reservationProcessor interface {
	Process(ctx context.Context, delivery service.InboundDelivery) (*model.InboundReservation, error)
}

// WebhookHandler receives reservations pushed by channels.  The same
// pipeline serves pushed and pulled bookings, so a booking delivered both
// ways lands exactly once.
type WebhookHandler struct {
	Pipeline reservationProcessor
}

func NewWebhookHandler(p reservationProcessor) *WebhookHandler {
	return &WebhookHandler{Pipeline: p}
}

type inboundResp struct {
	ID                   uint64  `json:"id"`
	ChannelReservationID string  `json:"channel_reservation_id"`
	Status               string  `json:"status"`
	ReservationID        *uint64 `json:"reservation_id,omitempty"`
	ErrorDetail          string  `json:"error_detail,omitempty"`
	Warnings             string  `json:"warnings,omitempty"`
}

// Receive accepts one pushed booking.  A malformed body or a missing
// natural key is a 400; a delivery that processed is 200; one the
// pipeline rejected on business grounds is 422 with the recorded detail.
// Re-delivery of an already processed booking returns the stored outcome.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var delivery service.InboundDelivery
	if err := c.Bind(&delivery); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rec, err := h.Pipeline.Process(ctx, delivery)
	if err != nil {
		if delivery.ChannelID == 0 || strings.TrimSpace(delivery.ChannelReservationID) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}

	resp := inboundResp{
		ID:                   rec.ID,
		ChannelReservationID: rec.ChannelReservationID,
		Status:               string(rec.Status),
		ReservationID:        rec.ReservationID,
		ErrorDetail:          rec.ErrorDetail,
		Warnings:             rec.Warnings,
	}
	if rec.Status == model.InboundError {
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
