package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/otelciro/channel-sync/internal/channel"
	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/service"
)

type connectionSource interface {
	GetByID(ctx context.Context, id uint64) (*model.ChannelConnection, error)
	ListActive(ctx context.Context) ([]model.ChannelConnection, error)
}

type statusSource interface {
	GetStatus(ctx context.Context, hotelID, roomTypeID uint64, dateFrom, dateTo time.Time) ([]model.InventoryDayStatus, error)
}

type clientSource interface {
	ClientFor(conn *model.ChannelConnection) channel.API
}

// Consumer drains the outbound queues and delivers their payloads to the
// channels: push jobs become calendar or rates updates on every connection
// of the hotel that has the matching push flag, confirmations go back to
// the booking's source connection.  Each loop reconnects with exponential
// backoff; a message whose handling fails is rejected without requeue so a
// poison payload cannot spin the worker (the next full push covers the
// gap).
type Consumer struct {
	url         string
	connections connectionSource
	inventory   statusSource
	clients     clientSource
}

// NewConsumer wires the consumer.
func NewConsumer(url string, connections connectionSource, inventory statusSource, clients clientSource) *Consumer {
	if connections == nil || inventory == nil || clients == nil {
		panic("nil dependency passed to NewConsumer")
	}
	return &Consumer{url: url, connections: connections, inventory: inventory, clients: clients}
}

// Start launches both consume loops and returns immediately.  The loops
// run until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go c.run(ctx, PushQueueName, c.handlePushJob)
	go c.run(ctx, ConfirmationQueueName, c.handleConfirmation)
}

func (c *Consumer) run(ctx context.Context, queueName string, handle func(context.Context, []byte) error) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("%s-consumer: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn, queueName, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("%s-consumer: consume loop ended: %v; reconnecting", queueName, err)
		time.Sleep(2 * time.Second)
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, handle func(context.Context, []byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s-consumer: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				log.Printf("%s-consumer: handle message failed: %v", queueName, err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handlePushJob fans one push job out to every connection of the hotel
// that accepts the job's kind.  Per-connection delivery failures are
// logged; the message only fails when no target accepted it.
func (c *Consumer) handlePushJob(ctx context.Context, body []byte) error {
	var job PushJobEvent
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal push job: %w", err)
	}
	from, errFrom := time.Parse("2006-01-02", job.DateFrom)
	to, errTo := time.Parse("2006-01-02", job.DateTo)
	if errFrom != nil || errTo != nil || !to.After(from) {
		return fmt.Errorf("push job has bad date range %q..%q", job.DateFrom, job.DateTo)
	}

	days, err := c.inventory.GetStatus(ctx, job.HotelID, job.RoomTypeID, from, to)
	if err != nil {
		return fmt.Errorf("load inventory status: %w", err)
	}
	conns, err := c.connections.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	op := "rates/update"
	if job.Kind == service.PushInventory {
		op = "calendar/update"
	}
	payload := map[string]any{
		"room_type_id": job.RoomTypeID,
		"date_from":    job.DateFrom,
		"date_to":      job.DateTo,
		"days":         days,
	}

	targets, delivered := 0, 0
	for i := range conns {
		conn := &conns[i]
		if conn.HotelID != job.HotelID {
			continue
		}
		if job.Kind == service.PushInventory && !conn.PushAvailability {
			continue
		}
		if job.Kind == service.PushRates && !conn.PushRates {
			continue
		}
		targets++
		if _, _, err := c.clients.ClientFor(conn).Call(ctx, op, payload); err != nil {
			log.Printf("push-consumer: %s to connection %d failed: %v", op, conn.ID, err)
			continue
		}
		delivered++
	}
	if targets > 0 && delivered == 0 {
		return fmt.Errorf("push delivered to none of %d target connections", targets)
	}
	return nil
}

// handleConfirmation reports a processed booking back to its source
// connection.
func (c *Consumer) handleConfirmation(ctx context.Context, body []byte) error {
	var ev ReservationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal confirmation: %w", err)
	}
	conn, err := c.connections.GetByID(ctx, ev.ConnectionID)
	if err != nil {
		return fmt.Errorf("load connection %d: %w", ev.ConnectionID, err)
	}
	if !conn.Active {
		log.Printf("confirmation-consumer: connection %d inactive, dropping confirmation for %s", conn.ID, ev.ChannelReservationID)
		return nil
	}
	_, _, err = c.clients.ClientFor(conn).Call(ctx, "bookings/confirm", map[string]any{
		"channel_reservation_id": ev.ChannelReservationID,
		"reservation_id":         ev.ReservationID,
		"status":                 ev.Status,
		"confirmed_at":           ev.ConfirmedAt,
	})
	if err != nil {
		return fmt.Errorf("confirm %s on connection %d: %w", ev.ChannelReservationID, conn.ID, err)
	}
	return nil
}
