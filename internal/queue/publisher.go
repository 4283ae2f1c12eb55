package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/service"
)

// Publisher enqueues events on the broker.  Each publish dials a fresh
// connection: publishes are rare relative to their payload cost and a
// short-lived connection never leaves a stale one behind after a broker
// restart.  Errors are logged and returned so callers can ignore failures
// without interrupting the main flow.
type Publisher struct {
	url string
}

// NewPublisher returns a publisher against the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// PublishReservationConfirmed enqueues a confirmation for a freshly
// written reservation.  Implements service.ConfirmationPublisher.
func (p *Publisher) PublishReservationConfirmed(ctx context.Context, connectionID uint64, channelReservationID string, res *model.Reservation) error {
	ev := ReservationConfirmedEvent{
		ReservationID:        res.ID,
		ConnectionID:         connectionID,
		ChannelReservationID: channelReservationID,
		HotelID:              res.HotelID,
		RoomTypeID:           res.RoomTypeID,
		CheckIn:              res.CheckIn.Format("2006-01-02"),
		CheckOut:             res.CheckOut.Format("2006-01-02"),
		Status:               string(res.Status),
		TotalAmount:          res.TotalAmount,
		Currency:             res.Currency,
		ConfirmedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, ConfirmationQueueName, ev)
}

// PublishPushJob enqueues an outbound inventory or rates push.  Implements
// service.PushPublisher.
func (p *Publisher) PublishPushJob(ctx context.Context, job service.PushJob) error {
	return p.publish(ctx, PushQueueName, job)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
