package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"venue-booking/internal/model"
)

const eventsQueueName = "booking.events"

// Publisher emits notification events to RabbitMQ.  It implements the
// engine's Notifier interface.  Publishing is best effort: errors are
// returned so the engine can log them, but the engine never fails a
// booking operation over a lost notification.
type Publisher struct {
	url string
	log *logrus.Entry
}

// NewPublisher builds a Publisher for the given AMQP URL.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{url: url, log: log.WithField("component", "queue")}
}

// publish opens a connection, declares the durable queue and sends one
// persistent JSON message.  A connection per publish keeps the
// publisher robust against broker restarts at the cost of throughput,
// which is fine at booking volumes.
func (p *Publisher) publish(ctx context.Context, ev Event) error {
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		eventsQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",              // default exchange
		eventsQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func baseEvent(typ string, b model.Booking) Event {
	return Event{
		Type:       typ,
		BookingID:  b.ID,
		StartDate:  b.Start.Format(model.DateLayout),
		EndDate:    b.End.Format(model.DateLayout),
		TotalCents: b.TotalCents,
	}
}

// BookingConfirmed publishes a confirmation notification.
func (p *Publisher) BookingConfirmed(ctx context.Context, b model.Booking) error {
	return p.publish(ctx, baseEvent(EventBookingConfirmed, b))
}

// BookingCancelled publishes a cancellation notification with the
// total amount refunded.
func (p *Publisher) BookingCancelled(ctx context.Context, b model.Booking, refundedCents int64) error {
	ev := baseEvent(EventBookingCancelled, b)
	ev.AmountCents = refundedCents
	return p.publish(ctx, ev)
}

// RefundIssued publishes one refund ledger notification.
func (p *Publisher) RefundIssued(ctx context.Context, b model.Booking, amountCents int64, refundRef string) error {
	ev := baseEvent(EventRefundIssued, b)
	ev.AmountCents = amountCents
	ev.RefundRef = refundRef
	return p.publish(ctx, ev)
}

// ReminderDue publishes an upcoming-arrival reminder.
func (p *Publisher) ReminderDue(ctx context.Context, b model.Booking, daysBefore int) error {
	ev := baseEvent(EventReminderDue, b)
	ev.DaysBefore = daysBefore
	return p.publish(ctx, ev)
}

// PaymentOverdue publishes an ops alert for a booking whose remainder
// could not be charged after the final retry.
func (p *Publisher) PaymentOverdue(ctx context.Context, b model.Booking) error {
	return p.publish(ctx, baseEvent(EventPaymentOverdue, b))
}
