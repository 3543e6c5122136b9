package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartConsumer connects to RabbitMQ, declares the booking.events
// queue (durable) and consumes notifications.  Each event is appended
// to logs/notifications.log in a single-line, human-friendly format —
// the stand-in for the outbound email/calendar collaborator.  The
// function runs a reconnect loop with exponential backoff and keeps
// running across broker restarts; processing errors are logged and the
// offending message rejected without requeue so the consumer never
// tight-loops on a poison message.
func StartConsumer(url string, log *logrus.Logger) {
	l := log.WithField("component", "notifier")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			l.WithError(err).Warnf("broker dial failed, retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, l); err != nil {
			l.WithError(err).Warn("consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, l *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		l.WithError(err).Warn("set QoS failed")
	}

	if _, err = ch.QueueDeclare(eventsQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(eventsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			l.WithError(err).Error("handle notification failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev Event) string {
	switch ev.Type {
	case EventReminderDue:
		return fmt.Sprintf("[%s] %s | booking_id=%d | arrival=%s | days_before=%d\n",
			ev.OccurredAt, ev.Type, ev.BookingID, ev.StartDate, ev.DaysBefore)
	case EventRefundIssued:
		return fmt.Sprintf("[%s] %s | booking_id=%d | amount=%d cents | refund_ref=%s\n",
			ev.OccurredAt, ev.Type, ev.BookingID, ev.AmountCents, ev.RefundRef)
	case EventBookingCancelled:
		return fmt.Sprintf("[%s] %s | booking_id=%d | refunded=%d cents\n",
			ev.OccurredAt, ev.Type, ev.BookingID, ev.AmountCents)
	default:
		return fmt.Sprintf("[%s] %s | booking_id=%d | range=%s..%s | total=%d cents\n",
			ev.OccurredAt, ev.Type, ev.BookingID, ev.StartDate, ev.EndDate, ev.TotalCents)
	}
}
