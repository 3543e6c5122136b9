package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"venue-booking/internal/model"
	"venue-booking/internal/payment"
	"venue-booking/internal/scheduler"
)

// Deferred task kinds the engine schedules.  Every handler re-checks
// the booking's current state before acting: the scheduler only
// promises at-least-once delivery in arbitrary order.
const (
	TaskHoldExpire      = "hold.expire"
	TaskRemainderCharge = "remainder.charge"
	TaskReminder        = "reminder.email"
)

// reminderOffsets are the days-before-arrival marks at which reminder
// notifications go out.
var reminderOffsets = [...]int{14, 7, 2, 1}

type taskPayload struct {
	BookingID  uint64 `json:"booking_id"`
	Attempt    int    `json:"attempt,omitempty"`     // remainder.charge only
	DaysBefore int    `json:"days_before,omitempty"` // reminder.email only
}

// holdExpireKey dedupes on booking alone: a booking only ever has one
// live hold, so a second schedule call may freely replace the first.
func holdExpireKey(id uint64) string { return fmt.Sprintf("hold-expire:%d", id) }

// remainderKey is unique per attempt so a retry never replaces a
// pending first charge.
func remainderKey(id uint64, attempt int) string {
	if attempt == 0 {
		return fmt.Sprintf("remainder-charge:%d", id)
	}
	return fmt.Sprintf("remainder-charge:%d:retry:%d", id, attempt)
}

func reminderKey(id uint64, daysBefore int) string {
	return fmt.Sprintf("reminder:%d:%d", daysBefore, id)
}

// RegisterTasks binds the engine's task handlers to a scheduler runner.
func (e *Engine) RegisterTasks(r *scheduler.Runner) {
	r.Register(TaskHoldExpire, e.handleHoldExpireTask)
	r.Register(TaskRemainderCharge, e.handleRemainderChargeTask)
	r.Register(TaskReminder, e.handleReminderTask)
}

// schedule marshals and enqueues one task, logging failures.  A lost
// schedule is recoverable: hold expiry also happens lazily, and the
// reconciliation sweep rebuilds remainder/reminder schedules.
func (e *Engine) schedule(ctx context.Context, kind, key string, runAt time.Time, p taskPayload) {
	body, err := json.Marshal(p)
	if err != nil {
		e.log.WithError(err).WithField("task", key).Error("marshal task payload")
		return
	}
	err = e.sched.Schedule(ctx, scheduler.Task{Kind: kind, Key: key, RunAt: runAt, Payload: body})
	if err != nil {
		e.log.WithError(err).WithField("task", key).Error("schedule task failed")
	}
}

func (e *Engine) scheduleHoldExpiry(ctx context.Context, bookingID uint64, at time.Time) {
	e.schedule(ctx, TaskHoldExpire, holdExpireKey(bookingID), at, taskPayload{BookingID: bookingID})
}

func (e *Engine) scheduleRemainderCharge(ctx context.Context, b model.Booking, attempt int, at time.Time) {
	e.schedule(ctx, TaskRemainderCharge, remainderKey(b.ID, attempt), at, taskPayload{BookingID: b.ID, Attempt: attempt})
}

func (e *Engine) scheduleReminders(ctx context.Context, b model.Booking) {
	for _, days := range reminderOffsets {
		at := b.Start.AddDate(0, 0, -days)
		e.schedule(ctx, TaskReminder, reminderKey(b.ID, days), at, taskPayload{BookingID: b.ID, DaysBefore: days})
	}
}

func decodePayload(t scheduler.Task) (taskPayload, error) {
	var p taskPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", t.Kind, err)
	}
	if p.BookingID == 0 {
		return p, fmt.Errorf("%s payload missing booking id", t.Kind)
	}
	return p, nil
}

func (e *Engine) handleHoldExpireTask(ctx context.Context, t scheduler.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	err = e.ExpireHold(ctx, p.BookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return nil
	}
	return err
}

// handleRemainderChargeTask attempts the remainder charge.  The due
// amount is recomputed from the ledger at fire time, so replays and
// already-settled bookings fall through without charging.  A declined
// charge is recorded as a failed outcome (counting against the retry
// ceiling); a provider transport error is returned so the runner
// retries the whole task shortly.
func (e *Engine) handleRemainderChargeTask(ctx context.Context, t scheduler.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	view := e.store.Reader()
	b, err := view.GetBooking(ctx, p.BookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != model.BookingConfirmed {
		return nil
	}
	payments, err := view.PaymentsForBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	var settled int64
	for _, rec := range payments {
		if rec.Status == model.PaymentSucceeded {
			settled += rec.AmountCents
		}
	}
	due := b.TotalCents - settled
	if due <= 0 {
		return nil
	}

	ref, err := e.provider.ChargeRemainder(ctx, b, due)
	switch {
	case err == nil:
		return e.RecordRemainderOutcome(ctx, b.ID, ref, due, true)
	case errors.Is(err, payment.ErrDeclined):
		return e.RecordRemainderOutcome(ctx, b.ID, ref, due, false)
	default:
		return fmt.Errorf("charge remainder for booking %d: %w", b.ID, err)
	}
}

func (e *Engine) handleReminderTask(ctx context.Context, t scheduler.Task) error {
	p, err := decodePayload(t)
	if err != nil {
		return err
	}
	b, err := e.store.Reader().GetBooking(ctx, p.BookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != model.BookingConfirmed {
		return nil
	}
	e.notify(b.ID, "reminder.due", func() error { return e.notifier.ReminderDue(ctx, b, p.DaysBefore) })
	return nil
}
