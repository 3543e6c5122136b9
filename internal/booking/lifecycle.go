package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"venue-booking/internal/model"
)

// Confirm applies the deposit payment and moves a held booking to
// CONFIRMED.  It is idempotent: replaying the same deposit reference
// against an already confirmed booking upserts (not duplicates) the
// payment record and re-runs no side effects.  Confirming a cancelled
// or refunded booking is illegal — the hold expired before payment
// completed and the days may belong to someone else now.
func (e *Engine) Confirm(ctx context.Context, bookingID uint64, depositRef string, providerCustomerRef string) error {
	var (
		b            model.Booking
		pol          model.Policy
		transitioned bool
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return ErrIllegalTransition
		}
		if err := tx.UpsertPayment(ctx, model.PaymentRecord{
			BookingID:   b.ID,
			ProviderRef: depositRef,
			AmountCents: b.DepositCents,
			Kind:        model.PaymentDeposit,
			Status:      model.PaymentSucceeded,
		}); err != nil {
			return err
		}
		if b.Status == model.BookingConfirmed {
			return nil
		}
		// The booking is still HELD, but its day units may already be
		// gone: a lapsed hold is reclaimed by the purge step of any
		// later hold, while the booking row stays HELD until the
		// expiry task fires.  A late checkout webhook landing in that
		// window must not confirm a booking that no longer owns its
		// days.
		units, err := tx.DayUnitsForBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(units) != b.Range().NumDays() {
			return ErrIllegalTransition
		}
		if providerCustomerRef != "" {
			if err := tx.SetProviderCustomerRef(ctx, b.ID, providerCustomerRef); err != nil {
				return err
			}
		}
		if err := tx.MarkBookingDaysBooked(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.SetBookingStatus(ctx, b.ID, model.BookingConfirmed); err != nil {
			return err
		}
		if pol, err = tx.GetPolicy(ctx); err != nil {
			return err
		}
		b.Status = model.BookingConfirmed
		transitioned = true
		return nil
	})
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	// Scheduled outside the transaction.  Dedupe keys make crash
	// recovery and webhook replays converge on a single task set, and
	// run-at times already in the past fire at the next poll rather
	// than being dropped.
	e.scheduleRemainderCharge(ctx, b, 0, b.Start.AddDate(0, 0, -pol.RemainderLeadDays))
	e.scheduleReminders(ctx, b)
	e.notify(b.ID, "booking.confirmed", func() error { return e.notifier.BookingConfirmed(ctx, b) })

	e.log.WithField("booking_id", b.ID).Info("booking confirmed")
	return nil
}

// ExpireHold releases a hold whose TTL ran out.  Fired by the deferred
// task scheduled at hold creation, so it trusts nothing: the booking
// may have been confirmed, or the hold refreshed, between scheduling
// and firing.  A booking that is no longer HELD, or that owns any day
// unit with a still-future expiry, is left untouched.
func (e *Engine) ExpireHold(ctx context.Context, bookingID uint64) error {
	now := e.now()
	return e.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingHeld {
			return nil
		}
		units, err := tx.DayUnitsForBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		for _, u := range units {
			if u.Held(now) {
				// A later refresh or an in-flight confirm moved the
				// expiry; this task is stale.
				return nil
			}
		}
		if err := tx.ReleaseDayUnits(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.SetBookingStatus(ctx, b.ID, model.BookingCancelled); err != nil {
			return err
		}
		e.log.WithField("booking_id", b.ID).Info("hold expired")
		return nil
	})
}

// refundAllocation is one planned provider refund against a specific
// succeeded payment.
type refundAllocation struct {
	paymentRef  string
	amountCents int64
}

// Cancel cancels a confirmed booking inside the policy window.  The
// deposit is categorically non-refundable: the refundable amount is
// what succeeded beyond the deposit, allocated across succeeded
// remainder payments without exceeding any single payment.  Days are
// released and the terminal status committed first; provider refund
// calls and ledger entries follow, keyed by the provider refund
// reference so a crash mid-way can be replayed safely.  Cancelling an
// already cancelled or refunded booking is a no-op.
func (e *Engine) Cancel(ctx context.Context, bookingID uint64) (int64, error) {
	now := e.now()
	var (
		b            model.Booking
		plan         []refundAllocation
		total        int64
		transitioned bool
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return nil
		}
		if b.Status != model.BookingConfirmed {
			return ErrIllegalTransition
		}
		pol, err := tx.GetPolicy(ctx)
		if err != nil {
			return err
		}
		cutoff := b.Start.Add(-time.Duration(pol.CancelCutoffHours) * time.Hour)
		if now.After(cutoff) {
			return ErrCancellationWindowClosed
		}

		payments, err := tx.PaymentsForBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		var succeeded int64
		for _, p := range payments {
			if p.Status == model.PaymentSucceeded {
				succeeded += p.AmountCents
			}
		}
		refundable := succeeded - b.DepositCents
		if refundable < 0 {
			refundable = 0
		}
		remaining := refundable
		for _, p := range payments {
			if remaining <= 0 {
				break
			}
			if p.Kind != model.PaymentRemainder || p.Status != model.PaymentSucceeded {
				continue
			}
			amt := p.AmountCents
			if amt > remaining {
				amt = remaining
			}
			plan = append(plan, refundAllocation{paymentRef: p.ProviderRef, amountCents: amt})
			remaining -= amt
		}
		total = refundable - remaining

		if err := tx.ReleaseDayUnits(ctx, b.ID); err != nil {
			return err
		}
		status := model.BookingCancelled
		if total > 0 {
			status = model.BookingRefunded
		}
		if err := tx.SetBookingStatus(ctx, b.ID, status); err != nil {
			return err
		}
		b.Status = status
		transitioned = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !transitioned {
		// Idempotent replay against a terminal booking.
		return 0, nil
	}

	var refunded int64
	for _, a := range plan {
		ref, err := e.provider.Refund(ctx, a.paymentRef, a.amountCents)
		if err != nil {
			// Committed state already says REFUNDED; the missing
			// provider call is recoverable by the reconciliation
			// sweep, so log loudly and keep going.
			e.log.WithError(err).WithFields(logrus.Fields{
				"booking_id":  b.ID,
				"payment_ref": a.paymentRef,
			}).Error("provider refund failed")
			continue
		}
		if err := e.recordRefund(ctx, model.RefundRecord{
			BookingID:   b.ID,
			ProviderRef: ref,
			AmountCents: a.amountCents,
			Reason:      "customer cancellation",
		}); err != nil {
			e.log.WithError(err).WithField("booking_id", b.ID).Error("record refund failed")
			continue
		}
		refunded += a.amountCents
		e.notify(b.ID, "refund.issued", func() error { return e.notifier.RefundIssued(ctx, b, a.amountCents, ref) })
	}
	e.notify(b.ID, "booking.cancelled", func() error { return e.notifier.BookingCancelled(ctx, b, refunded) })

	e.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"refunded":   refunded,
	}).Info("booking cancelled")
	return refunded, nil
}

// RecordRemainderOutcome applies the result of a remainder charge
// attempt.  Success leaves the booking CONFIRMED with the payment
// upserted by provider reference.  Failure counts against the retry
// ceiling: below it, another charge is scheduled with backoff (6h after
// the first failure, 24h after later ones) under a per-attempt dedupe
// key so retries don't collapse into one; at the ceiling the booking is
// left CONFIRMED for manual intervention and an overdue notification
// goes out.
func (e *Engine) RecordRemainderOutcome(ctx context.Context, bookingID uint64, providerRef string, amountCents int64, succeeded bool) error {
	var (
		b        model.Booking
		failures int
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		status := model.PaymentFailed
		if succeeded {
			status = model.PaymentSucceeded
		}
		if err := tx.UpsertPayment(ctx, model.PaymentRecord{
			BookingID:   b.ID,
			ProviderRef: providerRef,
			AmountCents: amountCents,
			Kind:        model.PaymentRemainder,
			Status:      status,
		}); err != nil {
			return err
		}
		if !succeeded {
			if failures, err = tx.CountFailedRemainders(ctx, b.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if succeeded {
		e.log.WithField("booking_id", b.ID).Info("remainder payment recorded")
		return nil
	}

	if failures < e.maxAttempts {
		delay := 24 * time.Hour
		if failures == 1 {
			delay = 6 * time.Hour
		}
		e.scheduleRemainderCharge(ctx, b, failures, e.now().Add(delay))
		e.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"failures":   failures,
			"retry_in":   delay,
		}).Warn("remainder charge failed, retry scheduled")
		return nil
	}
	e.notify(b.ID, "payment.overdue", func() error { return e.notifier.PaymentOverdue(ctx, b) })
	e.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"failures":   failures,
	}).Error("remainder charge failed permanently, manual intervention required")
	return nil
}

// AdminRefund issues a discretionary refund outside the cancellation
// policy.  It bypasses both the cutoff window and the refundable
// ceiling — back office may refund the deposit or more.  It is a ledger
// operation, not a transition: the booking keeps its current status and
// its days.  The refund is issued against the most recent succeeded
// payment's provider reference.
func (e *Engine) AdminRefund(ctx context.Context, bookingID uint64, amountCents int64, reason string) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}
	b, err := e.store.Reader().GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.Status == model.BookingHeld {
		return "", ErrIllegalTransition
	}
	payments, err := e.store.Reader().PaymentsForBooking(ctx, b.ID)
	if err != nil {
		return "", err
	}
	var target string
	for _, p := range payments {
		if p.Status == model.PaymentSucceeded {
			target = p.ProviderRef
		}
	}
	if target == "" {
		return "", ErrNothingToRefund
	}
	ref, err := e.provider.Refund(ctx, target, amountCents)
	if err != nil {
		return "", err
	}
	if err := e.recordRefund(ctx, model.RefundRecord{
		BookingID:   b.ID,
		ProviderRef: ref,
		AmountCents: amountCents,
		Reason:      reason,
	}); err != nil {
		return "", err
	}
	e.notify(b.ID, "refund.issued", func() error { return e.notifier.RefundIssued(ctx, b, amountCents, ref) })
	e.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"amount":     amountCents,
	}).Info("admin refund issued")
	return ref, nil
}

// recordRefund appends to the refund ledger in its own short
// transaction, after the provider call.
func (e *Engine) recordRefund(ctx context.Context, rec model.RefundRecord) error {
	return e.store.InTx(ctx, func(tx Tx) error {
		return tx.InsertRefund(ctx, rec)
	})
}
