package booking

import (
	"context"
	"errors"
	"fmt"

	"venue-booking/internal/model"
)

// Payment provider events, as a closed set of variants.  The webhook
// boundary decodes and validates raw provider payloads into these
// before anything touches the engine; nothing downstream ever sees an
// untyped payload.  Every event may arrive more than once and out of
// order, so each handler below is a pure idempotent application.
type (
	// CheckoutCompleted fires when the customer finishes the hosted
	// deposit checkout.
	CheckoutCompleted struct {
		BookingID         uint64
		DepositPaymentRef string
		CustomerRef       string
	}

	// PaymentSucceeded fires for any settled charge.
	PaymentSucceeded struct {
		BookingID   uint64
		PaymentRef  string
		AmountCents int64
		Kind        string // model.PaymentDeposit or model.PaymentRemainder
	}

	// PaymentFailed fires for a charge the provider could not settle.
	PaymentFailed struct {
		BookingID   uint64
		PaymentRef  string
		AmountCents int64
		Kind        string
	}
)

func (ev CheckoutCompleted) validate() error {
	if ev.BookingID == 0 || ev.DepositPaymentRef == "" {
		return fmt.Errorf("checkout.completed: missing booking id or payment ref")
	}
	return nil
}

func validatePaymentEvent(bookingID uint64, ref, kind string) error {
	if bookingID == 0 || ref == "" {
		return fmt.Errorf("payment event: missing booking id or payment ref")
	}
	if kind != model.PaymentDeposit && kind != model.PaymentRemainder {
		return fmt.Errorf("payment event: unknown kind %q", kind)
	}
	return nil
}

// Reconciler drives state machine transitions from asynchronous
// provider events.
type Reconciler struct {
	engine *Engine
}

// NewReconciler wraps the engine.
func NewReconciler(e *Engine) *Reconciler { return &Reconciler{engine: e} }

// OnCheckoutCompleted confirms the booking.  Replays hit the idempotent
// confirm path; a checkout completing after the hold already expired is
// reported as an error for the operator to resolve (the provider
// charged a deposit for days that may be gone).
func (r *Reconciler) OnCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error {
	if err := ev.validate(); err != nil {
		return err
	}
	return r.engine.Confirm(ctx, ev.BookingID, ev.DepositPaymentRef, ev.CustomerRef)
}

// OnPaymentSucceeded records a settled charge.  A deposit success is a
// duplicate of what Confirm already applied and reduces to the same
// payment upsert; a remainder success settles the balance.
func (r *Reconciler) OnPaymentSucceeded(ctx context.Context, ev PaymentSucceeded) error {
	if err := validatePaymentEvent(ev.BookingID, ev.PaymentRef, ev.Kind); err != nil {
		return err
	}
	if ev.Kind == model.PaymentRemainder {
		return r.engine.RecordRemainderOutcome(ctx, ev.BookingID, ev.PaymentRef, ev.AmountCents, true)
	}
	return r.engine.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockBooking(ctx, ev.BookingID); err != nil {
			return err
		}
		return tx.UpsertPayment(ctx, model.PaymentRecord{
			BookingID:   ev.BookingID,
			ProviderRef: ev.PaymentRef,
			AmountCents: ev.AmountCents,
			Kind:        model.PaymentDeposit,
			Status:      model.PaymentSucceeded,
		})
	})
}

// OnPaymentFailed records a failed charge.  A failed remainder counts
// against the retry ceiling; a failed deposit needs no action — the
// hold simply expires if the customer never completes checkout.
func (r *Reconciler) OnPaymentFailed(ctx context.Context, ev PaymentFailed) error {
	if err := validatePaymentEvent(ev.BookingID, ev.PaymentRef, ev.Kind); err != nil {
		return err
	}
	if ev.Kind != model.PaymentRemainder {
		return nil
	}
	err := r.engine.RecordRemainderOutcome(ctx, ev.BookingID, ev.PaymentRef, ev.AmountCents, false)
	if errors.Is(err, ErrBookingNotFound) {
		return nil
	}
	return err
}
