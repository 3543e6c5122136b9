package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"venue-booking/internal/model"
	"venue-booking/internal/payment"
	"venue-booking/internal/pricing"
	"venue-booking/internal/scheduler"
)

// Notifier is the "notify on event X" collaborator.  Implementations
// deliver the message however they like (queue, email, log); the engine
// only reports that the event happened.  Errors are logged by the
// engine and never fail the triggering operation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b model.Booking) error
	BookingCancelled(ctx context.Context, b model.Booking, refundedCents int64) error
	RefundIssued(ctx context.Context, b model.Booking, amountCents int64, refundRef string) error
	ReminderDue(ctx context.Context, b model.Booking, daysBefore int) error
	PaymentOverdue(ctx context.Context, b model.Booking) error
}

// Options tunes engine behavior.  Zero values fall back to defaults.
type Options struct {
	HoldTTL              time.Duration // how long a hold blocks the calendar (default 30m)
	RemainderMaxAttempts int           // failed remainder charges before giving up (default 3)
	Now                  func() time.Time
}

// Engine ties the reservation transaction manager, the booking state
// machine and the payment event reconciler together over an injected
// Store.  It is safe for concurrent use: all mutual exclusion is
// provided by the storage layer.
type Engine struct {
	store    Store
	sched    scheduler.Scheduler
	provider payment.Provider
	notifier Notifier
	log      *logrus.Entry

	holdTTL     time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewEngine wires an Engine.  All collaborators are required.
func NewEngine(store Store, sched scheduler.Scheduler, provider payment.Provider, notifier Notifier, log *logrus.Logger, opts Options) *Engine {
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = 30 * time.Minute
	}
	if opts.RemainderMaxAttempts <= 0 {
		opts.RemainderMaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:       store,
		sched:       sched,
		provider:    provider,
		notifier:    notifier,
		log:         log.WithField("component", "booking"),
		holdTTL:     opts.HoldTTL,
		maxAttempts: opts.RemainderMaxAttempts,
		now:         opts.Now,
	}
}

// CustomerInfo identifies the customer creating a hold.  Customers are
// deduplicated by email.
type CustomerInfo struct {
	Email string
	Name  string
	Phone string
}

// CreateHold reserves the range for the customer, or fails cleanly.
// The whole step runs as one transaction: expired holds are purged,
// blackouts checked, the quote snapshotted, and one day unit inserted
// per requested day.  Insertion relies on the day column's UNIQUE
// constraint instead of check-then-insert, so two concurrent holds on
// overlapping ranges can never both commit: whichever transaction
// inserts fewer rows than it asked for rolls everything back and the
// caller sees ErrRangeUnavailable.
func (e *Engine) CreateHold(ctx context.Context, r model.DateRange, info CustomerInfo) (model.Booking, error) {
	if r.NumDays() <= 0 {
		return model.Booking{}, model.ErrInvalidRange
	}
	now := e.now()
	expiry := now.Add(e.holdTTL)

	var b model.Booking
	err := e.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.PurgeExpiredHolds(ctx, now); err != nil {
			return err
		}
		blacked, err := tx.BlackoutDays(ctx, r)
		if err != nil {
			return err
		}
		if len(blacked) > 0 {
			return ErrBlackoutConflict
		}
		pol, err := tx.GetPolicy(ctx)
		if err != nil {
			return err
		}
		quote := pricing.Compute(r, pol)

		custID, err := tx.UpsertCustomerByEmail(ctx, model.Customer{
			Email: info.Email,
			Name:  info.Name,
			Phone: info.Phone,
		})
		if err != nil {
			return err
		}

		b = model.Booking{
			CustomerID:   custID,
			Start:        r.Start,
			End:          r.End,
			Status:       model.BookingHeld,
			DepositCents: quote.DepositCents,
			TotalCents:   quote.TotalCents,
			DayRateCents: pol.DayRateCents,
			DepositKind:  pol.DepositKind,
			DepositValue: pol.DepositValue,
		}
		if err := tx.CreateBooking(ctx, &b); err != nil {
			return err
		}

		units := make([]model.DayUnit, 0, r.NumDays())
		for _, day := range r.Days() {
			exp := expiry
			units = append(units, model.DayUnit{
				Day:       day,
				BookingID: b.ID,
				State:     model.DayHeld,
				ExpiresAt: &exp,
			})
		}
		inserted, err := tx.InsertDayUnits(ctx, units)
		if err != nil {
			return err
		}
		if inserted != len(units) {
			// Another booking owns at least one of the days.  Roll the
			// booking row and the partial units back.
			return ErrRangeUnavailable
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	// Scheduling happens after commit so the transaction never spans a
	// network call.  If the process dies right here the hold simply
	// has no expiry task; the purge step of later hold transactions
	// and lazy expiry visibility still free the days on time.
	e.scheduleHoldExpiry(ctx, b.ID, expiry)

	e.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       r.Start.Format(model.DateLayout),
		"to":         r.End.Format(model.DateLayout),
		"expires_at": expiry,
	}).Info("hold created")
	return b, nil
}

// InitiateDeposit opens a provider checkout for a held booking and
// returns the redirect URL.
func (e *Engine) InitiateDeposit(ctx context.Context, bookingID uint64) (string, error) {
	b, err := e.store.Reader().GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.Status != model.BookingHeld {
		return "", ErrIllegalTransition
	}
	cust, err := e.store.Reader().GetCustomer(ctx, b.CustomerID)
	if err != nil {
		return "", err
	}
	return e.provider.CreateCheckout(ctx, b, cust.Email)
}

// notify invokes fn and logs failures.  Notification delivery is best
// effort and never fails the operation that triggered it.
func (e *Engine) notify(bookingID uint64, event string, fn func() error) {
	if err := fn(); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"event":      event,
		}).Error("notification failed")
	}
}
