// Package booking implements the reservation engine: the atomic hold
// transaction, the booking state machine, the payment event reconciler
// and the calendar queries they share.  All state lives behind the
// Store interface; the engine holds no mutable process state, so any
// number of instances can run against the same database.
package booking

import (
	"context"
	"errors"
	"time"

	"venue-booking/internal/model"
)

// Sentinel errors surfaced by the engine.  Handlers translate these to
// HTTP statuses; background task handlers use them to decide between
// retrying and giving up.
var (
	ErrBookingNotFound          = errors.New("booking not found")
	ErrRangeUnavailable         = errors.New("range unavailable")
	ErrBlackoutConflict         = errors.New("range intersects blackout")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrIllegalTransition        = errors.New("illegal booking state transition")
	ErrNothingToRefund          = errors.New("no succeeded payments to refund against")
	ErrInvalidAmount            = errors.New("refund amount must be positive")
)

// View is the read-only slice of storage.  Reads performed through a
// View outside a transaction see committed state only; the calendar
// endpoints and background task handlers use it.
type View interface {
	// BookedDays returns days in the range occupied by BOOKED units.
	BookedDays(ctx context.Context, r model.DateRange) ([]time.Time, error)
	// HeldDays returns days in the range held with an expiry after now.
	// Expired holds are invisible here even before they are purged.
	HeldDays(ctx context.Context, r model.DateRange, now time.Time) ([]time.Time, error)
	// BlackoutDays returns admin-blacked-out days in the range.
	BlackoutDays(ctx context.Context, r model.DateRange) ([]time.Time, error)

	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	GetCustomer(ctx context.Context, id uint64) (model.Customer, error)
	PaymentsForBooking(ctx context.Context, bookingID uint64) ([]model.PaymentRecord, error)
	RefundsForBooking(ctx context.Context, bookingID uint64) ([]model.RefundRecord, error)

	// GetPolicy returns the singleton policy, or defaults when no row
	// has been written yet.  It never writes.
	GetPolicy(ctx context.Context) (model.Policy, error)
}

// Tx is the set of operations available inside one atomic unit.  Every
// mutation the engine performs goes through a Tx so that either the
// whole step commits or none of it does.
type Tx interface {
	View

	// PurgeExpiredHolds deletes every HELD day unit whose expiry has
	// passed, across all bookings.  Amortized garbage collection run at
	// the start of each hold transaction.
	PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error)

	UpsertCustomerByEmail(ctx context.Context, c model.Customer) (uint64, error)
	CreateBooking(ctx context.Context, b *model.Booking) error

	// InsertDayUnits attempts to insert one unit per day and returns
	// how many rows were actually created.  Days already occupied are
	// skipped rather than failing the statement; the caller compares
	// the count against the requested day count and rolls back on a
	// mismatch.  The UNIQUE constraint on the day column is what makes
	// this safe under full concurrency.
	InsertDayUnits(ctx context.Context, units []model.DayUnit) (int, error)

	// LockBooking loads a booking with an exclusive row lock so that
	// concurrent transitions on the same booking serialize.
	LockBooking(ctx context.Context, id uint64) (model.Booking, error)
	SetBookingStatus(ctx context.Context, id uint64, status string) error
	SetProviderCustomerRef(ctx context.Context, id uint64, ref string) error

	DayUnitsForBooking(ctx context.Context, bookingID uint64) ([]model.DayUnit, error)
	// MarkBookingDaysBooked flips every owned unit HELD→BOOKED and
	// clears the hold expiry.
	MarkBookingDaysBooked(ctx context.Context, bookingID uint64) error
	// ReleaseDayUnits deletes every unit owned by the booking, freeing
	// the calendar.
	ReleaseDayUnits(ctx context.Context, bookingID uint64) error

	// UpsertPayment inserts or updates a payment record keyed by its
	// provider reference.  Replaying the same reference is a no-op
	// apart from status/amount refresh.
	UpsertPayment(ctx context.Context, rec model.PaymentRecord) error
	CountFailedRemainders(ctx context.Context, bookingID uint64) (int, error)
	// InsertRefund appends to the refund ledger; duplicate provider
	// refund references are ignored.
	InsertRefund(ctx context.Context, rec model.RefundRecord) error
}

// Store is the injected storage context.  Reader gives committed-read
// access; InTx runs fn inside a transaction that commits when fn
// returns nil and rolls back otherwise.
type Store interface {
	Reader() View
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
