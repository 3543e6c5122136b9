package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"venue-booking/internal/booking"
	"venue-booking/internal/model"
)

// Store is the MySQL implementation of booking.Store.  It owns the
// database handle and hands the engine explicit transaction scopes:
// Reader views run directly against the pool, InTx wraps the callback
// in a single transaction that commits only when the callback returns
// nil.
type Store struct {
	db        *sql.DB
	bookings  *BookingRepo
	days      *DayUnitRepo
	payments  *PaymentRepo
	blackouts *BlackoutRepo
	policies  *PolicyRepo
	customers *CustomerRepo
}

// NewStore wires a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		bookings:  NewBookingRepo(),
		days:      NewDayUnitRepo(),
		payments:  NewPaymentRepo(),
		blackouts: NewBlackoutRepo(),
		policies:  NewPolicyRepo(),
		customers: NewCustomerRepo(),
	}
}

// DB exposes the underlying handle for collaborators outside the
// engine's Store contract (admin repos, health checks).
func (s *Store) DB() *sql.DB { return s.db }

// Reader returns a committed-read view.
func (s *Store) Reader() booking.View {
	return &view{q: s.db, s: s}
}

// InTx runs fn inside one transaction.  The rollback on error restores
// every mutation fn made, which is what makes the day-count check in
// the hold path safe: a partial insert never survives.
func (s *Store) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{view: view{q: tx, s: s}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// view implements booking.View over any Querier.
type view struct {
	q Querier
	s *Store
}

func (v *view) BookedDays(ctx context.Context, r model.DateRange) ([]time.Time, error) {
	return v.s.days.BookedDays(ctx, v.q, r)
}

func (v *view) HeldDays(ctx context.Context, r model.DateRange, now time.Time) ([]time.Time, error) {
	return v.s.days.HeldDays(ctx, v.q, r, now)
}

func (v *view) BlackoutDays(ctx context.Context, r model.DateRange) ([]time.Time, error) {
	return v.s.blackouts.DaysIn(ctx, v.q, r)
}

func (v *view) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := v.s.bookings.Get(ctx, v.q, id)
	if errors.Is(err, ErrNotFound) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	return b, err
}

func (v *view) GetCustomer(ctx context.Context, id uint64) (model.Customer, error) {
	return v.s.customers.Get(ctx, v.q, id)
}

func (v *view) PaymentsForBooking(ctx context.Context, bookingID uint64) ([]model.PaymentRecord, error) {
	return v.s.payments.ForBooking(ctx, v.q, bookingID)
}

func (v *view) RefundsForBooking(ctx context.Context, bookingID uint64) ([]model.RefundRecord, error) {
	return v.s.payments.RefundsForBooking(ctx, v.q, bookingID)
}

func (v *view) GetPolicy(ctx context.Context) (model.Policy, error) {
	return v.s.policies.Get(ctx, v.q)
}

// storeTx implements booking.Tx by adding the mutations on top of view.
type storeTx struct {
	view
	tx *sql.Tx
}

func (t *storeTx) PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	return t.s.days.PurgeExpired(ctx, t.tx, now)
}

func (t *storeTx) UpsertCustomerByEmail(ctx context.Context, c model.Customer) (uint64, error) {
	return t.s.customers.UpsertByEmail(ctx, t.tx, c)
}

func (t *storeTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.Create(ctx, t.tx, b)
}

func (t *storeTx) InsertDayUnits(ctx context.Context, units []model.DayUnit) (int, error) {
	return t.s.days.InsertUnits(ctx, t.tx, units)
}

func (t *storeTx) LockBooking(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := t.s.bookings.Lock(ctx, t.tx, id)
	if errors.Is(err, ErrNotFound) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	return b, err
}

func (t *storeTx) SetBookingStatus(ctx context.Context, id uint64, status string) error {
	return t.s.bookings.SetStatus(ctx, t.tx, id, status)
}

func (t *storeTx) SetProviderCustomerRef(ctx context.Context, id uint64, ref string) error {
	return t.s.bookings.SetProviderCustomerRef(ctx, t.tx, id, ref)
}

func (t *storeTx) DayUnitsForBooking(ctx context.Context, bookingID uint64) ([]model.DayUnit, error) {
	return t.s.days.ForBooking(ctx, t.tx, bookingID)
}

func (t *storeTx) MarkBookingDaysBooked(ctx context.Context, bookingID uint64) error {
	return t.s.days.MarkBooked(ctx, t.tx, bookingID)
}

func (t *storeTx) ReleaseDayUnits(ctx context.Context, bookingID uint64) error {
	return t.s.days.Release(ctx, t.tx, bookingID)
}

func (t *storeTx) UpsertPayment(ctx context.Context, rec model.PaymentRecord) error {
	return t.s.payments.Upsert(ctx, t.tx, rec)
}

func (t *storeTx) CountFailedRemainders(ctx context.Context, bookingID uint64) (int, error) {
	return t.s.payments.CountFailedRemainders(ctx, t.tx, bookingID)
}

func (t *storeTx) InsertRefund(ctx context.Context, rec model.RefundRecord) error {
	return t.s.payments.InsertRefund(ctx, t.tx, rec)
}
