package repository

import (
	"context"
	"database/sql"
	"errors"

	"venue-booking/internal/model"
)

// BookingRepo provides data access to the bookings table.  Bookings
// are never deleted: cancellation and refund are status changes, so
// the row (and its payment history) survives for audit.
type BookingRepo struct{}

// NewBookingRepo returns a BookingRepo.
func NewBookingRepo() *BookingRepo { return &BookingRepo{} }

const bookingColumns = `id, customer_id, start_date, end_date, status, deposit_cents, total_cents,
	day_rate_cents, deposit_kind, deposit_value, provider_customer_ref, created_at, updated_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (model.Booking, error) {
	var (
		b   model.Booking
		ref sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.Start, &b.End, &b.Status, &b.DepositCents, &b.TotalCents,
		&b.DayRateCents, &b.DepositKind, &b.DepositValue, &ref, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Start = model.Day(b.Start)
	b.End = model.Day(b.End)
	if ref.Valid {
		s := ref.String
		b.ProviderCustomerRef = &s
	}
	return b, nil
}

// Create inserts a booking row and populates the generated ID and
// timestamps on the provided record.
func (r *BookingRepo) Create(ctx context.Context, q Querier, b *model.Booking) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO bookings (customer_id, start_date, end_date, status, deposit_cents, total_cents,
			day_rate_cents, deposit_kind, deposit_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.CustomerID, b.Start.Format(model.DateLayout), b.End.Format(model.DateLayout), b.Status,
		b.DepositCents, b.TotalCents, b.DayRateCents, b.DepositKind, b.DepositValue,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row so timestamps and defaults are populated.
	got, err := r.Get(ctx, q, b.ID)
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// Get loads one booking by ID.
func (r *BookingRepo) Get(ctx context.Context, q Querier, id uint64) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// Lock loads one booking with an exclusive row lock.  Must run inside
// a transaction; concurrent transitions on the same booking serialize
// on this lock.
func (r *BookingRepo) Lock(ctx context.Context, q Querier, id uint64) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// SetStatus updates the booking's status.
func (r *BookingRepo) SetStatus(ctx context.Context, q Querier, id uint64, status string) error {
	_, err := q.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetProviderCustomerRef stores the payment provider's customer
// reference once it is known.
func (r *BookingRepo) SetProviderCustomerRef(ctx context.Context, q Querier, id uint64, ref string) error {
	_, err := q.ExecContext(ctx, `UPDATE bookings SET provider_customer_ref = ? WHERE id = ?`, ref, id)
	return err
}
