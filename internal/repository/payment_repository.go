package repository

import (
	"context"

	"venue-booking/internal/model"
)

// PaymentRepo provides data access to the payments and refunds tables.
// Both carry UNIQUE constraints on their provider references; those
// constraints are the idempotency backbone that makes webhook replays
// and retried refund recording harmless.
type PaymentRepo struct{}

// NewPaymentRepo returns a PaymentRepo.
func NewPaymentRepo() *PaymentRepo { return &PaymentRepo{} }

// Upsert inserts or updates one payment record keyed by its provider
// reference.
func (r *PaymentRepo) Upsert(ctx context.Context, q Querier, rec model.PaymentRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO payments (booking_id, provider_payment_ref, amount_cents, kind, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE amount_cents = VALUES(amount_cents), status = VALUES(status)`,
		rec.BookingID, rec.ProviderRef, rec.AmountCents, rec.Kind, rec.Status,
	)
	return err
}

// ForBooking returns every payment record of the booking, oldest first.
func (r *PaymentRepo) ForBooking(ctx context.Context, q Querier, bookingID uint64) ([]model.PaymentRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, booking_id, provider_payment_ref, amount_cents, kind, status, created_at, updated_at
		 FROM payments WHERE booking_id = ? ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.PaymentRecord
	for rows.Next() {
		var p model.PaymentRecord
		if err := rows.Scan(&p.ID, &p.BookingID, &p.ProviderRef, &p.AmountCents, &p.Kind, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, p)
	}
	return recs, rows.Err()
}

// CountFailedRemainders counts failed remainder attempts for the
// booking.  The retry ceiling is derived from this count rather than a
// separate counter column, so replayed failure events cannot
// double-count.
func (r *PaymentRepo) CountFailedRemainders(ctx context.Context, q Querier, bookingID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE booking_id = ? AND kind = ? AND status = ?`,
		bookingID, model.PaymentRemainder, model.PaymentFailed,
	).Scan(&n)
	return n, err
}

// InsertRefund appends to the refund ledger.  A duplicate provider
// refund reference is silently ignored — recording the same refund
// twice must not create two ledger rows.
func (r *PaymentRepo) InsertRefund(ctx context.Context, q Querier, rec model.RefundRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT IGNORE INTO refunds (booking_id, provider_refund_ref, amount_cents, reason)
		 VALUES (?, ?, ?, ?)`,
		rec.BookingID, rec.ProviderRef, rec.AmountCents, rec.Reason,
	)
	return err
}

// RefundsForBooking returns the booking's refund ledger, oldest first.
func (r *PaymentRepo) RefundsForBooking(ctx context.Context, q Querier, bookingID uint64) ([]model.RefundRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, booking_id, provider_refund_ref, amount_cents, reason, created_at
		 FROM refunds WHERE booking_id = ? ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.RefundRecord
	for rows.Next() {
		var rr model.RefundRecord
		if err := rows.Scan(&rr.ID, &rr.BookingID, &rr.ProviderRef, &rr.AmountCents, &rr.Reason, &rr.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rr)
	}
	return recs, rows.Err()
}
