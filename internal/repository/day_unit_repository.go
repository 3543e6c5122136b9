package repository

import (
	"context"
	"database/sql"
	"time"

	"venue-booking/internal/model"
)

// DayUnitRepo provides data access to the day_units table — the
// per-day occupancy records.  The table's UNIQUE KEY on the day column
// is the engine's concurrency primitive: InsertUnits deliberately uses
// INSERT IGNORE and reports how many rows were actually created so the
// caller can detect that another booking got there first, without the
// statement failing and without a check-then-insert race.
type DayUnitRepo struct{}

// NewDayUnitRepo returns a DayUnitRepo.  It is stateless; queries run
// against whatever Querier is passed in.
func NewDayUnitRepo() *DayUnitRepo { return &DayUnitRepo{} }

// InsertUnits inserts one row per unit, skipping days that already have
// an owner, and returns the number of rows created.  All timestamps are
// stored in UTC.
func (r *DayUnitRepo) InsertUnits(ctx context.Context, q Querier, units []model.DayUnit) (int, error) {
	if len(units) == 0 {
		return 0, nil
	}
	query := `INSERT IGNORE INTO day_units (day, booking_id, state, hold_expires_at) VALUES `
	args := make([]any, 0, len(units)*4)
	for i, u := range units {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		var exp any
		if u.ExpiresAt != nil {
			exp = u.ExpiresAt.UTC()
		}
		args = append(args, u.Day.UTC().Format(model.DateLayout), u.BookingID, u.State, exp)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PurgeExpired deletes every HELD unit whose expiry has passed,
// regardless of owner, and returns how many were removed.
func (r *DayUnitRepo) PurgeExpired(ctx context.Context, q Querier, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM day_units WHERE state = ? AND hold_expires_at <= ?`,
		model.DayHeld, now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ForBooking returns every unit owned by the booking.
func (r *DayUnitRepo) ForBooking(ctx context.Context, q Querier, bookingID uint64) ([]model.DayUnit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, day, booking_id, state, hold_expires_at, created_at FROM day_units WHERE booking_id = ? ORDER BY day`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []model.DayUnit
	for rows.Next() {
		var (
			u   model.DayUnit
			exp sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Day, &u.BookingID, &u.State, &exp, &u.CreatedAt); err != nil {
			return nil, err
		}
		if exp.Valid {
			t := exp.Time
			u.ExpiresAt = &t
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// MarkBooked flips every unit of the booking to BOOKED and clears the
// hold expiry.
func (r *DayUnitRepo) MarkBooked(ctx context.Context, q Querier, bookingID uint64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE day_units SET state = ?, hold_expires_at = NULL WHERE booking_id = ?`,
		model.DayBooked, bookingID,
	)
	return err
}

// Release deletes every unit of the booking, freeing its days.
func (r *DayUnitRepo) Release(ctx context.Context, q Querier, bookingID uint64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM day_units WHERE booking_id = ?`, bookingID)
	return err
}

// scanDays drains a single-column day result set into UTC midnights.
func scanDays(rows *sql.Rows) ([]time.Time, error) {
	defer rows.Close()
	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, model.Day(d))
	}
	return days, rows.Err()
}

// BookedDays returns BOOKED days inside the range.
func (r *DayUnitRepo) BookedDays(ctx context.Context, q Querier, rg model.DateRange) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT day FROM day_units WHERE state = ? AND day >= ? AND day < ?`,
		model.DayBooked, rg.Start.Format(model.DateLayout), rg.End.Format(model.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	return scanDays(rows)
}

// HeldDays returns HELD days inside the range whose expiry is still in
// the future.  Expired holds are simply not selected, which is what
// makes lazy expiry visibility work without a write.
func (r *DayUnitRepo) HeldDays(ctx context.Context, q Querier, rg model.DateRange, now time.Time) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT day FROM day_units WHERE state = ? AND hold_expires_at > ? AND day >= ? AND day < ?`,
		model.DayHeld, now.UTC(), rg.Start.Format(model.DateLayout), rg.End.Format(model.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	return scanDays(rows)
}
