package repository

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"

	"venue-booking/internal/model"
)

// BlackoutRepo provides data access to the blackouts table.  Blackouts
// are written only by the admin surface; the booking engine just reads
// them, so Add/Remove take the plain database handle while DaysIn also
// runs inside hold transactions.
type BlackoutRepo struct{}

// NewBlackoutRepo returns a BlackoutRepo.
func NewBlackoutRepo() *BlackoutRepo { return &BlackoutRepo{} }

// mysqlDuplicate reports whether err is a duplicate-key violation.
func mysqlDuplicate(err error) bool {
	if me, ok := err.(*mysql.MySQLError); ok {
		return me.Number == 1062
	}
	return false
}

// Add declares a day unavailable.  Adding a day twice returns
// ErrDuplicate.
func (r *BlackoutRepo) Add(ctx context.Context, q Querier, day time.Time, reason string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO blackouts (day, reason) VALUES (?, ?)`,
		model.Day(day).Format(model.DateLayout), reason,
	)
	if err != nil && mysqlDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// Remove lifts a blackout.  Removing a day that has none returns
// ErrNotFound.
func (r *BlackoutRepo) Remove(ctx context.Context, q Querier, day time.Time) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM blackouts WHERE day = ?`,
		model.Day(day).Format(model.DateLayout),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DaysIn returns blacked-out days inside the range.
func (r *BlackoutRepo) DaysIn(ctx context.Context, q Querier, rg model.DateRange) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT day FROM blackouts WHERE day >= ? AND day < ?`,
		rg.Start.Format(model.DateLayout), rg.End.Format(model.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	return scanDays(rows)
}

// List returns every blackout, soonest first.
func (r *BlackoutRepo) List(ctx context.Context, q Querier) ([]model.Blackout, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, day, reason, created_at FROM blackouts ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Blackout
	for rows.Next() {
		var b model.Blackout
		if err := rows.Scan(&b.ID, &b.Day, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Day = model.Day(b.Day)
		out = append(out, b)
	}
	return out, rows.Err()
}
