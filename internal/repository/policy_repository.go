package repository

import (
	"context"
	"database/sql"
	"errors"

	"venue-booking/internal/model"
)

// PolicyRepo provides data access to the singleton policies row.  The
// engine reads it; only the admin surface writes it.  Bookings snapshot
// the values they were quoted under, so edits here never touch open
// bookings.
type PolicyRepo struct{}

// NewPolicyRepo returns a PolicyRepo.
func NewPolicyRepo() *PolicyRepo { return &PolicyRepo{} }

// Get returns the policy, falling back to defaults when no row has
// been written yet.  The read path never creates the row; it first
// materializes when an admin saves changes.
func (r *PolicyRepo) Get(ctx context.Context, q Querier) (model.Policy, error) {
	var p model.Policy
	err := q.QueryRowContext(ctx,
		`SELECT id, deposit_kind, deposit_value, day_rate_cents, remainder_lead_days, cancel_cutoff_hours, updated_at
		 FROM policies WHERE id = 1`,
	).Scan(&p.ID, &p.DepositKind, &p.DepositValue, &p.DayRateCents, &p.RemainderLeadDays, &p.CancelCutoffHours, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPolicy(), nil
	}
	return p, err
}

// Save upserts the singleton row with the given values.
func (r *PolicyRepo) Save(ctx context.Context, q Querier, p model.Policy) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO policies (id, deposit_kind, deposit_value, day_rate_cents, remainder_lead_days, cancel_cutoff_hours)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			deposit_kind = VALUES(deposit_kind),
			deposit_value = VALUES(deposit_value),
			day_rate_cents = VALUES(day_rate_cents),
			remainder_lead_days = VALUES(remainder_lead_days),
			cancel_cutoff_hours = VALUES(cancel_cutoff_hours)`,
		p.DepositKind, p.DepositValue, p.DayRateCents, p.RemainderLeadDays, p.CancelCutoffHours,
	)
	return err
}
