package model

import "time"

// Deposit kinds for the pricing policy.
const (
	DepositFixed   = "FIXED"
	DepositPercent = "PERCENT"
)

// Policy is the singleton pricing and cancellation configuration.  It
// is created lazily with defaults on first read and mutated only
// through the admin surface.  The engine never writes it: each booking
// snapshots the values it was quoted under, so later policy changes
// never retroactively reprice an open booking.
//
// Fields:
//  DepositKind        – FIXED (absolute cents) or PERCENT (of total).
//  DepositValue       – cents when FIXED, whole percentage when PERCENT.
//  DayRateCents       – price per reserved day in minor units.
//  RemainderLeadDays  – days before arrival the remainder is charged.
//  CancelCutoffHours  – hours before arrival after which customers can
//                       no longer cancel.
type Policy struct {
	ID                uint64    // policies.id (always 1)
	DepositKind       string    // policies.deposit_kind
	DepositValue      int64     // policies.deposit_value
	DayRateCents      int64     // policies.day_rate_cents
	RemainderLeadDays int       // policies.remainder_lead_days
	CancelCutoffHours int       // policies.cancel_cutoff_hours
	UpdatedAt         time.Time // policies.updated_at
}

// DefaultPolicy returns the values used when no policy row exists yet.
func DefaultPolicy() Policy {
	return Policy{
		ID:                1,
		DepositKind:       DepositPercent,
		DepositValue:      20,
		DayRateCents:      100000,
		RemainderLeadDays: 14,
		CancelCutoffHours: 72,
	}
}

// Admin is a back-office user allowed to manage blackouts, the policy
// and manual refunds.  Only the bcrypt hash of the password is stored.
type Admin struct {
	ID           uint64    // admins.id
	Email        string    // admins.email (unique)
	PasswordHash string    // admins.password_hash
	CreatedAt    time.Time // admins.created_at
}
