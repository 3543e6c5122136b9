// Package pricing computes quotes and deposits.  It is a pure function
// of a date range and a policy: no storage access, no clock, no side
// effects.  The reservation transaction snapshots its output onto the
// booking so later policy edits never change what an open booking owes.
package pricing

import (
	"venue-booking/internal/model"
)

// Quote is the price breakdown for a prospective booking, in minor
// currency units.
type Quote struct {
	TotalCents   int64 // full price for the range
	DepositCents int64 // portion due upfront to confirm the hold
}

// RemainderCents returns the balance still due after the deposit.
func (q Quote) RemainderCents() int64 { return q.TotalCents - q.DepositCents }

// Compute prices a range under the given policy.  The total is the
// per-day rate times the number of reserved days.  A FIXED deposit is
// the policy value capped at the total; a PERCENT deposit is rounded
// down to whole cents.  The deposit never exceeds the total and is
// never negative.
func Compute(r model.DateRange, p model.Policy) Quote {
	total := int64(r.NumDays()) * p.DayRateCents

	var deposit int64
	switch p.DepositKind {
	case model.DepositFixed:
		deposit = p.DepositValue
	case model.DepositPercent:
		deposit = total * p.DepositValue / 100
	}
	if deposit > total {
		deposit = total
	}
	if deposit < 0 {
		deposit = 0
	}
	return Quote{TotalCents: total, DepositCents: deposit}
}
