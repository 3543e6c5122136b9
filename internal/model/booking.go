package model

import "time"

// Booking statuses.  A booking starts HELD and either becomes CONFIRMED
// when the deposit is paid or CANCELLED when the hold expires.  From
// CONFIRMED it can end in CANCELLED (no refund due) or REFUNDED.
// CANCELLED and REFUNDED are terminal.
const (
	BookingHeld      = "HELD"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingRefunded  = "REFUNDED"
)

// Booking is the aggregate root for a reservation.  It owns one DayUnit
// per day in its range while the reservation is alive.  Rows are never
// deleted; cancellation and refund are terminal states, not deletions.
//
// Fields:
//  ID                  – primary key identifier.
//  CustomerID          – customer who made the booking.
//  Start, End          – reserved range [Start, End), UTC midnights.
//  Status              – one of the Booking* constants above.
//  DepositCents        – deposit snapshotted at hold time.
//  TotalCents          – full quote snapshotted at hold time.
//  DayRateCents        – per-day rate used for the quote (snapshot).
//  DepositKind         – deposit policy kind used for the quote (snapshot).
//  DepositValue        – deposit policy value used for the quote (snapshot).
//  ProviderCustomerRef – payment provider's customer reference, if known.
//  CreatedAt/UpdatedAt – row timestamps.
type Booking struct {
	ID                  uint64    // bookings.id
	CustomerID          uint64    // bookings.customer_id
	Start               time.Time // bookings.start_date
	End                 time.Time // bookings.end_date
	Status              string    // bookings.status
	DepositCents        int64     // bookings.deposit_cents
	TotalCents          int64     // bookings.total_cents
	DayRateCents        int64     // bookings.day_rate_cents (pricing snapshot)
	DepositKind         string    // bookings.deposit_kind (pricing snapshot)
	DepositValue        int64     // bookings.deposit_value (pricing snapshot)
	ProviderCustomerRef *string   // bookings.provider_customer_ref (nullable)
	CreatedAt           time.Time // bookings.created_at
	UpdatedAt           time.Time // bookings.updated_at
}

// Range returns the booking's reserved date range.
func (b Booking) Range() DateRange { return DateRange{Start: b.Start, End: b.End} }

// Terminal reports whether the booking is in a state that admits no
// further transitions.
func (b Booking) Terminal() bool {
	return b.Status == BookingCancelled || b.Status == BookingRefunded
}

// Customer identifies a paying customer.  Customers are upserted by
// email when a hold is created, so the same person never gets two rows.
type Customer struct {
	ID        uint64    // customers.id
	Email     string    // customers.email (unique)
	Name      string    // customers.name
	Phone     string    // customers.phone
	CreatedAt time.Time // customers.created_at
}
