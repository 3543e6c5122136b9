package model

import "time"

// DayUnit occupancy states.
const (
	DayHeld   = "HELD"
	DayBooked = "BOOKED"
)

// DayUnit is the atomic occupancy record: one row per reserved calendar
// day.  The UNIQUE constraint on Day is the system's concurrency
// primitive — two transactions trying to reserve the same day cannot
// both insert, which is what makes double booking impossible regardless
// of isolation level.  A HELD unit carries the hold's expiry; a BOOKED
// unit has none.
//
// Fields:
//  ID        – primary key identifier.
//  Day       – the calendar day (UTC midnight, unique).
//  BookingID – owning booking.
//  State     – DayHeld or DayBooked.
//  ExpiresAt – hold expiry, only set while State is DayHeld.
//  CreatedAt – creation timestamp.
type DayUnit struct {
	ID        uint64     // day_units.id
	Day       time.Time  // day_units.day (unique)
	BookingID uint64     // day_units.booking_id
	State     string     // day_units.state
	ExpiresAt *time.Time // day_units.hold_expires_at (nullable)
	CreatedAt time.Time  // day_units.created_at
}

// Held reports whether the unit is a hold that is still live at the
// given instant.  Expired holds are treated as free by read paths even
// before the purge job deletes them.
func (u DayUnit) Held(now time.Time) bool {
	return u.State == DayHeld && u.ExpiresAt != nil && u.ExpiresAt.After(now)
}

// Blackout is an admin-declared day that can never be booked.  It is
// written only through the admin surface; the engine just checks it.
type Blackout struct {
	ID        uint64    // blackouts.id
	Day       time.Time // blackouts.day (unique)
	Reason    string    // blackouts.reason
	CreatedAt time.Time // blackouts.created_at
}
