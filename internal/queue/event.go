// Package queue defines the notification events exchanged over the
// message broker and the publisher/consumer around them.  The engine
// reports that something happened; what a notification looks like
// (email, calendar file, ops alert) is entirely the consumer's
// business.
package queue

// Event types carried on the booking.events queue.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventRefundIssued     = "refund.issued"
	EventReminderDue      = "reminder.due"
	EventPaymentOverdue   = "payment.overdue"
)

// Event is the envelope published for every notification.  Fields not
// relevant to a given type are zero.
type Event struct {
	Type          string `json:"type"`
	BookingID     uint64 `json:"booking_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	StartDate     string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate       string `json:"end_date,omitempty"`   // YYYY-MM-DD
	TotalCents    int64  `json:"total_cents,omitempty"`
	AmountCents   int64  `json:"amount_cents,omitempty"` // refund amount
	RefundRef     string `json:"refund_ref,omitempty"`
	DaysBefore    int    `json:"days_before,omitempty"` // reminder offset
	OccurredAt    string `json:"occurred_at"`           // RFC3339 UTC
}
