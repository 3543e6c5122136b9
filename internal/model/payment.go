package model

import "time"

// Payment kinds and statuses.  Kind distinguishes the upfront deposit
// from the remainder charged before arrival.
const (
	PaymentDeposit   = "DEPOSIT"
	PaymentRemainder = "REMAINDER"

	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentRecord tracks one attempted charge.  ProviderRef is the
// payment provider's reference and carries a UNIQUE constraint; it is
// the idempotency key that makes replayed webhook events harmless —
// upserting the same reference twice leaves a single row.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – booking the charge belongs to.
//  ProviderRef – provider's payment reference (unique).
//  AmountCents – charged amount in minor units.
//  Kind        – PaymentDeposit or PaymentRemainder.
//  Status      – pending, succeeded or failed.
//  CreatedAt/UpdatedAt – row timestamps.
type PaymentRecord struct {
	ID          uint64    // payments.id
	BookingID   uint64    // payments.booking_id
	ProviderRef string    // payments.provider_payment_ref (unique)
	AmountCents int64     // payments.amount_cents
	Kind        string    // payments.kind
	Status      string    // payments.status
	CreatedAt   time.Time // payments.created_at
	UpdatedAt   time.Time // payments.updated_at
}

// RefundRecord is one entry in the append-only refund ledger.
// ProviderRef is the provider's refund reference and is unique, so
// re-recording the same refund after a retry is a no-op.
type RefundRecord struct {
	ID          uint64    // refunds.id
	BookingID   uint64    // refunds.booking_id
	ProviderRef string    // refunds.provider_refund_ref (unique)
	AmountCents int64     // refunds.amount_cents
	Reason      string    // refunds.reason
	CreatedAt   time.Time // refunds.created_at
}
