// Package payment abstracts the external payment provider.  The engine
// only cares about the state transitions provider calls trigger, so the
// interface is deliberately small; real gateway plumbing lives behind
// it.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"venue-booking/internal/model"
)

// ErrDeclined is returned by ChargeRemainder when the provider
// processed the request but refused the charge.  It is distinct from
// transport errors: a declined charge counts as a failed attempt, a
// transport error means the whole task should run again later.
var ErrDeclined = errors.New("payment declined")

// Provider is the outbound payment gateway surface the engine consumes.
type Provider interface {
	// CreateCheckout opens a hosted checkout session for the booking's
	// deposit and returns the URL to redirect the customer to.
	CreateCheckout(ctx context.Context, b model.Booking, customerEmail string) (string, error)
	// ChargeRemainder charges the stored payment method for the
	// remaining balance.  On success and on decline it returns the
	// provider's payment reference for the attempt.
	ChargeRemainder(ctx context.Context, b model.Booking, amountCents int64) (string, error)
	// Refund refunds part or all of a previously succeeded payment and
	// returns the provider's refund reference.
	Refund(ctx context.Context, providerPaymentRef string, amountCents int64) (string, error)
}

// StubProvider is a Provider for development and tests.  It mints
// random references and always succeeds, simulating a provider whose
// asynchronous webhooks are driven separately (e.g. by a test or a
// sandbox dashboard).
type StubProvider struct {
	CheckoutBaseURL string
}

// NewStubProvider builds a StubProvider generating checkout URLs under
// the given base.
func NewStubProvider(base string) *StubProvider {
	return &StubProvider{CheckoutBaseURL: base}
}

func (p *StubProvider) CreateCheckout(_ context.Context, b model.Booking, _ string) (string, error) {
	return fmt.Sprintf("%s/checkout/%d/%s", p.CheckoutBaseURL, b.ID, uuid.NewString()), nil
}

func (p *StubProvider) ChargeRemainder(_ context.Context, _ model.Booking, _ int64) (string, error) {
	return "pay_" + uuid.NewString(), nil
}

func (p *StubProvider) Refund(_ context.Context, _ string, _ int64) (string, error) {
	return "re_" + uuid.NewString(), nil
}
