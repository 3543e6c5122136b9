package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"venue-booking/internal/booking"
	"venue-booking/internal/payment"
)

// webhookEnvelope is the provider's wire format: a type tag plus a
// payload whose shape depends on the type.  The envelope is decoded
// and validated here, at the boundary; the reconciler only ever sees
// the closed event variants.
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		BookingID   uint64 `json:"booking_id"`
		PaymentRef  string `json:"payment_ref"`
		CustomerRef string `json:"customer_ref"`
		AmountCents int64  `json:"amount_cents"`
		Kind        string `json:"kind"`
	} `json:"data"`
}

// WebhookHandler receives asynchronous payment provider events.  Events
// may arrive duplicated and out of order; everything downstream is
// idempotent, so the handler acknowledges with 200 even when processing
// fails — returning an error status would only make the provider retry
// an event that will fail identically, and real gaps are closed by the
// reconciliation sweep.  Only a bad signature is refused outright.
type WebhookHandler struct {
	Reconciler *booking.Reconciler
	Secret     string
	Log        *logrus.Entry
}

// NewWebhookHandler constructs a WebhookHandler verifying signatures
// with the given shared secret.
func NewWebhookHandler(rec *booking.Reconciler, secret string, log *logrus.Logger) *WebhookHandler {
	if rec == nil || secret == "" {
		panic("nil reconciler or empty secret passed to NewWebhookHandler")
	}
	return &WebhookHandler{Reconciler: rec, Secret: secret, Log: log.WithField("component", "webhook")}
}

// Receive handles POST /v1/webhooks/payment.
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(h.Secret, body, sig); err != nil {
		// Security rejection: drop with no state change and log at
		// high severity — an invalid signature is either a
		// misconfiguration or someone probing the endpoint.
		h.Log.WithField("remote", c.RealIP()).Error("webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.Log.WithError(err).Error("malformed webhook payload")
		return c.NoContent(http.StatusOK)
	}

	ctx := c.Request().Context()
	switch env.Type {
	case "checkout.completed":
		err = h.Reconciler.OnCheckoutCompleted(ctx, booking.CheckoutCompleted{
			BookingID:         env.Data.BookingID,
			DepositPaymentRef: env.Data.PaymentRef,
			CustomerRef:       env.Data.CustomerRef,
		})
	case "payment.succeeded":
		err = h.Reconciler.OnPaymentSucceeded(ctx, booking.PaymentSucceeded{
			BookingID:   env.Data.BookingID,
			PaymentRef:  env.Data.PaymentRef,
			AmountCents: env.Data.AmountCents,
			Kind:        env.Data.Kind,
		})
	case "payment.failed":
		err = h.Reconciler.OnPaymentFailed(ctx, booking.PaymentFailed{
			BookingID:   env.Data.BookingID,
			PaymentRef:  env.Data.PaymentRef,
			AmountCents: env.Data.AmountCents,
			Kind:        env.Data.Kind,
		})
	default:
		h.Log.WithField("type", env.Type).Warn("unknown webhook event type, ignoring")
	}
	if err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"type":       env.Type,
			"booking_id": env.Data.BookingID,
		}).Error("webhook event processing failed")
	}
	return c.NoContent(http.StatusOK)
}
