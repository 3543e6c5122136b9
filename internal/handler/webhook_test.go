package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"venue-booking/internal/booking"
	"venue-booking/internal/payment"
)

const webhookSecret = "test-secret"

// Event processing itself is covered by the reconciler tests; the
// handler tests pin down the boundary: signature gating and the
// always-ack contract.  None of these requests reaches the engine.
func newWebhookHandler() *WebhookHandler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewWebhookHandler(booking.NewReconciler(nil), webhookSecret, log)
}

func postWebhook(h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	_ = h.Receive(e.NewContext(req, rec))
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newWebhookHandler()
	body := `{"type":"checkout.completed","data":{"booking_id":1,"payment_ref":"dep_1"}}`

	rec := postWebhook(h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(h, body, payment.Sign("wrong-secret", []byte(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tampered := strings.Replace(body, `"booking_id":1`, `"booking_id":2`, 1)
	rec = postWebhook(h, tampered, payment.Sign(webhookSecret, []byte(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcksMalformedPayload(t *testing.T) {
	h := newWebhookHandler()
	body := `{"type":`

	rec := postWebhook(h, body, payment.Sign(webhookSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code, "a permanently broken payload must not be retried forever")
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	h := newWebhookHandler()
	body := `{"type":"customer.updated","data":{}}`

	rec := postWebhook(h, body, payment.Sign(webhookSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
