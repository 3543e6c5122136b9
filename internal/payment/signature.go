package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Webhook-Signature"

// ErrSignature is returned when a webhook body does not match its
// claimed signature.  Such events must be dropped without any state
// change.
var ErrSignature = errors.New("webhook signature verification failed")

// Sign computes the hex HMAC-SHA256 of body under the shared secret.
// Exposed so tests and the stub provider can produce valid webhooks.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the given hex signature against the body using
// a constant-time comparison.
func VerifySignature(secret string, body []byte, signature string) error {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), want) {
		return ErrSignature
	}
	return nil
}
