package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"type":"checkout.completed","data":{"booking_id":42}}`)
	sig := Sign("topsecret", body)

	require.NoError(t, VerifySignature("topsecret", body, sig))
}

func TestVerifyRejectsTampering(t *testing.T) {
	body := []byte(`{"amount_cents":100}`)
	sig := Sign("topsecret", body)

	tampered := []byte(`{"amount_cents":100000}`)
	assert.ErrorIs(t, VerifySignature("topsecret", tampered, sig), ErrSignature)
	assert.ErrorIs(t, VerifySignature("othersecret", body, sig), ErrSignature)
	assert.ErrorIs(t, VerifySignature("topsecret", body, "not-hex"), ErrSignature)
	assert.ErrorIs(t, VerifySignature("topsecret", body, ""), ErrSignature)
}
