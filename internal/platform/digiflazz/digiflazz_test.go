package digiflazz

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	// md5("user" + "key" + "TRX-1")
	require.Equal(t, "21c9d4dfd657b954f250e1ed3097436a", Sign("user", "key", "TRX-1"))

	// Signature depends on every component.
	assert.NotEqual(t, Sign("user", "key", "TRX-1"), Sign("user", "key", "TRX-2"))
	assert.NotEqual(t, Sign("user", "key", "TRX-1"), Sign("user", "other", "TRX-1"))
}

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, OrderStatusSuccess, normalizeStatus("Sukses"))
	require.Equal(t, OrderStatusPending, normalizeStatus("Pending"))
	require.Equal(t, OrderStatusFailed, normalizeStatus("Gagal"))
	require.Equal(t, OrderStatusFailed, normalizeStatus("anything else"))
}

func TestGatewayError_TransientClassification(t *testing.T) {
	transient := &GatewayError{Op: "transaction", RC: "82", transient: true}
	permanent := &GatewayError{Op: "transaction", RC: "41", Message: "wrong customer number"}

	require.True(t, IsTransient(transient))
	require.False(t, IsTransient(permanent))
	require.False(t, IsTransient(errors.New("plain error")))

	// Wrapped gateway errors are still recognized.
	wrapped := NewTransientError("transaction", errors.New("connection reset"))
	require.True(t, IsTransient(wrapped))
}

func TestParseCallback(t *testing.T) {
	body := []byte(`{"data":{"ref_id":"TRX-42","customer_no":"12345678","buyer_sku_code":"ml86","status":"Sukses","message":"ok","rc":"00","sn":"SN-9"}}`)

	ev, err := ParseCallback(body)
	require.NoError(t, err)
	require.Equal(t, "TRX-42", ev.RefID)
	require.Equal(t, OrderStatusSuccess, ev.Status)
	require.Equal(t, "00", ev.RC)
	require.Equal(t, "SN-9", ev.SerialNumber)
	require.JSONEq(t, string(body), string(ev.Raw))
}

func TestParseCallback_Invalid(t *testing.T) {
	_, err := ParseCallback([]byte(`not json`))
	require.Error(t, err)

	_, err = ParseCallback([]byte(`{"data":{}}`))
	require.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "hook-secret"
	body := []byte(`{"data":{"ref_id":"TRX-42","status":"Sukses"}}`)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	header := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	require.True(t, VerifyWebhookSignature(secret, body, header))
	require.False(t, VerifyWebhookSignature(secret, body, "sha1=deadbeef"))
	require.False(t, VerifyWebhookSignature(secret, body, "md5=abc"))
	require.False(t, VerifyWebhookSignature("other-secret", body, header))
}
