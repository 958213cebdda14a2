package digiflazz

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Sign computes the request signature the provider expects:
// md5(username + apiKey + refID), hex-encoded.
func Sign(username, apiKey, refID string) string {
	sum := md5.Sum([]byte(username + apiKey + refID))
	return hex.EncodeToString(sum[:])
}

// VerifyWebhookSignature checks the X-Hub-Signature header ("sha1=<hex>")
// against an HMAC-SHA1 of the raw body. Comparison is constant time.
func VerifyWebhookSignature(secret string, body []byte, header string) bool {
	const prefix = "sha1="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, prefix)))
}

// CallbackEvent is the normalized view of the provider's asynchronous
// final-status callback, keyed by the RefID of the original order.
type CallbackEvent struct {
	RefID        string
	Status       OrderStatus
	RC           string
	SerialNumber string
	Message      string
	Raw          json.RawMessage
}

// ParseCallback decodes a webhook body into a CallbackEvent.
func ParseCallback(body []byte) (*CallbackEvent, error) {
	var envelope responseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode callback payload: %w", err)
	}
	if envelope.Data.RefID == "" {
		return nil, fmt.Errorf("callback payload has no ref_id")
	}
	raw := make([]byte, len(body))
	copy(raw, body)
	return &CallbackEvent{
		RefID:        envelope.Data.RefID,
		Status:       normalizeStatus(envelope.Data.Status),
		RC:           envelope.Data.RC,
		SerialNumber: envelope.Data.SN,
		Message:      envelope.Data.Message,
		Raw:          raw,
	}, nil
}
