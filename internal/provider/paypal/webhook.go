package paypal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"chatrelay/internal/core"
	"chatrelay/internal/domain/payment"
)

// SignatureHeader carries the base64 HMAC of the notification body.
const SignatureHeader = "X-PayPal-Transmission-Signature"

// Verifier checks notification signatures against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the exact bytes received.
func (v *Verifier) Verify(body []byte, signature string) error {
	const op = "paypal.verify_webhook"

	if signature == "" {
		return core.InvalidInput(op, "Missing signature")
	}
	if len(v.secret) == 0 {
		return core.E(core.KindInternal, op, "webhook secret not configured", nil)
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return core.Unauthorized(op, "Invalid signature")
	}
	return nil
}

type saleResource struct {
	ID     string `json:"id"`
	Custom string `json:"custom"`
}

// ParseEvent decodes a verified notification body. event_type and resource
// must both be present as keys; their values are only checked for the
// event types that trigger a customer message.
func ParseEvent(body []byte) (payment.Event, error) {
	const op = "paypal.parse_event"

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return payment.Event{}, core.E(core.KindInvalidInput, op, "Invalid webhook data", err)
	}
	rawType, hasType := fields["event_type"]
	rawRes, hasRes := fields["resource"]
	if !hasType || !hasRes {
		return payment.Event{}, core.InvalidInput(op, "Invalid webhook data")
	}

	// A non-string event_type is simply not one we dispatch on.
	var eventType string
	_ = json.Unmarshal(rawType, &eventType)
	evt := payment.Event{Type: payment.EventType(eventType)}

	var sale saleResource
	if err := json.Unmarshal(rawRes, &sale); err != nil {
		if evt.Notifies() {
			return payment.Event{}, core.E(core.KindInvalidInput, op, "Invalid webhook data", err)
		}
		return evt, nil
	}
	evt.ResourceID = sale.ID
	evt.Custom = sale.Custom

	if evt.Notifies() && evt.Custom == "" {
		return payment.Event{}, core.InvalidInput(op, "Invalid webhook data: resource.custom is required")
	}
	return evt, nil
}
