package whatsapp

import (
	"crypto/subtle"
	"encoding/json"

	"chatrelay/internal/core"
	"chatrelay/internal/domain/message"
)

// WebhookPayload is the top-level webhook delivery. Every level is optional
// on the wire, so absence is checked explicitly instead of indexed blindly.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string       `json:"field"`
	Value *ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages,omitempty"`
}

// Message represents an incoming WhatsApp message
type Message struct {
	From      string       `json:"from"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

// ParseWebhook extracts the first inbound message from a webhook body.
// It returns (nil, nil) for well-formed deliveries that carry no message
// (status callbacks, empty batches).
func ParseWebhook(body []byte) (*message.Inbound, error) {
	const op = "whatsapp.parse_webhook"

	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, core.E(core.KindInvalidInput, op, "invalid webhook payload", err)
	}
	if p.Object == "" || len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, nil
	}
	value := p.Entry[0].Changes[0].Value
	if value == nil || len(value.Messages) == 0 {
		return nil, nil
	}

	m := value.Messages[0]
	if m.From == "" {
		return nil, core.InvalidInput(op, "message is missing sender")
	}
	if m.ID == "" {
		return nil, core.InvalidInput(op, "message is missing id")
	}

	in := &message.Inbound{From: m.From, ID: m.ID}
	if m.Text != nil {
		in.Body = m.Text.Body
	}
	return in, nil
}

// VerifySubscription checks the platform handshake parameters and returns
// the challenge to echo back.
func VerifySubscription(mode, token, challenge, verifyToken string) (string, error) {
	const op = "whatsapp.verify_subscription"

	if mode != "subscribe" || token == "" || verifyToken == "" {
		return "", core.Forbidden(op, "Verification failed")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) != 1 {
		return "", core.Forbidden(op, "Verification failed")
	}
	return challenge, nil
}
