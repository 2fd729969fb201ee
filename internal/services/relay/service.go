// Package relay answers inbound chat messages and turns payment
// notifications into chat messages.
package relay

import (
	"context"

	"chatrelay/internal/domain/message"
	"chatrelay/internal/domain/payment"
	"chatrelay/internal/provider/whatsapp"

	"github.com/rs/zerolog/log"
)

const (
	MsgPaymentCompleted = "Your payment has been completed."
	MsgPaymentRefunded  = "Your payment has been refunded."
)

// Messenger delivers a text message to a chat recipient.
type Messenger interface {
	Send(ctx context.Context, to, text string) (*whatsapp.SendResponse, error)
}

// Classifier picks the reply for an inbound message.
type Classifier interface {
	Classify(text string) string
}

type Service struct {
	messenger  Messenger
	classifier Classifier
}

func NewService(m Messenger, c Classifier) *Service {
	return &Service{messenger: m, classifier: c}
}

// Reply classifies msg and sends the canned answer back to its sender.
// Delivery is best effort: a send failure is logged by the messenger and
// reported through the boolean only.
func (s *Service) Reply(ctx context.Context, msg message.Inbound) (message.Outbound, bool) {
	out := message.Outbound{To: msg.From, Text: s.classifier.Classify(msg.Body)}

	log.Info().
		Str("from", msg.From).
		Str("message_id", msg.ID).
		Msg("processing inbound message")

	_, err := s.messenger.Send(ctx, out.To, out.Text)
	return out, err == nil
}

// NotifyPayment tells the payer about a completed or refunded sale. Other
// event types are acknowledged without a message.
func (s *Service) NotifyPayment(ctx context.Context, evt payment.Event) (message.Outbound, bool) {
	var text string
	switch evt.Type {
	case payment.EventSaleCompleted:
		text = MsgPaymentCompleted
	case payment.EventSaleRefunded:
		text = MsgPaymentRefunded
	default:
		log.Info().Str("event_type", string(evt.Type)).Msg("payment event ignored")
		return message.Outbound{}, false
	}

	out := message.Outbound{To: evt.Custom, Text: text}
	_, err := s.messenger.Send(ctx, out.To, out.Text)
	return out, err == nil
}
