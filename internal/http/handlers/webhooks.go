package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"chatrelay/internal/core"
	middlewarex "chatrelay/internal/http/middleware"
	"chatrelay/internal/http/respond"
	"chatrelay/internal/provider/paypal"
	"chatrelay/internal/provider/whatsapp"
	"chatrelay/internal/services/relay"

	"github.com/rs/zerolog"
)

const dispatchBudget = 20 * time.Second

// VerifyWebhook answers the messaging platform's subscription handshake.
func VerifyWebhook(verifyToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge, err := whatsapp.VerifySubscription(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), verifyToken)
		if err != nil {
			respond.Err(w, r, err)
			return
		}

		zerolog.Ctx(r.Context()).Info().Str("challenge", challenge).Msg("webhook verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, challenge)
	}
}

// ReceiveWebhook handles inbound chat messages. Any failure to read the
// delivery is reported as 500; deliveries without a message are acknowledged.
func ReceiveWebhook(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, middlewarex.MaxWebhookBody))
		if err != nil {
			respond.ErrStatus(w, r, http.StatusInternalServerError, core.E(core.KindInternal, "whatsapp.webhook", "failed to read body", err))
			return
		}

		msg, err := whatsapp.ParseWebhook(body)
		if err != nil {
			respond.ErrStatus(w, r, http.StatusInternalServerError, err)
			return
		}
		if msg == nil {
			respond.Success(w, nil)
			return
		}

		// Short, bounded context for the provider call
		ctx, cancel := context.WithTimeout(r.Context(), dispatchBudget)
		defer cancel()

		if _, delivered := svc.Reply(ctx, *msg); !delivered {
			zerolog.Ctx(r.Context()).Warn().Str("to", msg.From).Str("message_id", msg.ID).Msg("reply not delivered")
		}
		respond.Success(w, nil)
	}
}

// PayPalWebhook dispatches a verified payment notification. Signature
// checks run in middleware before this handler sees the body.
func PayPalWebhook(svc *relay.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, middlewarex.MaxWebhookBody))
		if err != nil {
			respond.Err(w, r, core.E(core.KindInternal, "paypal.webhook", "failed to read body", err))
			return
		}

		evt, err := paypal.ParseEvent(body)
		if err != nil {
			respond.Err(w, r, err)
			return
		}

		zerolog.Ctx(r.Context()).Info().
			Str("event_type", string(evt.Type)).
			Str("resource_id", evt.ResourceID).
			Msg("payment notification received")

		if evt.Notifies() {
			ctx, cancel := context.WithTimeout(r.Context(), dispatchBudget)
			defer cancel()
			if _, delivered := svc.NotifyPayment(ctx, evt); !delivered {
				zerolog.Ctx(r.Context()).Warn().Str("to", evt.Custom).Msg("payment notification not delivered")
			}
		}
		respond.Success(w, nil)
	}
}
