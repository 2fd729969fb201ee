package middlewarex

import (
	"bytes"
	"io"
	"net/http"

	"chatrelay/internal/core"
	"chatrelay/internal/http/respond"
	"chatrelay/internal/provider/paypal"
)

// MaxWebhookBody caps how much of a notification body is read.
const MaxWebhookBody = 1 << 20

// PayPalSignature rejects notifications whose signature header is missing
// (400) or does not match the body (401). The verified body is handed on
// unchanged.
func PayPalSignature(v *paypal.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := r.Header.Get(paypal.SignatureHeader)
			if sig == "" {
				respond.Err(w, r, core.InvalidInput("paypal.webhook", "Missing signature"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBody))
			if err != nil {
				respond.Err(w, r, core.E(core.KindInvalidInput, "paypal.webhook", "Invalid webhook data", err))
				return
			}
			if err := v.Verify(body, sig); err != nil {
				respond.Err(w, r, err)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
