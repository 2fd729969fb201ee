package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chatrelay/internal/core"
	"chatrelay/internal/domain/payment"
	"chatrelay/internal/http/respond"
	paymentsvc "chatrelay/internal/services/payment"

	"github.com/go-chi/chi/v5"
)

const providerBudget = 20 * time.Second

type createPaymentReq struct {
	Payment *struct {
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		ReturnURL string  `json:"return_url"`
		CancelURL string  `json:"cancel_url"`
	} `json:"payment"`
}

type executePaymentReq struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
	Nonce     string `json:"nonce"`
}

type refundPaymentReq struct {
	SaleID   string  `json:"sale_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.E(core.KindInvalidInput, "decode", "Invalid payment data", err)
	}
	return nil
}

// CreatePayment starts a hosted payment and returns the approval URL.
func CreatePayment(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in createPaymentReq
		if err := decodeJSON(r, &in); err != nil {
			respond.Err(w, r, err)
			return
		}
		if in.Payment == nil {
			respond.Err(w, r, core.InvalidInput("payment.create", "Invalid payment data"))
			return
		}

		req := payment.CreateRequest{
			Amount:    payment.Amount(in.Payment.Amount),
			Currency:  payment.Currency(in.Payment.Currency),
			ReturnURL: in.Payment.ReturnURL,
			CancelURL: in.Payment.CancelURL,
		}
		if req.ReturnURL == "" {
			req.ReturnURL = "http://return.url"
		}
		if req.CancelURL == "" {
			req.CancelURL = "http://cancel.url"
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerBudget)
		defer cancel()

		sess, err := svc.CreateSession(ctx, req)
		if err != nil {
			respond.Err(w, r, err)
			return
		}
		respond.Success(w, map[string]any{"approval_url": sess.ApprovalURL, "payment_id": sess.ID})
	}
}

// ExecutePayment confirms an approved payment, at most once per nonce.
func ExecutePayment(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in executePaymentReq
		if err := decodeJSON(r, &in); err != nil {
			respond.Err(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerBudget)
		defer cancel()

		if err := svc.ExecuteSession(ctx, in.PaymentID, in.PayerID, in.Nonce); err != nil {
			respond.Err(w, r, err)
			return
		}
		respond.Success(w, map[string]any{"message": "Payment executed successfully"})
	}
}

// PaymentStatus reports the provider's current state for a payment.
func PaymentStatus(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "paymentID")

		ctx, cancel := context.WithTimeout(r.Context(), providerBudget)
		defer cancel()

		state, err := svc.CheckStatus(ctx, id)
		if err != nil {
			respond.Err(w, r, err)
			return
		}
		respond.Success(w, map[string]any{"payment_id": id, "state": state})
	}
}

// RefundPayment refunds a completed sale.
func RefundPayment(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in refundPaymentReq
		if err := decodeJSON(r, &in); err != nil {
			respond.Err(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), providerBudget)
		defer cancel()

		ref, err := svc.Refund(ctx, in.SaleID, payment.Amount(in.Amount), payment.Currency(in.Currency))
		if err != nil {
			respond.Err(w, r, err)
			return
		}
		respond.Success(w, map[string]any{"message": "Payment refunded successfully", "refund_id": ref.ID})
	}
}
