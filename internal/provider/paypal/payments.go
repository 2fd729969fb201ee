package paypal

import (
	"context"
	"fmt"
	"net/url"

	"chatrelay/internal/core"
	"chatrelay/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const paymentsPath = "/v1/payments/payment"

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type transaction struct {
	Amount      amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

type createPaymentReq struct {
	Intent string `json:"intent"`
	Payer  struct {
		PaymentMethod string `json:"payment_method"`
	} `json:"payer"`
	RedirectURLs struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"redirect_urls"`
	Transactions []transaction `json:"transactions"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paymentResp struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Links []link `json:"links"`
}

func (p paymentResp) approvalURL() string {
	for _, l := range p.Links {
		if l.Method == "REDIRECT" || l.Rel == "approval_url" {
			return l.Href
		}
	}
	return ""
}

func (p paymentResp) session() *payment.Session {
	return &payment.Session{ID: p.ID, ApprovalURL: p.approvalURL(), State: p.State}
}

// CreatePayment starts a hosted "sale" payment with a single transaction.
// The payer approves it on PayPal and is redirected back to ReturnURL.
func (c *Client) CreatePayment(ctx context.Context, r payment.CreateRequest) (*payment.Session, error) {
	const op = "paypal.create_payment"

	var in createPaymentReq
	in.Intent = "sale"
	in.Payer.PaymentMethod = "paypal"
	in.RedirectURLs.ReturnURL = r.ReturnURL
	in.RedirectURLs.CancelURL = r.CancelURL
	in.Transactions = []transaction{{
		Amount:      amount{Total: r.Amount.Total(), Currency: string(r.Currency)},
		Description: "Payment for services",
	}}

	resp, err := c.http.PostJSON(ctx, paymentsPath, in, map[string]string{"PayPal-Request-Id": uuid.NewString()})
	if err != nil {
		return nil, core.Upstream(op, "Payment creation failed", err)
	}
	if !resp.IsSuccess() {
		return nil, core.Upstream(op, "Payment creation failed", errorFromResponse(resp))
	}

	var out paymentResp
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, core.Upstream(op, "Payment creation failed", err)
	}
	s := out.session()
	if s.ApprovalURL == "" {
		return nil, core.Upstream(op, "Payment creation failed", fmt.Errorf("payment %s has no approval link", out.ID))
	}

	log.Info().Str("payment_id", s.ID).Str("state", s.State).Msg("payment created successfully")
	return s, nil
}

// ExecutePayment completes an approved payment on behalf of payerID.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID string) (*payment.Session, error) {
	const op = "paypal.execute_payment"

	endpoint := paymentsPath + "/" + url.PathEscape(paymentID) + "/execute"
	resp, err := c.http.PostJSON(ctx, endpoint, map[string]string{"payer_id": payerID}, nil)
	if err != nil {
		return nil, core.Upstream(op, "Payment execution failed", err)
	}
	if !resp.IsSuccess() {
		return nil, core.Upstream(op, "Payment execution failed", errorFromResponse(resp))
	}

	var out paymentResp
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, core.Upstream(op, "Payment execution failed", err)
	}
	if out.State == "failed" {
		return nil, core.Upstream(op, "Payment execution failed", fmt.Errorf("payment %s state failed", paymentID))
	}

	log.Info().Str("payment_id", paymentID).Str("state", out.State).Msg("payment executed successfully")
	return out.session(), nil
}

// GetPayment looks up a payment; nothing is cached locally.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*payment.Session, error) {
	const op = "paypal.get_payment"

	resp, err := c.http.Get(ctx, paymentsPath+"/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, core.Upstream(op, "Payment lookup failed", err)
	}
	if !resp.IsSuccess() {
		return nil, core.Upstream(op, "Payment lookup failed", errorFromResponse(resp))
	}

	var out paymentResp
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, core.Upstream(op, "Payment lookup failed", err)
	}
	return out.session(), nil
}

type refundResp struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	SaleID string `json:"sale_id"`
}

// RefundSale refunds amount of a completed sale.
func (c *Client) RefundSale(ctx context.Context, saleID string, amt payment.Amount, currency payment.Currency) (*payment.Refund, error) {
	const op = "paypal.refund_sale"

	endpoint := "/v1/payments/sale/" + url.PathEscape(saleID) + "/refund"
	body := map[string]amount{"amount": {Total: amt.Total(), Currency: string(currency)}}

	resp, err := c.http.PostJSON(ctx, endpoint, body, map[string]string{"PayPal-Request-Id": uuid.NewString()})
	if err != nil {
		return nil, core.Upstream(op, "Payment refund failed", err)
	}
	if !resp.IsSuccess() {
		return nil, core.Upstream(op, "Payment refund failed", errorFromResponse(resp))
	}

	var out refundResp
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, core.Upstream(op, "Payment refund failed", err)
	}
	if out.SaleID == "" {
		out.SaleID = saleID
	}
	return &payment.Refund{ID: out.ID, SaleID: out.SaleID, State: out.State}, nil
}
