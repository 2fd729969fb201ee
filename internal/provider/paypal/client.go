// Package paypal talks to the PayPal REST payments API: hosted payment
// sessions, sale refunds, and webhook signature verification.
package paypal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/provider/base"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenPath = "/v1/oauth2/token"

// Client is a PayPal REST client. Requests are authenticated with a
// client-credentials token that oauth2 caches and refreshes.
type Client struct {
	http *base.HTTPClient
}

func New(cfg config.Cfg) *Client {
	baseURL := cfg.PayPalBaseURL()
	timeout := time.Duration(cfg.PayPal.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token fetch gets its own bounded client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})

	hc := base.NewHTTPClient("paypal", cfg.PayPal.TimeoutSec)
	hc.SetBaseURL(baseURL)
	hc.SetTransport(cc.Client(tokenCtx))

	return &Client{http: hc}
}

// apiError is PayPal's error envelope
type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}

func errorFromResponse(resp *base.HTTPResponse) error {
	var e apiError
	if err := resp.DecodeJSON(&e); err == nil && e.Name != "" {
		return fmt.Errorf("paypal %d %s: %s (debug_id=%s)", resp.StatusCode, e.Name, e.Message, e.DebugID)
	}
	return fmt.Errorf("paypal %d: %s", resp.StatusCode, resp.String())
}
