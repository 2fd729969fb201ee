package whatsapp

import (
	"context"
	"fmt"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/provider/base"

	"github.com/rs/zerolog/log"
)

// Client sends messages through the WhatsApp send-message API.
type Client struct {
	http          *base.HTTPClient
	accessToken   string
	phoneNumberID string
}

func New(cfg config.WhatsAppCfg) *Client {
	hc := base.NewHTTPClient("whatsapp", cfg.TimeoutSec)
	hc.SetBaseURL(cfg.APIURL)
	return &Client{http: hc, accessToken: cfg.AccessToken, phoneNumberID: cfg.PhoneNumberID}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// SendResponse is the provider's answer to a send call
type SendResponse struct {
	MessagingProduct string `json:"messaging_product,omitempty"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages,omitempty"`
}

// MessageID returns the id the provider assigned, if any
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

func (c *Client) endpoint() string {
	if c.phoneNumberID != "" {
		return "/" + c.phoneNumberID + "/messages"
	}
	return "/messages"
}

// Send delivers a text message. Failures are logged here; callers treat
// delivery as best effort.
func (c *Client) Send(ctx context.Context, to, text string) (*SendResponse, error) {
	const op = "whatsapp.send"

	resp, err := c.http.PostJSON(ctx, c.endpoint(),
		sendRequest{To: to, Text: text, Type: "text"},
		map[string]string{"Authorization": "Bearer " + c.accessToken},
	)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("error sending message")
		return nil, core.Upstream(op, "message delivery failed", err)
	}
	if !resp.IsSuccess() {
		err := fmt.Errorf("status %d; body=%s", resp.StatusCode, resp.String())
		log.Error().Err(err).Str("to", to).Msg("error sending message")
		return nil, core.Upstream(op, "message delivery failed", err)
	}

	var out SendResponse
	if len(resp.Body) > 0 {
		if err := resp.DecodeJSON(&out); err != nil {
			// Delivered; the body just isn't the shape we expected.
			log.Warn().Err(err).Str("to", to).Msg("unexpected send response body")
		}
	}
	log.Info().Str("to", to).Str("message_id", out.MessageID()).Msg("message sent successfully")
	return &out, nil
}
