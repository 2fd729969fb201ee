package payment

import (
	"context"
	"errors"
	"strings"

	"chatrelay/internal/core"
	"chatrelay/internal/domain/payment"
	"chatrelay/internal/store/nonce"

	"github.com/rs/zerolog/log"
)

// ErrNonceUsed is returned when an execution token has been consumed before.
var ErrNonceUsed = core.InvalidInput("payment.execute", "Nonce has already been used")

// Gateway is the hosted-payment provider the service delegates to.
type Gateway interface {
	CreatePayment(ctx context.Context, r payment.CreateRequest) (*payment.Session, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*payment.Session, error)
	GetPayment(ctx context.Context, paymentID string) (*payment.Session, error)
	RefundSale(ctx context.Context, saleID string, amount payment.Amount, currency payment.Currency) (*payment.Refund, error)
}

// Service manages hosted payment sessions
type Service struct {
	gateway Gateway
	nonces  nonce.Store
}

// NewService creates a new payment service
func NewService(gateway Gateway, nonces nonce.Store) *Service {
	return &Service{gateway: gateway, nonces: nonces}
}

// CreateSession starts a hosted payment and returns where to send the payer.
func (s *Service) CreateSession(ctx context.Context, r payment.CreateRequest) (*payment.Session, error) {
	if r.Currency == "" {
		r.Currency = payment.DefaultCurrency
	}
	r.Currency = payment.Currency(strings.ToUpper(string(r.Currency)))
	if err := r.Validate(); err != nil {
		var de payment.DomainError
		if errors.As(err, &de) {
			return nil, core.E(core.KindInvalidInput, "payment.create", "Invalid payment data: "+de.Message, err)
		}
		return nil, err
	}

	sess, err := s.gateway.CreatePayment(ctx, r)
	if err != nil {
		log.Error().Err(err).Str("amount", r.Amount.Total()).Str("currency", string(r.Currency)).Msg("error creating payment")
		return nil, err
	}
	return sess, nil
}

// ExecuteSession completes an approved payment at most once per nonce. The
// nonce is consumed before the provider is called, so an ambiguous provider
// failure still burns it.
func (s *Service) ExecuteSession(ctx context.Context, paymentID, payerID, token string) error {
	if paymentID == "" || payerID == "" || token == "" {
		return core.InvalidInput("payment.execute", "Invalid payment data")
	}

	fresh, err := s.nonces.Consume(ctx, token)
	if err != nil {
		return core.E(core.KindInternal, "payment.execute", "Payment execution failed", err)
	}
	if !fresh {
		log.Warn().Str("payment_id", paymentID).Msg("execution rejected: nonce already used")
		return ErrNonceUsed
	}

	if _, err := s.gateway.ExecutePayment(ctx, paymentID, payerID); err != nil {
		log.Error().Err(err).Str("payment_id", paymentID).Msg("error executing payment")
		return err
	}
	return nil
}

// CheckStatus returns the provider's current state for a payment.
func (s *Service) CheckStatus(ctx context.Context, paymentID string) (string, error) {
	if paymentID == "" {
		return "", core.InvalidInput("payment.status", "payment id is required")
	}
	sess, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		log.Error().Err(err).Str("payment_id", paymentID).Msg("error fetching payment status")
		return "", err
	}
	log.Info().Str("payment_id", paymentID).Str("state", sess.State).Msg("payment status")
	return sess.State, nil
}

// Refund returns amount of a completed sale to the payer.
func (s *Service) Refund(ctx context.Context, saleID string, amount payment.Amount, currency payment.Currency) (*payment.Refund, error) {
	if saleID == "" || amount <= 0 {
		return nil, core.InvalidInput("payment.refund", "Invalid refund data")
	}
	if currency == "" {
		currency = payment.DefaultCurrency
	}

	ref, err := s.gateway.RefundSale(ctx, saleID, amount, payment.Currency(strings.ToUpper(string(currency))))
	if err != nil {
		log.Error().Err(err).Str("sale_id", saleID).Msg("error refunding payment")
		return nil, err
	}
	log.Info().Str("sale_id", saleID).Str("refund_id", ref.ID).Msg("payment refunded successfully")
	return ref, nil
}
