package payment

import (
	"fmt"
	"strings"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is used when a create request omits the currency
const DefaultCurrency = USD

// Amount is a decimal amount in major units as PayPal expects it on the wire
type Amount float64

// Total formats the amount the way the provider's "total" field requires
func (a Amount) Total() string {
	return fmt.Sprintf("%.2f", float64(a))
}

// Session is a hosted payment session created by the provider.
// It is referenced by ID in the execute step and never mutated locally.
type Session struct {
	ID          string
	ApprovalURL string
	State       string
}

// CreateRequest carries what the caller supplies to start a hosted payment
type CreateRequest struct {
	Amount    Amount
	Currency  Currency
	ReturnURL string
	CancelURL string
}

// Validate applies the create-request business rules
func (r CreateRequest) Validate() error {
	if r.Amount <= 0 {
		return DomainError{Code: ErrInvalidAmount, Message: fmt.Sprintf("amount must be positive: %s", r.Amount.Total())}
	}
	if len(strings.TrimSpace(string(r.Currency))) != 3 {
		return DomainError{Code: ErrInvalidCurrency, Message: fmt.Sprintf("invalid currency code: %q", r.Currency)}
	}
	if r.ReturnURL == "" || r.CancelURL == "" {
		return DomainError{Code: ErrInvalidRedirect, Message: "return and cancel URLs are required"}
	}
	return nil
}

// EventType is the provider's webhook event name
type EventType string

const (
	EventSaleCompleted EventType = "PAYMENT.SALE.COMPLETED"
	EventSaleRefunded  EventType = "PAYMENT.SALE.REFUNDED"
)

// Event is a payment notification pushed by the provider
type Event struct {
	Type       EventType
	ResourceID string
	// Custom is the correlation field set at checkout; it carries the chat recipient.
	Custom string
}

// Notifies reports whether the event results in a chat notification
func (e Event) Notifies() bool {
	return e.Type == EventSaleCompleted || e.Type == EventSaleRefunded
}

// DomainError represents a domain-level error
type DomainError struct {
	Message string
	Code    string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("domain error [%s]: %s", e.Code, e.Message)
}

// Domain error codes
const (
	ErrInvalidAmount   = "INVALID_AMOUNT"
	ErrInvalidCurrency = "INVALID_CURRENCY"
	ErrInvalidRedirect = "INVALID_REDIRECT"
)

// Refund is the provider's record of a refunded sale
type Refund struct {
	ID     string
	SaleID string
	State  string
}
