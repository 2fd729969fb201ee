package httpx

import (
	"net/http"

	"chatrelay/internal/config"
	"chatrelay/internal/http/handlers"
	middlewarex "chatrelay/internal/http/middleware"
	"chatrelay/internal/http/respond"
	"chatrelay/internal/provider/paypal"
	"chatrelay/internal/services/payment"
	"chatrelay/internal/services/relay"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config   config.Cfg
	Relay    *relay.Service
	Payments *payment.Service
	Verifier *paypal.Verifier
}

// NewRouter wires every route onto a chi router
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middlewarex.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Messaging platform webhook
	r.Get("/webhook", handlers.VerifyWebhook(deps.Config.WhatsApp.VerifyToken))
	r.Post("/webhook", handlers.ReceiveWebhook(deps.Relay))

	// Payment notifications (validated by signature)
	r.With(middlewarex.PayPalSignature(deps.Verifier)).
		Post("/paypal/webhook", handlers.PayPalWebhook(deps.Relay))

	// Hosted payment flow
	r.Post("/create_payment", handlers.CreatePayment(deps.Payments))
	r.Post("/execute_payment", handlers.ExecutePayment(deps.Payments))
	r.Post("/refund_payment", handlers.RefundPayment(deps.Payments))
	r.Get("/payments/{paymentID}", handlers.PaymentStatus(deps.Payments))

	return r
}
