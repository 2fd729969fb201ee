package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/chat"
	"chatrelay/internal/config"
	httpx "chatrelay/internal/http"
	"chatrelay/internal/provider/paypal"
	"chatrelay/internal/provider/whatsapp"
	"chatrelay/internal/services/payment"
	"chatrelay/internal/services/relay"
	"chatrelay/internal/store/nonce"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	setupLogging(cfg.App)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Nonce set: process memory unless Redis is configured
	var nonces nonce.Store = nonce.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb, err := nonce.OpenRedis(ctx, cfg.Redis, 30*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer rdb.Close()
		nonces = nonce.NewRedisStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis nonce store")
	}

	relaySvc := relay.NewService(whatsapp.New(cfg.WhatsApp), chat.NewClassifier(cfg.WhatsApp.MaxMessageLength))
	paymentSvc := payment.NewService(paypal.New(cfg), nonces)

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:   cfg,
		Relay:    relaySvc,
		Payments: paymentSvc,
		Verifier: paypal.NewVerifier(cfg.PayPal.WebhookSecret),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("paypal_mode", cfg.PayPal.Mode).Msgf("chat relay listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}

func setupLogging(app config.AppCfg) {
	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || app.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if app.Env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if app.LogFile != "" {
		f, err := os.OpenFile(app.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Error().Err(err).Str("file", app.LogFile).Msg("cannot open log file, logging to stderr only")
		} else {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
