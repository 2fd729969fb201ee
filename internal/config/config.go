package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppCfg struct {
	Env      string
	Port     string
	LogLevel string
	LogFile  string
}

type WhatsAppCfg struct {
	APIURL           string
	PhoneNumberID    string
	AccessToken      string
	VerifyToken      string
	MaxMessageLength int
	TimeoutSec       int
}

type PayPalCfg struct {
	Mode          string // sandbox | live
	APIURL        string // overrides the mode-derived base URL when set
	ClientID      string
	ClientSecret  string
	WebhookSecret string
	TimeoutSec    int
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
}

type Cfg struct {
	App      AppCfg
	WhatsApp WhatsAppCfg
	PayPal   PayPalCfg
	Redis    RedisCfg
}

// Load reads .env (if present) and the process environment into a Cfg.
func Load() (Cfg, error) {
	// A missing .env is fine; real deployments inject env vars directly.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", "5001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("WHATSAPP_MAX_MESSAGE_LENGTH", 2000)
	v.SetDefault("WHATSAPP_TIMEOUT_SEC", 15)
	v.SetDefault("PAYPAL_MODE", "sandbox")
	v.SetDefault("PAYPAL_TIMEOUT_SEC", 20)
	v.SetDefault("REDIS_DB", 0)

	cfg := Cfg{
		App: AppCfg{
			Env:      v.GetString("APP_ENV"),
			Port:     v.GetString("APP_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
			LogFile:  v.GetString("LOG_FILE"),
		},
		WhatsApp: WhatsAppCfg{
			APIURL:           strings.TrimRight(v.GetString("WHATSAPP_API_URL"), "/"),
			PhoneNumberID:    strings.TrimSpace(v.GetString("WHATSAPP_PHONE_NUMBER_ID")),
			AccessToken:      strings.TrimSpace(v.GetString("WHATSAPP_ACCESS_TOKEN")),
			VerifyToken:      strings.TrimSpace(v.GetString("WHATSAPP_VERIFY_TOKEN")),
			MaxMessageLength: v.GetInt("WHATSAPP_MAX_MESSAGE_LENGTH"),
			TimeoutSec:       v.GetInt("WHATSAPP_TIMEOUT_SEC"),
		},
		PayPal: PayPalCfg{
			Mode:          strings.ToLower(v.GetString("PAYPAL_MODE")),
			APIURL:        strings.TrimRight(v.GetString("PAYPAL_API_URL"), "/"),
			ClientID:      strings.TrimSpace(v.GetString("PAYPAL_CLIENT_ID")),
			ClientSecret:  strings.TrimSpace(v.GetString("PAYPAL_CLIENT_SECRET")),
			WebhookSecret: v.GetString("PAYPAL_WEBHOOK_SECRET"),
			TimeoutSec:    v.GetInt("PAYPAL_TIMEOUT_SEC"),
		},
		Redis: RedisCfg{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate fails fast on settings the relay cannot run without.
func (c Cfg) Validate() error {
	var errs []error
	if c.WhatsApp.APIURL == "" {
		errs = append(errs, errors.New("WHATSAPP_API_URL is required"))
	}
	if c.WhatsApp.AccessToken == "" {
		errs = append(errs, errors.New("WHATSAPP_ACCESS_TOKEN is required"))
	}
	if c.WhatsApp.VerifyToken == "" {
		errs = append(errs, errors.New("WHATSAPP_VERIFY_TOKEN is required"))
	}
	if c.WhatsApp.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("WHATSAPP_MAX_MESSAGE_LENGTH must be positive"))
	}
	if c.PayPal.Mode != "sandbox" && c.PayPal.Mode != "live" {
		errs = append(errs, errors.New("PAYPAL_MODE must be sandbox or live"))
	}
	if c.PayPal.ClientID == "" || c.PayPal.ClientSecret == "" {
		errs = append(errs, errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required"))
	}
	if c.PayPal.WebhookSecret == "" {
		errs = append(errs, errors.New("PAYPAL_WEBHOOK_SECRET is required"))
	}
	return errors.Join(errs...)
}

// PayPalBaseURL resolves the REST endpoint for the configured mode.
func (c Cfg) PayPalBaseURL() string {
	if c.PayPal.APIURL != "" {
		return c.PayPal.APIURL
	}
	if c.PayPal.Mode == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}
