package service

import (
	"context"
	"time"

	"expressconnect/internal/config"
)

// Config is handed to the services at startup; nothing in this package reads
// the environment.
type Config struct {
	BaseURL           string
	SupportEmail      string
	ResetTTL          time.Duration
	CodeTTL           time.Duration
	CodeLength        int
	MinPasswordLength int
	StoreTimeout      time.Duration
	NotifierTimeout   time.Duration
	// ResetSweepGrace is how long past expiry a reset token is kept before
	// the sweep removes it.
	ResetSweepGrace   time.Duration
}

func NewConfig(cfg *config.AppConfig) Config {
	return Config{
		BaseURL:           cfg.Auth.BaseURL,
		SupportEmail:      cfg.Notify.SupportEmail,
		ResetTTL:          cfg.Auth.ResetTTL,
		CodeTTL:           cfg.Auth.CodeTTL,
		CodeLength:        cfg.Auth.CodeLength,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		StoreTimeout:      cfg.Timeouts.Store,
		NotifierTimeout:   cfg.Timeouts.Notifier,
		ResetSweepGrace:   cfg.Jobs.ResetSweepGrace,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
