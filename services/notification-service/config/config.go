package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// NotificationServiceConfig holds the runtime configuration of the
// notification service. The link URLs are the caller-facing pages that
// redeem confirmation tokens; the worker appends ?token= to them.
type NotificationServiceConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	HealthAddr string `env:"NOTIFICATION_HEALTH_ADDR" envDefault:":50052"`
	HealthHost string `env:"NOTIFICATION_HEALTH_HOST" envDefault:"localhost"`

	ConfirmRegistrationURL string `env:"CONFIRM_REGISTRATION_URL" envDefault:"http://localhost:3000/auth/confirm"`
	ConfirmEmailChangeURL  string `env:"CONFIRM_EMAIL_CHANGE_URL" envDefault:"http://localhost:8080/api/auth/confirm-email-change"`
	PasswordResetURL       string `env:"PASSWORD_RESET_URL"       envDefault:"http://localhost:3000/auth/reset-password"`
}

// NewNotificationServiceConfig creates a NotificationServiceConfig from
// environment variables.
func NewNotificationServiceConfig(logger *zerolog.Logger) *NotificationServiceConfig {
	cfg, err := env.ParseAs[NotificationServiceConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate notification service configuration")
	}

	return &cfg
}

// validate checks if the notification service configuration is valid.
func (c *NotificationServiceConfig) validate() error {
	if c.ConfirmRegistrationURL == "" {
		return fmt.Errorf("missing CONFIRM_REGISTRATION_URL environment variable")
	}
	if c.ConfirmEmailChangeURL == "" {
		return fmt.Errorf("missing CONFIRM_EMAIL_CHANGE_URL environment variable")
	}
	if c.PasswordResetURL == "" {
		return fmt.Errorf("missing PASSWORD_RESET_URL environment variable")
	}

	return nil
}
