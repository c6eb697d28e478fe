package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// AuthServiceConfig holds the runtime configuration of the auth service.
// It is constructed once at startup and passed by reference into the
// components that need it; there is no ambient global configuration.
type AuthServiceConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	HTTPAddr   string `env:"AUTH_HTTP_ADDR"   envDefault:":8080"`
	HealthAddr string `env:"AUTH_HEALTH_ADDR" envDefault:":50051"`
	HealthHost string `env:"AUTH_HEALTH_HOST" envDefault:"localhost"`

	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"jobpulse"`

	Token TokenConfig
}

// TokenConfig holds the signing key and lifetimes for issued tokens.
// The TTLs are security-relevant configuration: expiry is the only
// invalidation mechanism for the stateless tokens this service issues.
type TokenConfig struct {
	Secret string `env:"TOKEN_SECRET"`
	Issuer string `env:"TOKEN_ISSUER" envDefault:"jobpulse"`

	ConfirmationTokenTTL time.Duration `env:"CONFIRMATION_TOKEN_TTL" envDefault:"24h"`
	SessionTokenTTL      time.Duration `env:"SESSION_TOKEN_TTL"      envDefault:"72h"`
}

// NewAuthServiceConfig creates an AuthServiceConfig from environment
// variables.
func NewAuthServiceConfig(logger *zerolog.Logger) *AuthServiceConfig {
	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate auth service configuration")
	}

	return &cfg
}

// validate checks if the auth service configuration is valid.
func (c *AuthServiceConfig) validate() error {
	if c.Token.Secret == "" {
		return fmt.Errorf("missing TOKEN_SECRET environment variable")
	}
	if c.Token.ConfirmationTokenTTL <= 0 {
		return fmt.Errorf("CONFIRMATION_TOKEN_TTL must be positive")
	}
	if c.Token.SessionTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive")
	}

	return nil
}
