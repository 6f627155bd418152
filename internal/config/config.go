package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
)

const (
	EnvPrefix  = "PRICING"
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Auth    AuthConfig
	Pricing PricingConfig
	HTTP    HTTPConfig
}

type AppConfig struct {
	Env       string `envconfig:"PRICING_APP_ENV" default:"dev"`
	Port      string `envconfig:"PRICING_PORT" default:"8080"`
	LogLevel  string `envconfig:"PRICING_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"PRICING_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Path        string        `envconfig:"PRICING_DB_PATH" default:"./pricing.db"`
	BusyTimeout time.Duration `envconfig:"PRICING_DB_BUSY_TIMEOUT" default:"5s"`
	AutoMigrate bool          `envconfig:"PRICING_DB_AUTO_MIGRATE" default:"false"`
	SeedDemo    bool          `envconfig:"PRICING_SEED_DEMO" default:"false"`
}

// AuthConfig controls actor tokens. With an empty secret the actor is taken
// from the request body instead of a verified token.
type AuthConfig struct {
	TokenSecret string `envconfig:"PRICING_ACTOR_TOKEN_SECRET"`
	TokenIssuer string `envconfig:"PRICING_ACTOR_TOKEN_ISSUER" default:"tierprice"`
}

func (a AuthConfig) Enabled() bool {
	return a.TokenSecret != ""
}

type PricingConfig struct {
	DefaultCurrency      string          `envconfig:"PRICING_DEFAULT_CURRENCY" default:"USD"`
	MarginAlertThreshold decimal.Decimal `envconfig:"PRICING_MARGIN_ALERT_THRESHOLD" default:"40"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"PRICING_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PRICING_HTTP_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"PRICING_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	cfg.Pricing.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.Pricing.DefaultCurrency))
	return &cfg, nil
}

func (p PricingConfig) validate() error {
	if _, err := money.Scale(p.DefaultCurrency); err != nil {
		return fmt.Errorf("PRICING_DEFAULT_CURRENCY: %w", err)
	}
	if p.MarginAlertThreshold.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("PRICING_MARGIN_ALERT_THRESHOLD must not exceed 100, got %s", p.MarginAlertThreshold)
	}
	return nil
}
