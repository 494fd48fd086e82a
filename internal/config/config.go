// Package config assembles the service configuration from .env and the
// environment through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/promptcraft/backend/internal/logging"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	JWT        JWTConfig
	Log        logging.Config
	Ledger     LedgerConfig
	Audit      AuditConfig
	Recharge   RechargeConfig
	Payment    PaymentConfig
	Generation GenerationConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port            string
	PublicURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type JWTConfig struct {
	SecretKey string
}

type LedgerConfig struct {
	RegistrationBonus   int64
	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

// AuditConfig holds the risk thresholds on |amount| and the async queue size.
type AuditConfig struct {
	MediumThreshold int64
	HighThreshold   int64
	QueueSize       int
	Workers         int
}

type RechargeConfig struct {
	MinCredits          int64
	MaxCredits          int64
	PricePerCreditCents int64
	Currency            string
	OrderTTL            time.Duration
	PayURLBase          string
	MaxOrdersPerWindow  int64
	OrderWindow         time.Duration
}

type PaymentConfig struct {
	WebhookSecret string
}

type GenerationConfig struct {
	UpstreamURL string
	APIKey      string
	Cost        int64
	Timeout     time.Duration
}

// RateLimitConfig is the per-user HTTP token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// bindEnv maps the documented environment variables onto viper keys.
func bindEnv() {
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.public_url", "PUBLIC_URL")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.format", "LOG_FORMAT")
	viper.BindEnv("ledger.registration_bonus", "LEDGER_REGISTRATION_BONUS")
	viper.BindEnv("audit.medium_threshold", "AUDIT_MEDIUM_THRESHOLD")
	viper.BindEnv("audit.high_threshold", "AUDIT_HIGH_THRESHOLD")
	viper.BindEnv("recharge.min_credits", "RECHARGE_MIN_CREDITS")
	viper.BindEnv("recharge.max_credits", "RECHARGE_MAX_CREDITS")
	viper.BindEnv("recharge.price_per_credit_cents", "RECHARGE_PRICE_PER_CREDIT_CENTS")
	viper.BindEnv("recharge.order_ttl", "RECHARGE_ORDER_TTL")
	viper.BindEnv("recharge.pay_url_base", "RECHARGE_PAY_URL_BASE")
	viper.BindEnv("payment.webhook_secret", "PAYMENT_WEBHOOK_SECRET")
	viper.BindEnv("generation.upstream_url", "GENERATION_UPSTREAM_URL")
	viper.BindEnv("generation.api_key", "GENERATION_API_KEY")
	viper.BindEnv("generation.cost", "GENERATION_COST")
	viper.BindEnv("ratelimit.rps", "RATELIMIT_RPS")
	viper.BindEnv("ratelimit.burst", "RATELIMIT_BURST")
	viper.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.public_url", "http://localhost:8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 75*time.Second)
	viper.SetDefault("server.request_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("ledger.registration_bonus", 100)
	viper.SetDefault("ledger.history_default_limit", 20)
	viper.SetDefault("ledger.history_max_limit", 100)

	viper.SetDefault("audit.medium_threshold", 100)
	viper.SetDefault("audit.high_threshold", 500)
	viper.SetDefault("audit.queue_size", 1024)
	viper.SetDefault("audit.workers", 1)

	viper.SetDefault("recharge.min_credits", 10)
	viper.SetDefault("recharge.max_credits", 10000)
	viper.SetDefault("recharge.price_per_credit_cents", 10)
	viper.SetDefault("recharge.currency", "USD")
	viper.SetDefault("recharge.order_ttl", 30*time.Minute)
	viper.SetDefault("recharge.pay_url_base", "https://pay.example.com/checkout")
	viper.SetDefault("recharge.max_orders_per_window", 10)
	viper.SetDefault("recharge.order_window", time.Hour)

	viper.SetDefault("generation.upstream_url", "http://localhost:9000/v1/generate")
	viper.SetDefault("generation.cost", 5)
	viper.SetDefault("generation.timeout", 45*time.Second)

	viper.SetDefault("ratelimit.rps", 10)
	viper.SetDefault("ratelimit.burst", 20)

	viper.SetDefault("cors.allowed_origins", []string{"https://*", "http://*"})
}

// Init binds environment variables and reads the .env file at path. A read
// error leaves defaults and environment in effect.
func Init(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load assembles the typed configuration from viper and validates it.
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			PublicURL:       strings.TrimRight(viper.GetString("server.public_url"), "/"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			RequestTimeout:  viper.GetDuration("server.request_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		JWT: JWTConfig{
			SecretKey: viper.GetString("jwt.secret_key"),
		},
		Log: logging.Config{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Ledger: LedgerConfig{
			RegistrationBonus:   viper.GetInt64("ledger.registration_bonus"),
			HistoryDefaultLimit: viper.GetInt("ledger.history_default_limit"),
			HistoryMaxLimit:     viper.GetInt("ledger.history_max_limit"),
		},
		Audit: AuditConfig{
			MediumThreshold: viper.GetInt64("audit.medium_threshold"),
			HighThreshold:   viper.GetInt64("audit.high_threshold"),
			QueueSize:       viper.GetInt("audit.queue_size"),
			Workers:         viper.GetInt("audit.workers"),
		},
		Recharge: RechargeConfig{
			MinCredits:          viper.GetInt64("recharge.min_credits"),
			MaxCredits:          viper.GetInt64("recharge.max_credits"),
			PricePerCreditCents: viper.GetInt64("recharge.price_per_credit_cents"),
			Currency:            viper.GetString("recharge.currency"),
			OrderTTL:            viper.GetDuration("recharge.order_ttl"),
			PayURLBase:          viper.GetString("recharge.pay_url_base"),
			MaxOrdersPerWindow:  viper.GetInt64("recharge.max_orders_per_window"),
			OrderWindow:         viper.GetDuration("recharge.order_window"),
		},
		Payment: PaymentConfig{
			WebhookSecret: viper.GetString("payment.webhook_secret"),
		},
		Generation: GenerationConfig{
			UpstreamURL: viper.GetString("generation.upstream_url"),
			APIKey:      viper.GetString("generation.api_key"),
			Cost:        viper.GetInt64("generation.cost"),
			Timeout:     viper.GetDuration("generation.timeout"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("ratelimit.rps"),
			Burst:             viper.GetInt("ratelimit.burst"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("cors.allowed_origins"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the ledger cannot operate with.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	if c.Ledger.RegistrationBonus < 0 {
		return fmt.Errorf("ledger.registration_bonus must not be negative")
	}
	if c.Ledger.HistoryDefaultLimit <= 0 || c.Ledger.HistoryMaxLimit < c.Ledger.HistoryDefaultLimit {
		return fmt.Errorf("ledger history limits must satisfy 0 < default <= max")
	}
	if c.Audit.MediumThreshold <= 0 || c.Audit.HighThreshold <= c.Audit.MediumThreshold {
		return fmt.Errorf("audit thresholds must satisfy 0 < medium < high")
	}
	if c.Recharge.MinCredits <= 0 || c.Recharge.MaxCredits < c.Recharge.MinCredits {
		return fmt.Errorf("recharge credit bounds must satisfy 0 < min <= max")
	}
	if c.Recharge.PricePerCreditCents < 0 {
		return fmt.Errorf("recharge.price_per_credit_cents must not be negative")
	}
	if c.Generation.Cost <= 0 {
		return fmt.Errorf("generation.cost must be positive")
	}
	return nil
}
