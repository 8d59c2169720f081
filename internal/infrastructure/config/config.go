package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Booking       BookingConfig       `mapstructure:"booking"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
	// TriggerToken authenticates the out-of-band reconcile trigger
	// endpoint (shared secret, X-Reconcile-Token header).
	TriggerToken string `mapstructure:"trigger_token"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// ProvidersConfig carries per-rail adapter settings. Secret keys are
// expected from the environment; there is no sane file default for
// them.
type ProvidersConfig struct {
	CallTimeout time.Duration      `mapstructure:"call_timeout"`
	Paystack    ProviderRailConfig `mapstructure:"paystack"`
	Flutterwave ProviderRailConfig `mapstructure:"flutterwave"`
	Mock        MockRailConfig     `mapstructure:"mock"`
}

// MockRailConfig enables the simulated rail for local development. It
// must never be enabled in production.
type MockRailConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FailureRate float64       `mapstructure:"failure_rate"`
	TimeoutRate float64       `mapstructure:"timeout_rate"`
	Latency     time.Duration `mapstructure:"latency"`
}

type ProviderRailConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type BookingConfig struct {
	// HostResponseWindow bounds how long a request-mode booking may sit
	// awaiting the host's decision before the sweep expires it.
	HostResponseWindow time.Duration `mapstructure:"host_response_window"`
	// PaymentWindow bounds how long a booking may sit in pending_payment
	// without a successful charge before the sweep expires it.
	PaymentWindow time.Duration `mapstructure:"payment_window"`
}

type ReconcileConfig struct {
	PassInterval   time.Duration `mapstructure:"pass_interval"`
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	BatchSize      int           `mapstructure:"batch_size"`
	Workers        int           `mapstructure:"workers"`
	// LeaseDuration is the per-intent database lease. It must exceed the
	// provider call timeout with margin so a live worker never loses its
	// row mid-verify.
	LeaseDuration     time.Duration `mapstructure:"lease_duration"`
	MaxVerifyAttempts int           `mapstructure:"max_verify_attempts"`
	PassLockTTL       time.Duration `mapstructure:"pass_lock_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize    int           `mapstructure:"sweep_batch_size"`
}

type NotifyConfig struct {
	ConsumerGroup string        `mapstructure:"consumer_group"`
	BatchSize     int64         `mapstructure:"batch_size"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SHORTLET")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shortlet-payments")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Providers.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("providers.call_timeout must be positive"))
	}
	if c.Reconcile.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("reconcile.batch_size must be positive"))
	}
	if c.Reconcile.Workers <= 0 {
		errs = append(errs, fmt.Errorf("reconcile.workers must be positive"))
	}
	if c.Reconcile.MaxVerifyAttempts <= 0 {
		errs = append(errs, fmt.Errorf("reconcile.max_verify_attempts must be positive"))
	}
	if c.Reconcile.LeaseDuration <= c.Providers.CallTimeout {
		errs = append(errs, fmt.Errorf(
			"reconcile.lease_duration (%s) must exceed providers.call_timeout (%s)",
			c.Reconcile.LeaseDuration, c.Providers.CallTimeout))
	}
	if c.Booking.HostResponseWindow <= 0 {
		errs = append(errs, fmt.Errorf("booking.host_response_window must be positive"))
	}
	if c.Booking.PaymentWindow <= 0 {
		errs = append(errs, fmt.Errorf("booking.payment_window must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
		if c.Auth.TriggerToken == "" {
			errs = append(errs, fmt.Errorf("auth.trigger_token required in production"))
		}
		if c.Providers.Paystack.Enabled && c.Providers.Paystack.SecretKey == "" {
			errs = append(errs, fmt.Errorf("providers.paystack.secret_key required in production"))
		}
		if c.Providers.Flutterwave.Enabled && c.Providers.Flutterwave.SecretKey == "" {
			errs = append(errs, fmt.Errorf("providers.flutterwave.secret_key required in production"))
		}
		if c.Providers.Mock.Enabled {
			errs = append(errs, fmt.Errorf("providers.mock must not be enabled in production"))
		}
	}

	// JWT secret length validation
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "shortlet")
	v.SetDefault("database.database", "shortlet")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Provider defaults
	v.SetDefault("providers.call_timeout", "15s")
	v.SetDefault("providers.paystack.enabled", true)
	v.SetDefault("providers.paystack.base_url", "https://api.paystack.co")
	v.SetDefault("providers.flutterwave.enabled", true)
	v.SetDefault("providers.flutterwave.base_url", "https://api.flutterwave.com/v3")
	v.SetDefault("providers.mock.enabled", false)
	v.SetDefault("providers.mock.failure_rate", 0.0)
	v.SetDefault("providers.mock.timeout_rate", 0.0)
	v.SetDefault("providers.mock.latency", "50ms")

	// Booking defaults
	v.SetDefault("booking.host_response_window", "12h")
	v.SetDefault("booking.payment_window", "1h")

	// Reconcile defaults
	v.SetDefault("reconcile.pass_interval", "5m")
	v.SetDefault("reconcile.stale_threshold", "10m")
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("reconcile.workers", 8)
	v.SetDefault("reconcile.lease_duration", "30s")
	v.SetDefault("reconcile.max_verify_attempts", 5)
	v.SetDefault("reconcile.pass_lock_ttl", "4m")
	v.SetDefault("reconcile.sweep_interval", "10m")
	v.SetDefault("reconcile.sweep_batch_size", 200)

	// Notify defaults
	v.SetDefault("notify.consumer_group", "notification-dispatchers")
	v.SetDefault("notify.batch_size", 10)
	v.SetDefault("notify.block_duration", "1s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Auth defaults
	v.SetDefault("auth.jwt_expiry", "24h")

	// Instance ID
	v.SetDefault("instance_id", "shortlet-payments-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
