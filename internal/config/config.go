package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	PublicURL   string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	Redis     RedisConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	Storage   StorageConfig
	Stripe    StripeConfig
	Scheduler SchedulerConfig
	Metrics   RemoteMetricsConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	RateLimit int
	Burst     int
}

// Enabled reports whether a redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type StorageConfig struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	PublicBaseURL  string
	ForcePathStyle bool
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceIDPro    string
	SuccessURL    string
	CancelURL     string
	BaseURL       string
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

type RemoteMetricsConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	Job       string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	publicURL := strings.TrimRight(getenv("APP_PUBLIC_URL", "http://localhost:5173"), "/")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "invoicer"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		PublicURL:    publicURL,
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "invoicer"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBAutoMigrate:     getenvBool("DB_AUTO_MIGRATE", true),

		Redis: RedisConfig{
			Addr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:  getenv("REDIS_PASSWORD", ""),
			DB:        getenvInt("REDIS_DB", 0),
			RateLimit: getenvInt("RATE_LIMIT_PER_SECOND", 10),
			Burst:     getenvInt("RATE_LIMIT_BURST", 30),
		},
		Auth: AuthConfig{
			JWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
			TokenTTL:  getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "localhost"),
			Port:     getenvInt("SMTP_PORT", 1025),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "fatture@invoicer.local"),
			FromName: getenv("SMTP_FROM_NAME", "Invoicer"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getenv("STORAGE_DRIVER", "memory")),
			Bucket:         getenv("STORAGE_BUCKET", "branding"),
			Region:         getenv("STORAGE_REGION", "eu-south-1"),
			Endpoint:       strings.TrimSpace(getenv("STORAGE_ENDPOINT", "")),
			AccessKey:      getenv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getenv("STORAGE_SECRET_KEY", ""),
			PublicBaseURL:  strings.TrimRight(getenv("STORAGE_PUBLIC_URL", ""), "/"),
			ForcePathStyle: getenvBool("STORAGE_FORCE_PATH_STYLE", true),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			PriceIDPro:    strings.TrimSpace(getenv("STRIPE_PRICE_ID_PRO", "")),
			SuccessURL:    getenv("STRIPE_SUCCESS_URL", publicURL+"/settings?checkout=success"),
			CancelURL:     getenv("STRIPE_CANCEL_URL", publicURL+"/settings?checkout=cancel"),
			BaseURL:       getenv("STRIPE_API_BASE", "https://api.stripe.com"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getenvBool("SCHEDULER_ENABLED", true),
			Interval: getenvDuration("SCHEDULER_INTERVAL", time.Hour),
			Timeout:  getenvDuration("SCHEDULER_JOB_TIMEOUT", 2*time.Minute),
		},
		Metrics: RemoteMetricsConfig{
			Enabled:   getenvBool("REMOTE_METRICS_ENABLED", false),
			Exporter:  strings.ToLower(getenv("REMOTE_METRICS_EXPORTER", "remote_write")),
			Endpoint:  strings.TrimSpace(getenv("REMOTE_METRICS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("REMOTE_METRICS_AUTH_TOKEN", "")),
			Job:       getenv("REMOTE_METRICS_JOB", "invoicer"),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}

	return cfg
}

// IsDevelopment reports whether the app runs in a local environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
