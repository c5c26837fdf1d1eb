package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/quatton/podium/pkg/db"
	"github.com/quatton/podium/pkg/syncer"
	"github.com/robfig/cron/v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type EnvConfig struct {
	Port        string `envconfig:"PORT" default:"3000"`
	BaseURL     string `envconfig:"BASE_URL" required:"true"`
	AuthSecret  string `envconfig:"AUTH_SECRET" required:"true"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	StateTTL    int    `envconfig:"STATE_TTL" default:"600"`
	AdminTTL    int    `envconfig:"ADMIN_TOKEN_TTL" default:"86400"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres"`
	DBHost       string `envconfig:"DB_HOST" default:"localhost"`
	DBPort       int    `envconfig:"DB_PORT" default:"5432"`
	DBUser       string `envconfig:"DB_USER" default:"podium"`
	DBPassword   string `envconfig:"DB_PASSWORD" default:"password"`
	DBName       string `envconfig:"DB_NAME" default:"podium"`
	DBSSLMode    string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	LockTTL       int    `envconfig:"SYNC_LOCK_TTL" default:"300"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	StravaClientID     string        `envconfig:"STRAVA_CLIENT_ID"`
	StravaClientSecret string        `envconfig:"STRAVA_CLIENT_SECRET"`
	StravaRedirectURI  string        `envconfig:"STRAVA_REDIRECT_URI"`
	StravaHTTPTimeout  time.Duration `envconfig:"STRAVA_HTTP_TIMEOUT" default:"15s"`
	StravaRateLimit    float64       `envconfig:"STRAVA_RATE_LIMIT" default:"1"`
	StravaPerPage      int           `envconfig:"STRAVA_PER_PAGE" default:"100"`
	WebhookVerifyToken string        `envconfig:"WEBHOOK_VERIFY_TOKEN"`

	SyncStartDate string `envconfig:"STRAVA_SYNC_START_DATE"`
	SyncEndDate   string `envconfig:"STRAVA_SYNC_END_DATE"`
	SyncWorkers   int    `envconfig:"SYNC_WORKERS" default:"4"`
	SyncQueueSize int    `envconfig:"SYNC_QUEUE_SIZE" default:"256"`
	SyncSchedule  string `envconfig:"SYNC_SCHEDULE" default:"0 0 * * * *"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"podium-activities"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"podium.activities"`
}

// IsDev reports whether ENVIRONMENT names a development setup. Unset counts
// as development.
func IsDev() bool {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	return env == "development" || env == "dev" || env == ""
}

// ValidateEnv loads the configuration from the environment, reading a .env
// file first in development, and reports every problem at once.
func ValidateEnv() (*EnvConfig, error) {
	if IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *EnvConfig) Validate() error {
	var errors []string

	if len(c.AuthSecret) < 32 {
		errors = append(errors, "  ❌ AUTH_SECRET must be at least 32 characters")
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		errors = append(errors, "  ❌ BASE_URL must be a valid URL")
	}

	if c.StoreBackend != StorePostgres && c.StoreBackend != StoreMemory {
		errors = append(errors, fmt.Sprintf("  ❌ STORE_BACKEND must be %q or %q", StorePostgres, StoreMemory))
	}

	if (c.StravaClientID != "" && c.StravaClientSecret == "") || (c.StravaClientID == "" && c.StravaClientSecret != "") {
		errors = append(errors, "  ❌ Both STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET must be set together")
	}

	if _, err := syncer.ParseWindow(c.SyncStartDate, c.SyncEndDate); err != nil {
		errors = append(errors, fmt.Sprintf("  ❌ STRAVA_SYNC_START_DATE/STRAVA_SYNC_END_DATE: %v", err))
	}

	if c.SyncSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.SyncSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("  ❌ SYNC_SCHEDULE is not a valid cron spec: %v", err))
		}
	}

	if c.SyncWorkers < 1 {
		errors = append(errors, "  ❌ SYNC_WORKERS must be at least 1")
	}

	if c.StravaHTTPTimeout <= 0 {
		errors = append(errors, "  ❌ STRAVA_HTTP_TIMEOUT must be positive")
	}

	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errors = append(errors, "  ❌ S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}
	return nil
}

// Window returns the configured sync window, or nil when none is set.
func (c *EnvConfig) Window() *syncer.Window {
	w, _ := syncer.ParseWindow(c.SyncStartDate, c.SyncEndDate)
	return w
}

func (c *EnvConfig) DB() db.Config {
	return db.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// RedirectURI is where Strava sends the user back after authorization.
func (c *EnvConfig) RedirectURI() string {
	if c.StravaRedirectURI != "" {
		return c.StravaRedirectURI
	}
	return strings.TrimRight(c.BaseURL, "/") + "/strava/auth"
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func enabled(ok bool) string {
	if ok {
		return "✓ Enabled"
	}
	return "✗ Disabled"
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  Auth Secret: %s\n", MaskSecret(c.AuthSecret))
	if c.StoreBackend == StoreMemory {
		fmtr("  Store: memory\n")
	} else {
		fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	}
	fmtr("  Sync window: %s\n", c.Window())
	fmtr("  Sync schedule: %s (%d workers)\n", c.SyncSchedule, c.SyncWorkers)
	fmtr("  Redis lock: %s\n", enabled(c.RedisAddr != ""))
	fmtr("  Strava OAuth: %s\n", enabled(c.StravaClientID != ""))
	if c.StravaClientID != "" {
		fmtr("    Client ID: %s\n", MaskSecret(c.StravaClientID))
		fmtr("    Client Secret: %s\n", MaskSecret(c.StravaClientSecret))
		fmtr("    Redirect: %s\n", c.RedirectURI())
	}
	fmtr("  Telegram: %s\n", enabled(c.TelegramBotToken != ""))
	fmtr("  Archive: %s\n", enabled(c.S3Endpoint != ""))
	fmtr("  Kafka: %s\n", enabled(len(c.KafkaBrokers) > 0))
}
