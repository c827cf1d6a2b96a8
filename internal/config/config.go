package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath    string `envconfig:"DB_PATH" default:"./data/deadman.db"`
	DefaultTZ string `envconfig:"DEFAULT_TZ" default:"Europe/Rome"`
	RunMode   string `envconfig:"RUN_MODE" default:"service"` // service|once
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`   // debug|info|warn|error
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`

	ScanInterval        time.Duration `envconfig:"SCAN_INTERVAL" default:"5m"`
	ScanMode            string        `envconfig:"SCAN_MODE" default:"midnight"`           // midnight|minutes
	CheckinResetMode    string        `envconfig:"CHECKIN_RESET_MODE" default:"midnight"`  // midnight|minutes
	CheckinResetMinutes int           `envconfig:"CHECKIN_RESET_MINUTES" default:"2"`
	Workers             int           `envconfig:"WORKERS" default:"4"`

	SMTP

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"10m"`

	// BotToken enables the Telegram front-end when set.
	BotToken string `envconfig:"BOT_TOKEN"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"deadman.alerts"`

	OtelEndpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure    bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
	OtelServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"deadman"`
}

// SMTP configures the mail gateway; delivery stays disabled until all credentials are set.
type SMTP struct {
	Host        string        `envconfig:"SMTP_HOST"`
	Port        string        `envconfig:"SMTP_PORT" default:"587"`
	Username    string        `envconfig:"SMTP_USERNAME"`
	Password    string        `envconfig:"SMTP_PASSWORD"`
	FromAddress string        `envconfig:"SMTP_FROM_ADDRESS"`
	FromName    string        `envconfig:"SMTP_FROM_NAME" default:"SILEME"`
	Timeout     time.Duration `envconfig:"SMTP_TIMEOUT" default:"10s"`
}

// CheckinResetWindow is the minutes-mode gap between two check-ins.
func (c Config) CheckinResetWindow() time.Duration {
	return time.Duration(c.CheckinResetMinutes) * time.Minute
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
