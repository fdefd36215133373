package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	storeBadger   = "badger"
	storePostgres = "postgres"

	notifierLog     = "log"
	notifierWebhook = "webhook"
	notifierNats    = "nats"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3005" validate:"min=1,max=65535"`
	GRPCPort int    `env:"GRPC_PORT,default=3006" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	Store            string `env:"STORE,default=badger" validate:"oneof=badger postgres"`
	BadgerFilepath   string `env:"BADGER_FILEPATH,default=./data/badger" validate:"required_if=Store badger"`
	DatabaseURL      string `env:"DATABASE_URL" validate:"required_if=Store postgres"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS,default=10" validate:"min=1"`

	RedisURL        string        `env:"REDIS_URL"`
	ContactCacheTTL time.Duration `env:"CONTACT_CACHE_TTL,default=5m"`

	Notifier          string `env:"NOTIFIER,default=log" validate:"oneof=log webhook nats"`
	WebhookURL        string `env:"NOTIFIER_WEBHOOK_URL" validate:"required_if=Notifier webhook"`
	NatsURL           string `env:"NATS_URL" validate:"required_if=Notifier nats"`
	NatsSubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=chat.notifications"`
	NatsStream        string `env:"NATS_STREAM"`

	QueueSize            int           `env:"QUEUE_SIZE,default=256" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	SendTimeout          time.Duration `env:"SEND_TIMEOUT,default=2s"`
	NotifyTimeout        time.Duration `env:"NOTIFY_TIMEOUT,default=5s"`
	ActivityTimeout      time.Duration `env:"ACTIVITY_TIMEOUT,default=2s"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	ReadTimeout          time.Duration `env:"WS_READ_TIMEOUT,default=60s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	OtelEndpoint   string `env:"OTEL_ENDPOINT"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"SEND_TIMEOUT":     c.SendTimeout,
		"NOTIFY_TIMEOUT":   c.NotifyTimeout,
		"ACTIVITY_TIMEOUT": c.ActivityTimeout,
		"REQUEST_TIMEOUT":  c.RequestTimeout,
		"WS_READ_TIMEOUT":  c.ReadTimeout,
		"METRIC_INTERVAL":  c.MetricInterval,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", name, d)
		}
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS. Empty means every origin.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
