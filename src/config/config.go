// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env          string   `env:"APP_ENV" envDefault:"local"`
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"bubtconnect-backend"`
	Port         string   `env:"PORT" envDefault:"4000"`
	CorsOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	FrontendURL  string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	StoreDriver  string   `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURL     string   `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
	MongoDB      string   `env:"MONGODB_DATABASE" envDefault:"BUBTCONNECT"`
	NatsURL      string   `env:"NATS_URL"`
	RedisURL     string   `env:"REDIS_URL"`
	OtelEndpoint string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	JWTSecret     string `env:"JWT_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	SMTP     SMTP
	ImageKit ImageKit
	Worker   Worker
	Limits   Limits
}

type SMTP struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	Sender   string        `env:"SMTP_SENDER" envDefault:"noreply@bubtconnect.app"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
}

type ImageKit struct {
	PrivateKey  string `env:"IMAGEKIT_PRIVATE_KEY"`
	URLEndpoint string `env:"IMAGEKIT_URL_ENDPOINT"`
}

type Worker struct {
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`
	Lease        time.Duration `env:"WORKER_LEASE" envDefault:"5m"`
	MaxAttempts  int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`
	Concurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
}

type Limits struct {
	ConnectionRequests int           `env:"CONNECTION_REQUEST_LIMIT" envDefault:"20"`
	Window             time.Duration `env:"CONNECTION_REQUEST_WINDOW" envDefault:"24h"`
	ReminderDelay      time.Duration `env:"CONNECTION_REMINDER_DELAY" envDefault:"24h"`
}

// Load parses the environment and checks the settings the service cannot
// run without.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of mongo, memory", c.StoreDriver))
	}
	if c.Limits.ConnectionRequests <= 0 {
		errs = append(errs, errors.New("CONNECTION_REQUEST_LIMIT must be positive"))
	}
	// A send that outlives the job lease lets another worker claim the job
	// and deliver the same mail again.
	if c.SMTP.Timeout <= 0 || c.SMTP.Timeout >= c.Worker.Lease {
		errs = append(errs, fmt.Errorf("SMTP_TIMEOUT %s must be positive and shorter than WORKER_LEASE %s", c.SMTP.Timeout, c.Worker.Lease))
	}
	return errors.Join(errs...)
}

// Local reports whether the service runs on a developer machine.
func (c Config) Local() bool {
	return c.Env == "local"
}
