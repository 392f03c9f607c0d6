package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Outbound carrier HTTP
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	HTTPMaxTries uint          `envconfig:"HTTP_MAX_TRIES" default:"3"`

	// DHL eCommerce. DHLThreshold bounds token refreshes per call; 0 falls
	// back to 1, so a rejected token is always refreshed at least once.
	DHLUsername  string `envconfig:"DHL_USERNAME"`
	DHLPassword  string `envconfig:"DHL_PASSWORD"`
	DHLClientID  string `envconfig:"DHL_CLIENT_ID"`
	DHLBaseURL   string `envconfig:"DHL_BASE_URL"`
	DHLThreshold int    `envconfig:"DHL_THRESHOLD" default:"1"`
	DHLEnabled   bool   `envconfig:"DHL_ENABLED" default:"false"`
	DHLTest      bool   `envconfig:"DHL_TEST" default:"false"`

	// FedEx
	FedExKey      string `envconfig:"FEDEX_KEY"`
	FedExPassword string `envconfig:"FEDEX_PASSWORD"`
	FedExAccount  string `envconfig:"FEDEX_ACCOUNT"`
	FedExLogin    string `envconfig:"FEDEX_LOGIN"`
	FedExBaseURL  string `envconfig:"FEDEX_BASE_URL"`
	FedExEnabled  bool   `envconfig:"FEDEX_ENABLED" default:"false"`
	FedExTest     bool   `envconfig:"FEDEX_TEST" default:"false"`

	// Landmark Global
	LandmarkUsername string `envconfig:"LANDMARK_USERNAME"`
	LandmarkPassword string `envconfig:"LANDMARK_PASSWORD"`
	LandmarkBaseURL  string `envconfig:"LANDMARK_BASE_URL"`
	LandmarkEnabled  bool   `envconfig:"LANDMARK_ENABLED" default:"false"`
	LandmarkTest     bool   `envconfig:"LANDMARK_TEST" default:"false"`

	// OnTrac
	OnTracAccount  string `envconfig:"ONTRAC_ACCOUNT"`
	OnTracPassword string `envconfig:"ONTRAC_PASSWORD"`
	OnTracBaseURL  string `envconfig:"ONTRAC_BASE_URL"`
	OnTracEnabled  bool   `envconfig:"ONTRAC_ENABLED" default:"false"`
	OnTracTest     bool   `envconfig:"ONTRAC_TEST" default:"false"`

	// Idempotency store; disabled when RedisURL is empty.
	RedisURL       string        `envconfig:"REDIS_URL"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"carrierbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
		attribute.Bool("landmark.enabled", c.LandmarkEnabled),
		attribute.Bool("ontrac.enabled", c.OnTracEnabled),
		attribute.Bool("idempotency.enabled", c.RedisURL != ""),
	}
}
