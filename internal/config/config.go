// Package config defines the process configuration of the airport twin.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved from the OS environment, falling back to a .env file in
// the working directory. Any missing required value or invalid format fails
// startup.
package config

import (
	"time"

	"airtwin/internal/types"
)

// Config is the top-level configuration struct. Components receive only the
// subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFile     string `envconfig:"LOG_FILE"`

	Server        ServerConfig
	Source        types.DataSource `envconfig:"DATA_SOURCE" default:"simulator" validate:"oneof=simulator broker"`
	Broker        BrokerConfig
	Simulation    SimulationConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
}

// BrokerConfig points at the NGSI-v2 context broker and its history store.
// Only used when DATA_SOURCE=broker.
type BrokerConfig struct {
	URL              string        `envconfig:"BROKER_URL" validate:"omitempty,url"`
	HistoryURL       string        `envconfig:"HISTORY_URL" validate:"omitempty,url"`
	Service          string        `envconfig:"FIWARE_SERVICE" default:"airport"`
	ServicePath      string        `envconfig:"FIWARE_SERVICE_PATH" default:"/"`
	Timeout          time.Duration `envconfig:"BROKER_TIMEOUT" default:"10s" validate:"gt=0"`
	HistoryCacheSize int           `envconfig:"HISTORY_CACHE_SIZE" default:"128" validate:"gte=1"`
}

// SimulationConfig tunes the engine and its wall-clock driver.
type SimulationConfig struct {
	Seed            int64         `envconfig:"SIM_SEED" default:"0"`
	TickInterval    time.Duration `envconfig:"SIM_TICK_INTERVAL" default:"5s" validate:"gte=1s"`
	Autostart       bool          `envconfig:"SIM_AUTOSTART" default:"false"`
	LogCapacity     int           `envconfig:"SIM_LOG_CAPACITY" default:"100" validate:"gte=1,lte=10000"`
	LandedRetention time.Duration `envconfig:"LANDED_RETENTION" default:"10m" validate:"gt=0"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s" validate:"gte=1s"`
	AirportFile     string        `envconfig:"AIRPORT_FILE"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Newly raised alerts are published here when set.
	AlertQueueURL string `envconfig:"ALERT_QUEUE_URL" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"AirportTwin"`
}

// UsesAWS reports whether any AWS client is needed.
func (c *Config) UsesAWS() bool {
	return c.Observability.MetricsEnabled || c.AWS.AlertQueueURL != ""
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
