package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"airtwin/internal/types"
)

// TestLoadConfigDefaults verifies that an empty environment yields a valid
// simulator configuration.
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Source != types.SourceSimulator {
		t.Errorf("Source = %q, want %q", cfg.Source, types.SourceSimulator)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want default %q", cfg.Server.Port, "8080")
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want 15s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.CorsAllowedOrigins) != 1 || cfg.Server.CorsAllowedOrigins[0] != "*" {
		t.Errorf("Server.CorsAllowedOrigins = %v, want [*]", cfg.Server.CorsAllowedOrigins)
	}
	if cfg.Simulation.TickInterval != 5*time.Second {
		t.Errorf("Simulation.TickInterval = %v, want 5s", cfg.Simulation.TickInterval)
	}
	if cfg.Simulation.LogCapacity != 100 {
		t.Errorf("Simulation.LogCapacity = %d, want 100", cfg.Simulation.LogCapacity)
	}
	if cfg.Broker.ServicePath != "/" {
		t.Errorf("Broker.ServicePath = %q, want /", cfg.Broker.ServicePath)
	}
	if cfg.Observability.MetricNamespace != types.MetricNamespace {
		t.Errorf("Observability.MetricNamespace = %q, want %q", cfg.Observability.MetricNamespace, types.MetricNamespace)
	}
	if cfg.UsesAWS() {
		t.Error("UsesAWS() = true, want false with metrics off and no queue")
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want %q", cfg.Build.Version, "dev")
	}
	if time.Local != time.UTC {
		t.Error("time.Local was not set to UTC")
	}
}

func TestLoadConfigBrokerMode(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DATA_SOURCE", "broker")
	t.Setenv("BROKER_URL", "http://orion:1026")
	t.Setenv("HISTORY_URL", "http://quantumleap:8668")
	t.Setenv("FIWARE_SERVICE", "jfk")
	t.Setenv("FIWARE_SERVICE_PATH", "/ops")
	t.Setenv("BROKER_TIMEOUT", "3s")
	t.Setenv("ALERT_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/123/alerts")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.com,https://wall.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Source != types.SourceBroker {
		t.Errorf("Source = %q, want broker", cfg.Source)
	}
	if cfg.Broker.Service != "jfk" || cfg.Broker.ServicePath != "/ops" {
		t.Errorf("Broker service = %q%q, want jfk/ops", cfg.Broker.Service, cfg.Broker.ServicePath)
	}
	if cfg.Broker.Timeout != 3*time.Second {
		t.Errorf("Broker.Timeout = %v, want 3s", cfg.Broker.Timeout)
	}
	if len(cfg.Server.CorsAllowedOrigins) != 2 {
		t.Errorf("CorsAllowedOrigins = %v, want 2 entries", cfg.Server.CorsAllowedOrigins)
	}
	if !cfg.UsesAWS() {
		t.Error("UsesAWS() = false, want true with an alert queue")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantType ConfigErrorType
		contains string
	}{
		{
			name:     "unknown environment",
			env:      map[string]string{"APP_ENV": "qa"},
			wantType: ErrValidation,
		},
		{
			name:     "unknown data source",
			env:      map[string]string{"DATA_SOURCE": "csv"},
			wantType: ErrValidation,
		},
		{
			name:     "broker without url",
			env:      map[string]string{"DATA_SOURCE": "broker"},
			wantType: ErrValidation,
			contains: "BROKER_URL",
		},
		{
			name:     "history without broker",
			env:      map[string]string{"HISTORY_URL": "http://quantumleap:8668"},
			wantType: ErrValidation,
			contains: "HISTORY_URL",
		},
		{
			name:     "sub-second tick",
			env:      map[string]string{"SIM_TICK_INTERVAL": "200ms"},
			wantType: ErrValidation,
		},
		{
			name:     "unparsable duration",
			env:      map[string]string{"REFRESH_INTERVAL": "soon"},
			wantType: ErrParsing,
		},
		{
			name:     "unparsable seed",
			env:      map[string]string{"SIM_SEED": "forty-two"},
			wantType: ErrParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "local")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", cfgErr.Type, tt.wantType)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	inner := errors.New("bad value")
	err := &ConfigError{Type: ErrParsing, Message: "parse failed", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is did not find the wrapped error")
	}
	if got := err.Error(); got != "[PARSING_FAILED] parse failed: bad value" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ConfigError{Type: ErrValidation, Message: "x"}).Error(); got != "[VALIDATION_FAILED] x" {
		t.Errorf("Error() = %q", got)
	}
}

func TestBuildInfo(t *testing.T) {
	info := NewBuildInfo()
	if info.Version != "dev" || info.Commit != "none" || info.BuildTime != "unknown" {
		t.Errorf("NewBuildInfo() = %+v, want linker defaults", info)
	}
	if got := info.String(); got != "dev (none, built unknown)" {
		t.Errorf("String() = %q", got)
	}
}
