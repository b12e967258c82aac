package simlink

import (
	"github.com/ghalamif/simlink/internal/app/config"
	"github.com/ghalamif/simlink/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy paces the link loops.
	Policy = ports.Policy
	// TelemetryConfig addresses the dashboard and sets the sample rate.
	TelemetryConfig = config.TelemetryConfig
	// ControlConfig binds the control socket and bounds per-cycle work.
	ControlConfig = config.ControlConfig
	LoggingConfig = config.LoggingConfig
	// MetricsConfig configures the ops HTTP server.
	MetricsConfig = config.MetricsConfig
	// RecorderConfig configures the optional Postgres lap recorder.
	RecorderConfig = config.RecorderConfig
	VehicleConfig  = config.VehicleConfig
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = config.ErrInvalid

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// LoadConfigOrDefault returns the defaults when path cannot be read or parsed,
// together with the error that caused the fallback.
func LoadConfigOrDefault(path string) (*Config, error) {
	return config.LoadOrDefault(path)
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return config.Default()
}
