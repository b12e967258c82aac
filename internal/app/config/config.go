package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/simlink/internal/ports"
)

// ErrInvalid marks a configuration that parsed but failed validation.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Control   ControlConfig   `yaml:"control"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
}

type TelemetryConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	SampleRateHz int           `yaml:"sample_rate_hz"`
	SendTimeout  time.Duration `yaml:"send_timeout"`
}

type ControlConfig struct {
	BindHost            string        `yaml:"bind_host"`
	Port                int           `yaml:"port"`
	MaxCommandsPerCycle int           `yaml:"max_commands_per_cycle"`
	Backlog             int           `yaml:"backlog"`
	MaxCommandAge       time.Duration `yaml:"max_command_age"`
	// PollInterval of zero polls once per sample period.
	PollInterval time.Duration `yaml:"poll_interval"`
	RcvBuf       int           `yaml:"rcv_buf"`
}

type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ConnString    string        `yaml:"conn_string"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Buffer        int           `yaml:"buffer"`
	CreateTable   bool          `yaml:"create_table"`
}

type VehicleConfig struct {
	Name          string  `yaml:"name"`
	LiveBrakeBias bool    `yaml:"live_brake_bias"`
	MaxRPM        float32 `yaml:"max_rpm"`
}

// Default returns the documented defaults.
func Default() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
		Vehicle: VehicleConfig{LiveBrakeBias: true},
	}
	c.applyDefaults()
	return c
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault falls back to Default when the file cannot be read or parsed;
// the load error is still returned so the caller can log it. A file that
// parses but fails validation is not silently replaced.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, ErrInvalid) {
		return nil, err
	}
	return Default(), err
}

func (c *Config) applyDefaults() {
	if c.Telemetry.Host == "" {
		c.Telemetry.Host = "127.0.0.1"
	}
	if c.Telemetry.Port == 0 {
		c.Telemetry.Port = 9996
	}
	if c.Telemetry.SampleRateHz == 0 {
		c.Telemetry.SampleRateHz = 20
	}
	if c.Telemetry.SendTimeout == 0 {
		c.Telemetry.SendTimeout = 2 * time.Millisecond
	}
	if c.Control.BindHost == "" {
		c.Control.BindHost = "0.0.0.0"
	}
	if c.Control.Port == 0 {
		c.Control.Port = 9997
	}
	if c.Control.MaxCommandsPerCycle == 0 {
		c.Control.MaxCommandsPerCycle = 16
	}
	if c.Control.Backlog == 0 {
		c.Control.Backlog = 256
	}
	if c.Control.MaxCommandAge == 0 {
		c.Control.MaxCommandAge = 500 * time.Millisecond
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Recorder.Table == "" {
		c.Recorder.Table = "lap_telemetry"
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = 64
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = time.Second
	}
	if c.Recorder.Buffer == 0 {
		c.Recorder.Buffer = 512
	}
	if c.Vehicle.Name == "" {
		c.Vehicle.Name = "simlink-demo"
	}
	if c.Vehicle.MaxRPM == 0 {
		c.Vehicle.MaxRPM = 8500
	}
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if !validPort(c.Telemetry.Port) {
		return invalid("telemetry.port %d out of range", c.Telemetry.Port)
	}
	if !validPort(c.Control.Port) {
		return invalid("control.port %d out of range", c.Control.Port)
	}
	if c.Telemetry.Port == c.Control.Port && sameHost(c.Telemetry.Host, c.Control.BindHost) {
		return invalid("telemetry.port and control.port must differ on %s", c.Telemetry.Host)
	}
	if c.Telemetry.SampleRateHz < 1 || c.Telemetry.SampleRateHz > 1000 {
		return invalid("telemetry.sample_rate_hz %d outside 1..1000", c.Telemetry.SampleRateHz)
	}
	if c.Telemetry.SendTimeout < 0 || c.Telemetry.SendTimeout >= c.SampleInterval() {
		return invalid("telemetry.send_timeout %s must be shorter than the sample interval %s", c.Telemetry.SendTimeout, c.SampleInterval())
	}
	if c.Control.MaxCommandsPerCycle < 1 {
		return invalid("control.max_commands_per_cycle must be >= 1")
	}
	if c.Control.Backlog < c.Control.MaxCommandsPerCycle {
		return invalid("control.backlog %d smaller than max_commands_per_cycle %d", c.Control.Backlog, c.Control.MaxCommandsPerCycle)
	}
	if c.Control.MaxCommandAge < 0 || c.Control.PollInterval < 0 {
		return invalid("control durations must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return invalid("metrics.addr is required when metrics are enabled")
	}
	if c.Recorder.Enabled && c.Recorder.ConnString == "" {
		return invalid("recorder.conn_string is required when the recorder is enabled")
	}
	return nil
}

// SampleInterval is the outbound period derived from the sample rate.
func (c *Config) SampleInterval() time.Duration {
	if c.Telemetry.SampleRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Telemetry.SampleRateHz)
}

func (c *Config) Policy() ports.Policy {
	return ports.Policy{
		SampleInterval:      c.SampleInterval(),
		PollInterval:        c.Control.PollInterval,
		MaxCommandsPerCycle: c.Control.MaxCommandsPerCycle,
		MaxCommandAge:       c.Control.MaxCommandAge,
	}
}

func (c *Config) TelemetryAddr() string {
	return net.JoinHostPort(c.Telemetry.Host, strconv.Itoa(c.Telemetry.Port))
}

func (c *Config) ControlAddr() string {
	return net.JoinHostPort(c.Control.BindHost, strconv.Itoa(c.Control.Port))
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func sameHost(telemetryHost, bindHost string) bool {
	if telemetryHost == bindHost || bindHost == "0.0.0.0" || bindHost == "::" {
		return true
	}
	return isLoopback(telemetryHost) && isLoopback(bindHost)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
