package framescheduler

import (
	"fmt"
	"os"
	"strings"

	"github.com/Swind/go-frame-scheduler/core"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from YAML or JSON. The zero value is useful: every field
// falls back to its package default.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

type SchedulerConfig struct {
	// Workers is the pool size; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// Barrier is "soft" or "hard".
	Barrier         string `json:"barrier" yaml:"barrier"`
	HistoryCapacity int    `json:"historyCapacity" yaml:"historyCapacity"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	// PollInterval drives the stats snapshot poller, e.g. "1s".
	PollInterval string `json:"pollInterval" yaml:"pollInterval"`
}

type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Service string `json:"service" yaml:"service"`
	// Output is a file path; empty writes spans to stdout.
	Output string `json:"output" yaml:"output"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Barrier:         "soft",
			HistoryCapacity: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace:    "framescheduler",
			PollInterval: "1s",
		},
		Tracing: TracingConfig{
			Service: "framescheduler",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error describing the first invalid setting, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers must be >= 0, got %d", c.Scheduler.Workers)
	}
	if _, err := parseBarrier(c.Scheduler.Barrier); err != nil {
		return err
	}
	if c.Scheduler.HistoryCapacity < 0 {
		return fmt.Errorf("scheduler.historyCapacity must be >= 0, got %d", c.Scheduler.HistoryCapacity)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	if _, err := c.Metrics.interval(); err != nil {
		return err
	}
	return nil
}

// CoreConfig converts the serialisable settings into a core.SchedulerConfig.
// Handlers (state, metrics, tracer, logger) are left for the caller to set.
func (c *Config) CoreConfig() *core.SchedulerConfig {
	barrier, _ := parseBarrier(c.Scheduler.Barrier)
	return &core.SchedulerConfig{
		Workers:         c.Scheduler.Workers,
		Barrier:         barrier,
		HistoryCapacity: c.Scheduler.HistoryCapacity,
	}
}

func parseBarrier(v string) (core.BarrierMode, error) {
	switch strings.ToLower(v) {
	case "", "soft":
		return core.BarrierSoft, nil
	case "hard":
		return core.BarrierHard, nil
	default:
		return core.BarrierSoft, fmt.Errorf("scheduler.barrier %q is not one of soft, hard", v)
	}
}
