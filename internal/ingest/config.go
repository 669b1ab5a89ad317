package ingest

import (
	"fmt"
	"os"
	"time"
)

// Config controls the ingestion schedule.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Interval overrides the environment-dependent intervals when set.
	Interval            time.Duration `yaml:"interval"`
	ProductionInterval  time.Duration `yaml:"production_interval"`
	DevelopmentInterval time.Duration `yaml:"development_interval"`

	// RunOnStart runs one cycle as soon as the scheduler starts.
	RunOnStart bool `yaml:"run_on_start"`

	// Admission is an optional CEL condition over `item`.
	Admission string `yaml:"admission"`
}

// DefaultConfig returns the default ingestion configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		ProductionInterval:  time.Hour,
		DevelopmentInterval: 10 * time.Second,
	}
}

// EffectiveInterval returns the tick interval for the given deployment
// environment.
func (c *Config) EffectiveInterval(production bool) time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	if production {
		return c.ProductionInterval
	}
	return c.DevelopmentInterval
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ProductionInterval == 0 {
		c.ProductionInterval = d.ProductionInterval
	}
	if c.DevelopmentInterval == 0 {
		c.DevelopmentInterval = d.DevelopmentInterval
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("STORYFEED_INGEST_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Interval = d
		}
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in ingest config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("ingest.interval must not be negative")
	}
	if c.ProductionInterval <= 0 || c.DevelopmentInterval <= 0 {
		return fmt.Errorf("ingest intervals must be positive")
	}
	if c.Admission != "" {
		if _, err := NewAdmission(c.Admission, nil); err != nil {
			return fmt.Errorf("ingest.admission: %w", err)
		}
	}
	return nil
}
