package events

import (
	"fmt"
	"os"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
)

// Config configures the NATS JetStream publisher. An empty URL disables
// publishing.
type Config struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Storage       string `yaml:"storage"` // "memory" (default) or "file"
	RetryAttempts int    `yaml:"retry_attempts"`
}

// DefaultConfig returns the default events configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:    "STORYFEED",
		SubjectPrefix: "STORYFEED",
		Storage:       StorageMemory,
	}
}

// Enabled reports whether a NATS server is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.StreamName == "" {
		c.StreamName = d.StreamName
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("NATS_URL"); val != "" {
		c.URL = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in events config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.StreamName == "" {
		return fmt.Errorf("events.stream_name is required when events.url is set")
	}
	if c.Storage != StorageMemory && c.Storage != StorageFile {
		return fmt.Errorf("events.storage must be %q or %q, got %q", StorageMemory, StorageFile, c.Storage)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("events.retry_attempts must be >= 0")
	}
	return nil
}
