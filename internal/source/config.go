package source

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config configures the external search API reader.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Tags        string        `yaml:"tags"`
	Topic       string        `yaml:"topic"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	MaxBodySize int64         `yaml:"max_body_size"`
}

// DefaultConfig returns the default source configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://hn.algolia.com/api/v1/",
		Tags:        "story",
		Topic:       "nodejs",
		Timeout:     30 * time.Second,
		UserAgent:   "storyfeed/1.0",
		MaxBodySize: 10 << 20,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Tags == "" {
		c.Tags = d.Tags
	}
	if c.Topic == "" {
		c.Topic = d.Topic
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = d.MaxBodySize
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("STORYFEED_SOURCE_URL"); val != "" {
		c.BaseURL = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in source config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute URL, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("source.max_body_size must be positive")
	}
	return nil
}
