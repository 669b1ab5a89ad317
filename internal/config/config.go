// Package config assembles the application configuration from defaults,
// YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/storyfeed/storyfeed/internal/events"
	"github.com/storyfeed/storyfeed/internal/identity"
	"github.com/storyfeed/storyfeed/internal/ingest"
	"github.com/storyfeed/storyfeed/internal/logging"
	"github.com/storyfeed/storyfeed/internal/server"
	"github.com/storyfeed/storyfeed/internal/source"
	storage "github.com/storyfeed/storyfeed/internal/storage/config"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool { return e == EnvProduction }

// Config holds the application configuration
type Config struct {
	Environment Environment `yaml:"environment"`

	Server   server.Config   `yaml:"server"`
	Storage  storage.Config  `yaml:"storage"`
	Source   source.Config   `yaml:"source"`
	Ingest   ingest.Config   `yaml:"ingest"`
	Events   events.Config   `yaml:"events"`
	Identity identity.Config `yaml:"identity"`
	Logging  logging.Config  `yaml:"logging"`
}

// Default returns a Config with every section at its defaults.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server:      server.DefaultConfig(),
		Storage:     storage.DefaultConfig(),
		Source:      source.DefaultConfig(),
		Ingest:      ingest.DefaultConfig(),
		Events:      events.DefaultConfig(),
		Identity:    identity.DefaultConfig(),
		Logging:     logging.DefaultConfig(),
	}
}

// LoadConfig loads configuration from files under dir and the environment.
// Order: defaults -> config.yml -> config.local.yml -> ApplyEnvOverrides -> ResolvePaths -> Validate
//
// Missing files are skipped. Relative paths resolve against the parent of
// dir so that logs/ sits next to config/.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{"config.yml", "config.local.yml"} {
		if err := loadFile(filepath.Join(dir, name), cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Finalize(filepath.Dir(dir)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize runs the section lifecycle and the cross-section checks.
func (c *Config) Finalize(baseDir string) error {
	if val := os.Getenv("STORYFEED_ENV"); val != "" {
		c.Environment = Environment(val)
	}
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.Environment)
	}

	if err := ApplyServiceConfigs(baseDir,
		&c.Server,
		&c.Storage,
		&c.Source,
		&c.Ingest,
		&c.Events,
		&c.Identity,
		&c.Logging,
	); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if c.Environment.IsProduction() && c.Identity.JWTSecret == identity.DevelopmentSecret {
		return errors.New("configuration error: identity.jwt_secret must be set in production")
	}
	return nil
}

func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	return nil
}
