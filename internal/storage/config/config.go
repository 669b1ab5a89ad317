package config

import (
	"fmt"
	"os"
	"time"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config selects and configures the item store backend.
type Config struct {
	Backend string      `yaml:"backend"` // "mongo" (default) or "memory"
	Mongo   MongoConfig `yaml:"mongo"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	DatabaseName   string        `yaml:"database_name"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMongo,
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			DatabaseName:   "storyfeed",
			Collection:     "articles",
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = defaults.Mongo.URI
	}
	if c.Mongo.DatabaseName == "" {
		c.Mongo.DatabaseName = defaults.Mongo.DatabaseName
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = defaults.Mongo.Collection
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = defaults.Mongo.ConnectTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("STORYFEED_STORAGE_BACKEND"); val != "" {
		c.Backend = val
	}
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.Mongo.URI = val
	}
	if val := os.Getenv("MONGO_DATABASE"); val != "" {
		c.Mongo.DatabaseName = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in storage config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required")
		}
		if c.Mongo.DatabaseName == "" {
			return fmt.Errorf("storage.mongo.database_name is required")
		}
		if c.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo.collection is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Backend)
	}
}
