package identity

import (
	"fmt"
	"os"
	"time"
)

// DevelopmentSecret is the signing secret used when none is configured.
// It must not be used in production.
const DevelopmentSecret = "storyfeed-development-secret"

// UserConfig declares a user allowed to log in. Either Password or
// PasswordHash (bcrypt) must be set; PasswordHash wins when both are.
type UserConfig struct {
	ID           int64  `yaml:"id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Config configures token issuing and the user directory.
type Config struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	Issuer         string        `yaml:"issuer"`
	Users          []UserConfig  `yaml:"users"`
}

// DefaultConfig returns the development defaults, including the test user.
func DefaultConfig() Config {
	return Config{
		JWTSecret:      DevelopmentSecret,
		AccessTokenTTL: time.Hour,
		Issuer:         "storyfeed",
		Users: []UserConfig{
			{ID: 1, Username: "test", Password: "test"},
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.JWTSecret == "" {
		c.JWTSecret = d.JWTSecret
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = d.AccessTokenTTL
	}
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if len(c.Users) == 0 {
		c.Users = d.Users
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in identity config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("identity.jwt_secret is required")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("identity.access_token_ttl must be positive")
	}
	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("identity.users[%d].username is required", i)
		}
		if u.Password == "" && u.PasswordHash == "" {
			return fmt.Errorf("identity.users[%d] needs password or password_hash", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("identity.users: duplicate username %q", u.Username)
		}
		seen[u.Username] = true
	}
	return nil
}
