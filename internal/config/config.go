// Package config provides configuration loading for the campus client.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration of the campus client.
type Config struct {
	// Endpoint is the webservice URL.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`

	// Timeout is the HTTP request timeout, e.g. "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent identifies the client upstream.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// LogLevel controls the slog level: debug, info, warn or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Username and Password are the THI account credentials. Usually set
	// via CAMPUS_USERNAME / CAMPUS_PASSWORD rather than the config file;
	// they are required for session refresh after upstream rejection.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// Cache configures the response cache backend.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Session configures the session persistence.
	Session SessionConfig `yaml:"session" mapstructure:"session"`
}

// CacheConfig selects and configures the response cache store.
type CacheConfig struct {
	// Backend is one of "memory", "sqlite" or "redis".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"cache_backend"`

	// Path is the sqlite database file (sqlite backend only).
	Path string `yaml:"path" mapstructure:"path"`

	// RedisAddr is the host:port of the Redis server (redis backend only).
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr" validate:"omitempty,hostname_port"`

	// RedisPassword is the optional Redis auth password.
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`

	// RedisDB is the Redis database number.
	RedisDB int `yaml:"redis_db" mapstructure:"redis_db"`

	// RedisTTL is the optional entry lifetime, e.g. "10m". Empty means no
	// expiry.
	RedisTTL string `yaml:"redis_ttl" mapstructure:"redis_ttl"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// Path is the session file location.
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultEndpoint mirrors the transport default; kept here so a zero
// config validates.
const DefaultEndpoint = "https://hiplan.thi.de/webservice/production2/index.php"

// SetDefaults fills optional fields with their default values.
func (c *Config) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(configDir(), "cache.db")
	}
	if c.Session.Path == "" {
		c.Session.Path = filepath.Join(configDir(), "session.json")
	}
}

// HTTPTimeout returns the parsed timeout, falling back to 30 seconds on an
// unparseable value.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RedisEntryTTL returns the parsed Redis TTL, or zero when unset.
func (c *CacheConfig) RedisEntryTTL() time.Duration {
	if c.RedisTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RedisTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// configDir is the per-user data directory of the client.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".campus")
}
