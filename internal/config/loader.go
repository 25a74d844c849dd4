package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for campus.yaml/.yml in
// standard locations. The search requires an explicit YAML extension so
// the binary itself (same base name, no extension) is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file in any standard location. Set name/type without
		// search paths so ReadInConfig returns ConfigFileNotFoundError,
		// which callers handle gracefully.
		viper.SetConfigName("campus")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: CAMPUS_CACHE_BACKEND etc.
	viper.SetEnvPrefix("CAMPUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a campus config file with
// an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".campus"),
		"/etc/campus",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "campus"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable
// support, enabling overrides of nested values.
// Example: CAMPUS_CACHE_REDIS_ADDR overrides cache.redis_addr.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("endpoint")
	_ = viper.BindEnv("timeout")
	_ = viper.BindEnv("user_agent")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("username")
	_ = viper.BindEnv("password")

	_ = viper.BindEnv("cache.backend")
	_ = viper.BindEnv("cache.path")
	_ = viper.BindEnv("cache.redis_addr")
	_ = viper.BindEnv("cache.redis_password")
	_ = viper.BindEnv("cache.redis_db")
	_ = viper.BindEnv("cache.redis_ttl")

	_ = viper.BindEnv("session.path")
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded configuration file, or ""
// in env-vars-only mode.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
