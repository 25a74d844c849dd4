package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers client-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("cache_backend", validateCacheBackend); err != nil {
		return fmt.Errorf("failed to register cache_backend validator: %w", err)
	}
	return nil
}

// validateCacheBackend validates the cache backend field.
// Valid values: "memory", "sqlite", "redis".
func validateCacheBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "memory", "sqlite", "redis":
		return true
	}
	return false
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateBackendRequirements()
}

// validateBackendRequirements ensures backend-specific fields are present.
func (c *Config) validateBackendRequirements() error {
	switch c.Cache.Backend {
	case "sqlite":
		if c.Cache.Path == "" {
			return errors.New("cache: sqlite backend requires cache.path")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache: redis backend requires cache.redis_addr")
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single
// validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "cache_backend":
		return fmt.Sprintf("%s must be 'memory', 'sqlite' or 'redis'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
