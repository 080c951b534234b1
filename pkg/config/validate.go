package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/devmock/devmock/internal/pattern"
)

// Validate checks the configuration against its struct tags plus the few
// cross-field rules tags cannot express. The config must have defaults
// applied first; Load does both.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Engine.Delay < 0 {
		return fmt.Errorf("invalid configuration: engine.delay must not be negative")
	}
	if cfg.Engine.GatewayTimeout < 0 {
		return fmt.Errorf("invalid configuration: engine.gateway_timeout must not be negative")
	}

	for _, route := range cfg.Engine.Routes {
		if _, err := pattern.Compile(route.Pattern); err != nil {
			return fmt.Errorf("invalid configuration: route %q: %w", route.Pattern, err)
		}
		if route.Delay < 0 {
			return fmt.Errorf("invalid configuration: route %q: delay must not be negative", route.Pattern)
		}
	}

	return nil
}
