// Package config loads process configuration from the environment.
//
// All engine binaries read their settings from TABLESIDE_-prefixed
// environment variables declared as struct tags on a config struct.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
