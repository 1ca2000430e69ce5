// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Option adjusts how environment variables are resolved.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env tag, so `env:"SEED"` reads
// BROADSIDE_SEED when prefix is "BROADSIDE_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = strings.TrimSpace(prefix)
	}
}

// WithEnvironment replaces the process environment, mostly for tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any, opts ...Option) error {
	var options env.Options
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := env.ParseWithOptions(target, options); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
