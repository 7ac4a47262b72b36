// Package config loads the gavel service configuration from YAML, applies
// defaults and GAVEL_* environment overrides, and validates the result.
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Rule      RuleConfig      `yaml:"rule"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Address to listen on, e.g. "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Maximum size of a request body in bytes
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Compress responses with gzip
	Gzip bool `yaml:"gzip"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures cross-origin requests.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAge         int      `yaml:"max_age"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	// debug, info, warn or error
	Level string `yaml:"level"`

	// text or json
	Format string `yaml:"format"`
}

// RuleConfig configures the rule the service starts with.
type RuleConfig struct {
	// Rule text compiled at startup. Ignored if File is set.
	Text string `yaml:"text"`

	// File containing the rule text
	File string `yaml:"file"`

	// Recompile File when it changes
	Watch bool `yaml:"watch"`

	// How long to wait after the last change before recompiling
	Debounce time.Duration `yaml:"debounce"`

	// Maximum nesting of parentheses
	MaxDepth int `yaml:"max_depth"`
}

// EvaluatorConfig selects the evaluation backend.
type EvaluatorConfig struct {
	// native or cel
	Backend string `yaml:"backend"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
