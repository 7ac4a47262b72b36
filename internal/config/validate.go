package config

import (
	"fmt"
	"net"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Dotted path to the field, e.g. "server.listen_address"
	Field string

	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError holds every problem found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration and returns a ValidationError listing all
// problems, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		add("server.listen_address", "invalid address %q: %v", cfg.Server.ListenAddress, err)
	}
	if cfg.Server.ReadTimeout < 0 {
		add("server.read_timeout", "must not be negative")
	}
	if cfg.Server.WriteTimeout < 0 {
		add("server.write_timeout", "must not be negative")
	}
	if cfg.Server.IdleTimeout < 0 {
		add("server.idle_timeout", "must not be negative")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "must not be negative")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		add("server.max_body_bytes", "must not be negative")
	}
	if cfg.Server.CORS.MaxAge < 0 {
		add("server.cors.max_age", "must not be negative")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		add("logging.format", "must be text or json; got %q", cfg.Logging.Format)
	}

	if cfg.Rule.Watch && cfg.Rule.File == "" {
		add("rule.watch", "requires rule.file")
	}
	if cfg.Rule.Debounce < 0 {
		add("rule.debounce", "must not be negative")
	}
	if cfg.Rule.MaxDepth < 1 {
		add("rule.max_depth", "must be at least 1")
	}

	switch cfg.Evaluator.Backend {
	case "native", "cel":
	default:
		add("evaluator.backend", "must be native or cel; got %q", cfg.Evaluator.Backend)
	}

	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			add("metrics.path", "must start with /")
		}
		switch cfg.Metrics.Path {
		case "/", "/create_rule", "/evaluate_rule", "/rule", "/healthz":
			add("metrics.path", "%q is used by the rule service", cfg.Metrics.Path)
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
