package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration at path, applies defaults and environment
// overrides, and validates the result. An empty path yields the defaults with
// environment overrides.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	ApplyEnvOverrides(cfg, os.LookupEnv)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Variables use the format GAVEL_SECTION_FIELD, e.g. GAVEL_SERVER_LISTEN_ADDRESS.
// Values that do not parse are ignored.
func ApplyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if val, ok := lookup(key); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if val, ok := lookup(key); ok {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := lookup(key); ok {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}

	str("GAVEL_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	duration("GAVEL_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("GAVEL_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("GAVEL_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	duration("GAVEL_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if val, ok := lookup("GAVEL_SERVER_MAX_BODY_BYTES"); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = i
		}
	}
	boolean("GAVEL_SERVER_GZIP", &cfg.Server.Gzip)
	boolean("GAVEL_SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	if val, ok := lookup("GAVEL_SERVER_CORS_ALLOWED_ORIGINS"); ok && val != "" {
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORS.AllowedOrigins = origins
	}

	str("GAVEL_LOGGING_LEVEL", &cfg.Logging.Level)
	str("GAVEL_LOGGING_FORMAT", &cfg.Logging.Format)

	str("GAVEL_RULE_TEXT", &cfg.Rule.Text)
	str("GAVEL_RULE_FILE", &cfg.Rule.File)
	boolean("GAVEL_RULE_WATCH", &cfg.Rule.Watch)
	duration("GAVEL_RULE_DEBOUNCE", &cfg.Rule.Debounce)
	integer("GAVEL_RULE_MAX_DEPTH", &cfg.Rule.MaxDepth)

	str("GAVEL_EVALUATOR_BACKEND", &cfg.Evaluator.Backend)

	boolean("GAVEL_METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("GAVEL_METRICS_PATH", &cfg.Metrics.Path)
	str("GAVEL_METRICS_NAMESPACE", &cfg.Metrics.Namespace)
}
