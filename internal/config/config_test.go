package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ezachrisen/gavel/internal/config"
	"github.com/matryer/is"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gavel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := config.Default()

	is.Equal(cfg.Server.ListenAddress, config.DefaultListenAddress)
	is.Equal(cfg.Server.ReadTimeout, config.DefaultReadTimeout)
	is.Equal(cfg.Server.MaxBodyBytes, int64(config.DefaultMaxBodyBytes))
	is.Equal(cfg.Server.CORS.AllowedOrigins, []string{"*"})
	is.Equal(cfg.Logging.Level, "info")
	is.Equal(cfg.Logging.Format, "text")
	is.Equal(cfg.Rule.MaxDepth, 256)
	is.Equal(cfg.Rule.Debounce, 100*time.Millisecond)
	is.Equal(cfg.Evaluator.Backend, "native")
	is.Equal(cfg.Metrics.Path, "/metrics")
	is.NoErr(config.Validate(cfg))
}

func TestLoadYAML(t *testing.T) {
	is := is.New(t)
	path := writeFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 5s
  gzip: true
  cors:
    enabled: true
    allowed_origins: ["https://example.com"]
logging:
  level: debug
  format: json
rule:
  text: "age > 30"
  max_depth: 16
evaluator:
  backend: cel
metrics:
  enabled: true
  namespace: rules
`)

	cfg, err := config.Load(path)
	is.NoErr(err)
	is.Equal(cfg.Server.ListenAddress, "0.0.0.0:9090")
	is.Equal(cfg.Server.ReadTimeout, 5*time.Second)
	is.Equal(cfg.Server.WriteTimeout, config.DefaultWriteTimeout) // default fills the gap
	is.True(cfg.Server.Gzip)
	is.True(cfg.Server.CORS.Enabled)
	is.Equal(cfg.Server.CORS.AllowedOrigins, []string{"https://example.com"})
	is.Equal(cfg.Logging.Level, "debug")
	is.Equal(cfg.Logging.Format, "json")
	is.Equal(cfg.Rule.Text, "age > 30")
	is.Equal(cfg.Rule.MaxDepth, 16)
	is.Equal(cfg.Evaluator.Backend, "cel")
	is.True(cfg.Metrics.Enabled)
	is.Equal(cfg.Metrics.Namespace, "rules")
	is.Equal(cfg.Metrics.Path, "/metrics")
}

func TestLoadEmptyPath(t *testing.T) {
	is := is.New(t)
	cfg, err := config.Load("")
	is.NoErr(err)
	is.Equal(cfg.Evaluator.Backend, "native")
}

func TestLoadEmptyFile(t *testing.T) {
	is := is.New(t)
	cfg, err := config.Load(writeFile(t, ""))
	is.NoErr(err)
	is.Equal(cfg.Server.ListenAddress, config.DefaultListenAddress)
}

func TestLoadMissingFile(t *testing.T) {
	is := is.New(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	is.True(errors.Is(err, os.ErrNotExist))
}

func TestLoadUnknownField(t *testing.T) {
	is := is.New(t)
	_, err := config.Load(writeFile(t, "server:\n  listen_adress: \":80\"\n"))
	is.True(err != nil)
}

func TestEnvOverrides(t *testing.T) {
	is := is.New(t)
	env := map[string]string{
		"GAVEL_SERVER_LISTEN_ADDRESS":       ":7000",
		"GAVEL_SERVER_GZIP":                 "true",
		"GAVEL_SERVER_CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"GAVEL_LOGGING_LEVEL":               "warn",
		"GAVEL_RULE_DEBOUNCE":               "2s",
		"GAVEL_RULE_MAX_DEPTH":              "8",
		"GAVEL_EVALUATOR_BACKEND":           "cel",
		"GAVEL_METRICS_ENABLED":             "yes", // not a bool; ignored
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := config.Default()
	config.ApplyEnvOverrides(cfg, lookup)

	is.Equal(cfg.Server.ListenAddress, ":7000")
	is.True(cfg.Server.Gzip)
	is.Equal(cfg.Server.CORS.AllowedOrigins, []string{"https://a.example", "https://b.example"})
	is.Equal(cfg.Logging.Level, "warn")
	is.Equal(cfg.Rule.Debounce, 2*time.Second)
	is.Equal(cfg.Rule.MaxDepth, 8)
	is.Equal(cfg.Evaluator.Backend, "cel")
	is.True(!cfg.Metrics.Enabled)
}

func TestLoadAppliesEnvironment(t *testing.T) {
	is := is.New(t)
	t.Setenv("GAVEL_RULE_TEXT", "department == 'Sales'")
	cfg, err := config.Load("")
	is.NoErr(err)
	is.Equal(cfg.Rule.Text, "department == 'Sales'")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*config.Config)
		fields []string
	}{
		{"valid", func(*config.Config) {}, nil},
		{"bad address", func(c *config.Config) { c.Server.ListenAddress = "localhost" }, []string{"server.listen_address"}},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, []string{"logging.level"}},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, []string{"logging.format"}},
		{"watch without file", func(c *config.Config) { c.Rule.Watch = true }, []string{"rule.watch"}},
		{"bad backend", func(c *config.Config) { c.Evaluator.Backend = "lua" }, []string{"evaluator.backend"}},
		{"zero depth", func(c *config.Config) { c.Rule.MaxDepth = 0 }, []string{"rule.max_depth"}},
		{"metrics path clash", func(c *config.Config) {
			c.Metrics.Enabled = true
			c.Metrics.Path = "/rule"
		}, []string{"metrics.path"}},
		{"several", func(c *config.Config) {
			c.Logging.Level = "loud"
			c.Evaluator.Backend = "lua"
		}, []string{"logging.level", "evaluator.backend"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			cfg := config.Default()
			c.modify(cfg)
			err := config.Validate(cfg)
			if c.fields == nil {
				is.NoErr(err)
				return
			}
			var ve config.ValidationError
			is.True(errors.As(err, &ve))
			is.Equal(len(ve.Errors), len(c.fields))
			for i, f := range c.fields {
				is.Equal(ve.Errors[i].Field, f)
			}
		})
	}
}
