// Package config loads the keel demo server configuration from the
// environment and command-line flags
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Adapters lists the supported web frameworks
var Adapters = []string{"echo", "gin", "fiber"}

// Config holds the demo server configuration
type Config struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"8080"`
	Adapter         string        `env:"ADAPTER" envDefault:"echo"`
	Debug           bool          `env:"DEBUG"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	TokenSecret     string        `env:"TOKEN_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MetricsPath     string        `env:"METRICS_PATH" envDefault:"/metrics"`
	OpenAPIPath     string        `env:"OPENAPI_PATH" envDefault:"/openapi.json"`
	FilesDir        string        `env:"FILES_DIR" envDefault:"."`
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !isAdapter(c.Adapter) {
		errs = append(errs, fmt.Errorf("invalid adapter %q, must be one of %v", c.Adapter, Adapters))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	return errors.Join(errs...)
}

func isAdapter(name string) bool {
	for _, a := range Adapters {
		if a == name {
			return true
		}
	}
	return false
}

// Load reads KEEL_* environment variables, then applies flags from args
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "KEEL_"}); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseFlags overrides cfg with the flags present in args
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("keel-demo", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind to")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to run the server on")
	fs.StringVar(&cfg.Adapter, "adapter", cfg.Adapter, "Web server adapter to use (echo, gin, or fiber)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Render tracebacks in error responses")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Base64 token signing secret, random when empty")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Token lifetime (e.g., 1h, 30m)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringVar(&cfg.MetricsPath, "metrics-path", cfg.MetricsPath, "Prometheus metrics path, empty to disable")
	fs.StringVar(&cfg.OpenAPIPath, "openapi-path", cfg.OpenAPIPath, "OpenAPI document path, empty to disable")
	fs.StringVar(&cfg.FilesDir, "files-dir", cfg.FilesDir, "Directory served by /dummy/file")
	return fs.Parse(args)
}
