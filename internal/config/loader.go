package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// BaseURLEnv overrides preview.base_url when the config leaves it empty.
const BaseURLEnv = "BASE_URL"

var validLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file. An empty path yields the
// defaults with environment overrides applied.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.Parse(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses configuration from YAML bytes
func (l *Loader) Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := l.expandEnvVars(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if strings.TrimSpace(expanded) != "" {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	l.applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables expand to the empty string.
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		return os.Getenv(varName)
	})
}

func (l *Loader) applyEnvOverrides(cfg *Config) {
	if cfg.Preview.BaseURL == "" {
		if v, ok := os.LookupEnv(BaseURLEnv); ok {
			cfg.Preview.BaseURL = v
		}
	}
	if cfg.Preview.BaseURL == "" {
		cfg.Preview.BaseURL = DefaultBaseURL
	}
	cfg.Preview.BaseURL = strings.TrimSuffix(cfg.Preview.BaseURL, "/")
}

// validate checks configuration for errors
func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if cfg.Admin.Enabled {
		if cfg.Admin.Address == "" {
			return fmt.Errorf("admin.address is required when admin is enabled")
		}
		if cfg.Admin.Address == cfg.Server.Address {
			return fmt.Errorf("admin.address must differ from server.address")
		}
		if !strings.HasPrefix(cfg.Admin.MetricsPath, "/") {
			return fmt.Errorf("admin.metrics_path must start with '/'")
		}
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %s", cfg.Logging.Format)
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
		if cfg.Cache.SweepInterval <= 0 {
			return fmt.Errorf("cache.sweep_interval must be positive")
		}
		if cfg.Cache.MaxBodySize <= 0 {
			return fmt.Errorf("cache.max_body_size must be positive")
		}
		if cfg.Cache.MaxEntries < 0 {
			return fmt.Errorf("cache.max_entries must not be negative")
		}
		if cfg.Cache.Header == "" {
			return fmt.Errorf("cache.header is required")
		}
	}

	switch cfg.Preview.Parser {
	case ParserPattern, ParserHTML:
	default:
		return fmt.Errorf("invalid preview.parser: %s (expected %q or %q)",
			cfg.Preview.Parser, ParserPattern, ParserHTML)
	}
	u, err := url.Parse(cfg.Preview.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid preview.base_url: %q", cfg.Preview.BaseURL)
	}
	if cfg.Preview.Timeout <= 0 || cfg.Image.Timeout <= 0 {
		return fmt.Errorf("preview.timeout and image.timeout must be positive")
	}
	if cfg.Preview.MaxDocumentSize <= 0 || cfg.Image.MaxImageSize <= 0 {
		return fmt.Errorf("preview.max_document_size and image.max_image_size must be positive")
	}

	return nil
}
