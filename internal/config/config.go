package config

import "time"

// Config is the root configuration for the link preview service
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Preview PreviewConfig `yaml:"preview"`
	Image   ImageConfig   `yaml:"image"`
}

// ServerConfig defines the public HTTP listener
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AdminConfig defines admin API settings
type AdminConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	MetricsPath string `yaml:"metrics_path"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level    string            `yaml:"level"`
	Format   string            `yaml:"format"` // "json" (default) or "console"
	Output   string            `yaml:"output"` // "stdout", "stderr" or a file path
	Rotation LogRotationConfig `yaml:"rotation"`
}

// LogRotationConfig defines log file rotation settings (powered by lumberjack).
type LogRotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // max megabytes before rotation (default 100)
	MaxBackups int  `yaml:"max_backups"` // old rotated files to keep (default 3)
	MaxAge     int  `yaml:"max_age"`     // days to retain old files (default 28)
	Compress   bool `yaml:"compress"`    // gzip rotated files (default true)
	LocalTime  bool `yaml:"local_time"`  // use local time in backup filenames (default false)
}

// CacheConfig defines response cache settings.
// TTL is fixed for the lifetime of the process.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxBodySize   int64         `yaml:"max_body_size"`
	MaxEntries    int           `yaml:"max_entries"` // 0 keeps the unbounded store
	Header        string        `yaml:"header"`
}

// PreviewConfig defines metadata extraction settings
type PreviewConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Parser          string        `yaml:"parser"` // "pattern" (default) or "html"
	UserAgent       string        `yaml:"user_agent"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxDocumentSize int64         `yaml:"max_document_size"`
}

// ImageConfig defines image proxy settings
type ImageConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxImageSize int64         `yaml:"max_image_size"`
}

const (
	ParserPattern = "pattern"
	ParserHTML    = "html"

	DefaultBaseURL        = "https://cardyb.bsky.app"
	DefaultPageUserAgent  = "Mozilla/5.0 (compatible; richardbot/1.0; +https://example.com)"
	DefaultImageUserAgent = "Mozilla/5.0 (compatible; imagebot/1.0; +https://example.com)"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Admin: AdminConfig{
			Enabled:     true,
			Address:     ":9090",
			MetricsPath: "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			Rotation: LogRotationConfig{
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
				Compress:   true,
			},
		},
		Cache: CacheConfig{
			Enabled:       true,
			TTL:           time.Hour,
			SweepInterval: 60 * time.Second,
			MaxBodySize:   32 << 20, // 32 MiB
			Header:        "X-Gizo-Cache",
		},
		Preview: PreviewConfig{
			Parser:          ParserPattern,
			UserAgent:       DefaultPageUserAgent,
			Timeout:         15 * time.Second,
			MaxDocumentSize: 10 << 20,
		},
		Image: ImageConfig{
			UserAgent:    DefaultImageUserAgent,
			Timeout:      15 * time.Second,
			MaxImageSize: 32 << 20,
		},
	}
}
