package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Export  ExportConfig  `toml:"export"`
	Source  SourceConfig  `toml:"source"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

// ExportConfig controls the batched export pipeline.
type ExportConfig struct {
	OutputDir  string        `toml:"output_dir" validate:"required"` // Directory for per-exchange dataset files
	BatchSize  int           `toml:"batch_size" validate:"gte=1"`    // Exchanges per batch
	BatchPause time.Duration `toml:"batch_pause" validate:"gte=0"`   // Pause between batches
	Schedule   string        `toml:"schedule"`                       // Cron schedule (with seconds); empty disables scheduled runs
	RunOnStart bool          `toml:"run_on_start"`                   // Trigger an export run at startup
}

// SourceConfig controls the upstream market-data client.
type SourceConfig struct {
	BaseURL           string        `toml:"base_url" validate:"required,url"`
	RequestTimeout    time.Duration `toml:"request_timeout" validate:"gt=0"`
	ProxyURL          string        `toml:"proxy_url" validate:"omitempty,url"` // Optional outbound proxy
	RequestsPerSecond int           `toml:"requests_per_second" validate:"gte=1"`
	UserAgent         string        `toml:"user_agent"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in mercatus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Export: ExportConfig{
			OutputDir:  "./market_data",
			BatchSize:  3,               // Small batches keep upstream request rate low
			BatchPause: 5 * time.Second, // Breather between batches
			Schedule:   "",              // Scheduled runs are opt-in
			RunOnStart: true,            // One full export when the service comes up
		},
		Source: SourceConfig{
			BaseURL:           "https://www.african-markets.com",
			RequestTimeout:    10 * time.Second,
			RequestsPerSecond: 1, // Polite scraping pace
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration. Plain PORT is honored for platform compatibility;
	// the MERCATUS_ prefixed variable wins when both are set.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if port := os.Getenv("MERCATUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MERCATUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Export configuration
	if outputDir := os.Getenv("MERCATUS_EXPORT_OUTPUT_DIR"); outputDir != "" {
		config.Export.OutputDir = outputDir
	}
	if batchSize := os.Getenv("MERCATUS_EXPORT_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Export.BatchSize = bs
		}
	}
	if batchPause := os.Getenv("MERCATUS_EXPORT_BATCH_PAUSE"); batchPause != "" {
		if bp, err := time.ParseDuration(batchPause); err == nil {
			config.Export.BatchPause = bp
		}
	}
	if schedule := os.Getenv("MERCATUS_EXPORT_SCHEDULE"); schedule != "" {
		config.Export.Schedule = schedule
	}
	if runOnStart := os.Getenv("MERCATUS_EXPORT_RUN_ON_START"); runOnStart != "" {
		if ros, err := strconv.ParseBool(runOnStart); err == nil {
			config.Export.RunOnStart = ros
		}
	}

	// Source configuration
	if baseURL := os.Getenv("MERCATUS_SOURCE_BASE_URL"); baseURL != "" {
		config.Source.BaseURL = baseURL
	}
	if requestTimeout := os.Getenv("MERCATUS_SOURCE_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Source.RequestTimeout = rt
		}
	}
	if proxyURL := os.Getenv("MERCATUS_SOURCE_PROXY_URL"); proxyURL != "" {
		config.Source.ProxyURL = proxyURL
	}
	if rps := os.Getenv("MERCATUS_SOURCE_REQUESTS_PER_SECOND"); rps != "" {
		if r, err := strconv.Atoi(rps); err == nil {
			config.Source.RequestsPerSecond = r
		}
	}
	if userAgent := os.Getenv("MERCATUS_SOURCE_USER_AGENT"); userAgent != "" {
		config.Source.UserAgent = userAgent
	}

	// Logging configuration
	if level := os.Getenv("MERCATUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MERCATUS_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate validates the configuration using go-playground/validator.
// Returns an error naming the first offending field.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
