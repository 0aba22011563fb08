package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/pagetrace/config.yaml"

// Recorder log backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all pagetrace configuration.
type Config struct {
	Probe    ProbeConfig    `yaml:"probe"`
	Settle   SettleConfig   `yaml:"settle"`
	Recorder RecorderConfig `yaml:"recorder"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProbeConfig is where the probe HTTP surface listens.
type ProbeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SettleConfig drives the wait loop: the page must be quiet for TimeoutMS,
// polled every IntervalMS, at most Attempts times.
type SettleConfig struct {
	TimeoutMS  int `yaml:"timeout_ms"`
	IntervalMS int `yaml:"interval_ms"`
	Attempts   int `yaml:"attempts"`
}

type RecorderConfig struct {
	Backend string `yaml:"backend"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns host:port for the probe.
func (p ProbeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// BaseURL returns the probe's http base URL.
func (p ProbeConfig) BaseURL() string {
	return "http://" + p.Addr()
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML, or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}

	return cfg, nil
}

// Validate checks value ranges and canonicalizes enumerations.
func (c *Config) Validate() error {
	if c.Probe.Port <= 0 || c.Probe.Port > 65535 {
		return fmt.Errorf("probe.port %d out of range", c.Probe.Port)
	}
	if c.Settle.TimeoutMS < 0 {
		return fmt.Errorf("settle.timeout_ms must not be negative")
	}
	if c.Settle.IntervalMS <= 0 {
		return fmt.Errorf("settle.interval_ms must be positive")
	}
	if c.Settle.Attempts <= 0 {
		return fmt.Errorf("settle.attempts must be positive")
	}

	switch backend := strings.ToLower(strings.TrimSpace(c.Recorder.Backend)); backend {
	case BackendMemory, BackendSQLite:
		c.Recorder.Backend = backend
	default:
		return fmt.Errorf("unsupported recorder.backend %q", c.Recorder.Backend)
	}

	level, err := NormalizeLogLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	c.Logging.Level = level

	format, err := NormalizeFormat(c.Logging.Format)
	if err != nil {
		return err
	}
	c.Logging.Format = format

	return nil
}

// NormalizeLogLevel validates and canonicalizes a log level name.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes a log format name.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "console":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DefaultPath returns DefaultConfigPath with the home directory expanded.
func DefaultPath() (string, error) {
	return expandPath(DefaultConfigPath)
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
