package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvProbeHost       = "PAGETRACE_PROBE_HOST"
	EnvProbePort       = "PAGETRACE_PROBE_PORT"
	EnvSettleTimeoutMS = "PAGETRACE_SETTLE_TIMEOUT_MS"
	EnvBackend         = "PAGETRACE_RECORDER_BACKEND"
	EnvLogLevel        = "PAGETRACE_LOG_LEVEL"
)

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from PAGETRACE_* variables and revalidates it.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvProbeHost); ok {
		cfg.Probe.Host = v
	}
	if v, ok := os.LookupEnv(EnvProbePort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProbePort, err)
		}
		cfg.Probe.Port = port
	}
	if v, ok := os.LookupEnv(EnvSettleTimeoutMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSettleTimeoutMS, err)
		}
		cfg.Settle.TimeoutMS = ms
	}
	if v, ok := os.LookupEnv(EnvBackend); ok {
		cfg.Recorder.Backend = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	return cfg.Validate()
}
