package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			Host: "127.0.0.1",
			Port: 7773,
		},
		Settle: SettleConfig{
			TimeoutMS:  500,
			IntervalMS: 250,
			Attempts:   40,
		},
		Recorder: RecorderConfig{
			Backend: BackendMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
