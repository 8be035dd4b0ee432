package config

import "os"

// loadFromEnv overrides config from TODOS_* environment variables.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	set := func(field string) {
		if sources != nil {
			sources[field] = SourceEnv
		}
	}

	if v := os.Getenv("TODOS_DATA"); v != "" {
		cfg.DataFile = v
		set("data_file")
	}
	if v := os.Getenv("TODOS_RESET_IDS"); v != "" {
		cfg.ResetIDsWhenEmpty = boolFromString(v)
		set("reset_ids_when_empty")
	}
	if v := os.Getenv("TODOS_ADDR"); v != "" {
		cfg.ListenAddr = v
		set("listen_addr")
	}

	// Logging configuration
	if v := os.Getenv("TODOS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		set("log_level")
	}
	if v := os.Getenv("TODOS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		set("log_format")
	}
	if v := os.Getenv("TODOS_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
		set("log_timestamps")
	}
	if v := os.Getenv("TODOS_LOG_CALLER"); v != "" {
		cfg.LogCaller = boolFromString(v)
		set("log_caller")
	}
}
