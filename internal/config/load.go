package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.todos/todos.toml or OS-specific config dir)
// 3. Project config file (todos.toml or .todos.toml in current directory)
// 4. Environment variables
// 5. CLI flags
//
// Global flags are registered on fs and parsed from args; the remaining
// arguments are available from fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	cws := &ConfigWithSources{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}
	cfg := cws.Config

	// 1. Defaults
	setDefaults(cfg)
	for _, field := range configFields() {
		cws.Sources[field] = SourceDefault
	}

	// 2. User config file
	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, cws.Sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
		cws.Files = append(cws.Files, path)
	}

	// 3. Project config file (overrides user config)
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, cws.Sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
		cws.Files = append(cws.Files, path)
	}

	// 4. Environment
	loadFromEnv(cfg, cws.Sources)

	// 5. CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, cws.Sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return cws, nil
}

// configFields returns the configurable field names, in display order.
func configFields() []string {
	return []string{
		"data_file",
		"reset_ids_when_empty",
		"listen_addr",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// Setting is one resolved configuration value.
type Setting struct {
	Key    string
	Value  string
	Source ConfigSource
}

// Settings lists every configurable value in display order.
func (cws *ConfigWithSources) Settings() []Setting {
	cfg := cws.Config
	values := map[string]string{
		"data_file":            cfg.DataFile,
		"reset_ids_when_empty": strconv.FormatBool(cfg.ResetIDsWhenEmpty),
		"listen_addr":          cfg.ListenAddr,
		"log_level":            cfg.LogLevel,
		"log_format":           cfg.LogFormat,
		"log_timestamps":       strconv.FormatBool(cfg.LogTimestamps),
		"log_caller":           strconv.FormatBool(cfg.LogCaller),
	}
	fields := configFields()
	out := make([]Setting, 0, len(fields))
	for _, key := range fields {
		out = append(out, Setting{Key: key, Value: values[key], Source: cws.Source(key)})
	}
	return out
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.DataFile = DefaultDataFile
	cfg.ResetIDsWhenEmpty = false
	cfg.ListenAddr = DefaultListenAddr
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.LogTimestamps = false
	cfg.LogCaller = false
}

// loadConfigFile decodes a TOML file over cfg. Keys absent from the file
// keep their current values; keys present are attributed to source.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, field := range configFields() {
		if md.IsDefined(field) {
			sources[field] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config) error {
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	if strings.TrimSpace(cfg.DataFile) == "" {
		return fmt.Errorf("data_file must not be empty")
	}
	cfg.DataFile = expandPath(cfg.DataFile)
	if !filepath.IsAbs(cfg.DataFile) {
		cfg.DataFile = filepath.Join(cfg.ProjectRoot, cfg.DataFile)
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log_format: unknown format %q (expected text, json or logfmt)", cfg.LogFormat)
	}

	return nil
}

// boolFromString reads the usual truthy spellings.
func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
