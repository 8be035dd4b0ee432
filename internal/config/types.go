package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource

	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultDataFile   = "todos.json"
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultLogLevel   = "warn"
	DefaultLogFormat  = "text"
)

// Config holds the full configuration for todos.
type Config struct {
	// Snapshot file holding the task list between runs
	DataFile string `toml:"data_file"`

	// Reuse ids from the start once every task is deleted
	ResetIDsWhenEmpty bool `toml:"reset_ids_when_empty"`

	// HTTP API
	ListenAddr string `toml:"listen_addr"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Computed at runtime
	ProjectRoot string `toml:"-"`
}

// Source returns where field got its value, or SourceDefault.
func (cws *ConfigWithSources) Source(field string) ConfigSource {
	if s, ok := cws.Sources[field]; ok {
		return s
	}
	return SourceDefault
}
